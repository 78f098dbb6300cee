/*
dimensions.go - Dimensional slicing with percentage shares

PURPOSE:
  Re-runs the monthly grouping additionally keyed by one dimension
  (organization, plan, or age bracket) and attaches each slice's share of
  its parent status total.

PERCENTAGE SEMANTICS:
  Shares are always relative to the GLOBAL per-(month, status) total from
  the unfiltered monthly pass - never to a dimension-filtered subtotal.
  This keeps the meaning of a percentage stable when an organization filter
  is applied upstream. A zero parent denominator yields a nil share, never
  NaN or a division by zero.

TOTAL PSEUDO-STATUS:
  Besides the three status buckets, each (month, value) pair gets a "total"
  row aggregating across statuses, with shares relative to the global
  month total.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSIONS
// =============================================================================

// Dimension is a report slicing axis.
type Dimension string

const (
	DimOrganization Dimension = "organization"
	DimPlan         Dimension = "plan"
	DimAgeBracket   Dimension = "age_bracket"
)

// Dimensions lists the slicing axes in presentation order.
var Dimensions = []Dimension{DimOrganization, DimPlan, DimAgeBracket}

// StatusTotal is the pseudo-status aggregating across the three buckets.
// It appears only in dimensional slices, never in reconciled lines.
const StatusTotal Status = "total"

// ValueUnknown labels slices whose dimension value is missing, e.g. the
// organization of an unmatched person.
const ValueUnknown = "unknown"

// dimensionValue extracts the line's value on the axis.
func dimensionValue(line ReconciledLine, dim Dimension) string {
	var v string
	switch dim {
	case DimOrganization:
		v = line.Organization
	case DimPlan:
		v = line.Plan
	case DimAgeBracket:
		v = string(line.AgeBracket)
	}
	if v == "" {
		v = ValueUnknown
	}
	return v
}

// =============================================================================
// DIMENSION SLICE
// =============================================================================

// DimensionSlice is one (month, dimension value, status) cell with its share
// of the global parent. Nil shares mean the parent denominator was zero.
type DimensionSlice struct {
	Month  Month
	Value  string
	Status Status
	Metrics
	PctCount *decimal.Decimal
	PctCost  *decimal.Decimal
}

// =============================================================================
// DIMENSION ACCUMULATOR
// =============================================================================

type sliceKey struct {
	month  Month
	value  string
	status Status
}

// DimensionAccumulator accumulates lines keyed by (month, value, status) for
// one axis. Like MonthlyAccumulator, one per shard, merged afterwards.
type DimensionAccumulator struct {
	dim    Dimension
	slices map[sliceKey]Metrics
}

func NewDimensionAccumulator(dim Dimension) *DimensionAccumulator {
	return &DimensionAccumulator{dim: dim, slices: make(map[sliceKey]Metrics)}
}

func (da *DimensionAccumulator) Dimension() Dimension { return da.dim }

// Add folds one line into its status cell and the total pseudo-status cell.
func (da *DimensionAccumulator) Add(line ReconciledLine) {
	value := dimensionValue(line, da.dim)
	for _, status := range []Status{line.Status, StatusTotal} {
		k := sliceKey{month: line.Month, value: value, status: status}
		cell, ok := da.slices[k]
		if !ok {
			cell = NewMetrics()
		}
		da.slices[k] = cell.add(line)
	}
}

// Merge folds another accumulator for the same axis into this one.
func (da *DimensionAccumulator) Merge(other *DimensionAccumulator) {
	for k, theirs := range other.slices {
		mine, ok := da.slices[k]
		if !ok {
			da.slices[k] = theirs
			continue
		}
		da.slices[k] = mine.Merge(theirs)
	}
}

// Slices materializes the cells with percentage shares against the global
// monthly parents, ordered by month, value, then status.
func (da *DimensionAccumulator) Slices(parents *MonthlyAccumulator) []DimensionSlice {
	out := make([]DimensionSlice, 0, len(da.slices))
	for k, cell := range da.slices {
		parent := parents.Lookup(k.month).Total
		if k.status != StatusTotal {
			parent = parents.Lookup(k.month).ByStatus(k.status)
		}
		out = append(out, DimensionSlice{
			Month:    k.month,
			Value:    k.value,
			Status:   k.status,
			Metrics:  cell,
			PctCount: share(decimal.NewFromInt(int64(cell.Count)), decimal.NewFromInt(int64(parent.Count))),
			PctCost:  share(cell.Cost, parent.Cost),
		})
	}

	order := map[Status]int{StatusActive: 0, StatusInactive: 1, StatusUnmatched: 2, StatusTotal: 3}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return order[out[i].Status] < order[out[j].Status]
	})
	return out
}

// share returns part/whole, or nil when the denominator is zero.
func share(part, whole decimal.Decimal) *decimal.Decimal {
	if whole.IsZero() {
		return nil
	}
	r := part.Div(whole)
	return &r
}
