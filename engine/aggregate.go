/*
aggregate.go - Monthly headcount and monetary aggregation

PURPOSE:
  Groups reconciled lines by (month, status) and sums headcount (distinct
  persons), claim cost, and billed revenue. Counts are persons, not claims:
  a person with many claims in a month is still one head.

INVARIANT (partition completeness):
  active + inactive + unmatched == total, for counts, cost, and revenue.
  Holds by construction here; report.go still verifies it and logs drift.

MERGEABILITY:
  Accumulators from parallel person shards merge by plain summation - the
  merge is commutative and associative because every (month, person) pair
  lives in exactly one shard.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// METRICS - Headcount plus monetary sums
// =============================================================================

// Metrics is one cell of the report: distinct persons, their summed month
// claim cost, and their summed per-person revenue.
type Metrics struct {
	Count   int
	Cost    decimal.Decimal
	Revenue decimal.Decimal
}

// NewMetrics returns an explicit zero (decimal zero values, not nil).
func NewMetrics() Metrics {
	return Metrics{Cost: decimal.Zero, Revenue: decimal.Zero}
}

func (m Metrics) add(line ReconciledLine) Metrics {
	return Metrics{
		Count:   m.Count + 1,
		Cost:    m.Cost.Add(line.ClaimTotal),
		Revenue: m.Revenue.Add(line.Revenue),
	}
}

// Merge sums two metrics cells.
func (m Metrics) Merge(other Metrics) Metrics {
	return Metrics{
		Count:   m.Count + other.Count,
		Cost:    m.Cost.Add(other.Cost),
		Revenue: m.Revenue.Add(other.Revenue),
	}
}

// ClaimsRatio returns cost/revenue (indice de sinistralidade), or nil when
// revenue is zero - never NaN or a division by zero.
func (m Metrics) ClaimsRatio() *decimal.Decimal {
	if m.Revenue.IsZero() {
		return nil
	}
	r := m.Cost.Div(m.Revenue)
	return &r
}

// =============================================================================
// MONTHLY AGGREGATE
// =============================================================================

// MonthlyAggregate is one month's totals, per status and overall.
type MonthlyAggregate struct {
	Month     Month
	Active    Metrics
	Inactive  Metrics
	Unmatched Metrics
	Total     Metrics
}

// ByStatus returns the metrics cell for one status bucket.
func (a MonthlyAggregate) ByStatus(s Status) Metrics {
	switch s {
	case StatusActive:
		return a.Active
	case StatusInactive:
		return a.Inactive
	default:
		return a.Unmatched
	}
}

// =============================================================================
// MONTHLY ACCUMULATOR - Mergeable partial aggregate
// =============================================================================

// MonthlyAccumulator accumulates lines into per-month totals. Not safe for
// concurrent use; each shard owns its own and the results are merged.
type MonthlyAccumulator struct {
	months map[Month]*MonthlyAggregate
}

func NewMonthlyAccumulator() *MonthlyAccumulator {
	return &MonthlyAccumulator{months: make(map[Month]*MonthlyAggregate)}
}

// Add folds one reconciled line into the accumulator.
func (ma *MonthlyAccumulator) Add(line ReconciledLine) {
	agg := ma.months[line.Month]
	if agg == nil {
		agg = &MonthlyAggregate{
			Month:     line.Month,
			Active:    NewMetrics(),
			Inactive:  NewMetrics(),
			Unmatched: NewMetrics(),
			Total:     NewMetrics(),
		}
		ma.months[line.Month] = agg
	}

	switch line.Status {
	case StatusActive:
		agg.Active = agg.Active.add(line)
	case StatusInactive:
		agg.Inactive = agg.Inactive.add(line)
	default:
		agg.Unmatched = agg.Unmatched.add(line)
	}
	agg.Total = agg.Total.add(line)
}

// Merge folds another accumulator into this one.
func (ma *MonthlyAccumulator) Merge(other *MonthlyAccumulator) {
	for month, theirs := range other.months {
		mine := ma.months[month]
		if mine == nil {
			copied := *theirs
			ma.months[month] = &copied
			continue
		}
		mine.Active = mine.Active.Merge(theirs.Active)
		mine.Inactive = mine.Inactive.Merge(theirs.Inactive)
		mine.Unmatched = mine.Unmatched.Merge(theirs.Unmatched)
		mine.Total = mine.Total.Merge(theirs.Total)
	}
}

// Aggregates returns the accumulated months in chronological order.
func (ma *MonthlyAccumulator) Aggregates() []MonthlyAggregate {
	out := make([]MonthlyAggregate, 0, len(ma.months))
	for _, agg := range ma.months {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// Lookup returns the aggregate for a month, or a zero aggregate when the
// month never appeared.
func (ma *MonthlyAccumulator) Lookup(m Month) MonthlyAggregate {
	if agg := ma.months[m]; agg != nil {
		return *agg
	}
	return MonthlyAggregate{
		Month:     m,
		Active:    NewMetrics(),
		Inactive:  NewMetrics(),
		Unmatched: NewMetrics(),
		Total:     NewMetrics(),
	}
}
