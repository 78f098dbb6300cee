/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the engine's
  internal types from the external contract.

NUMERIC GUARANTEES:
  Every numeric field is a finite number. Counts default to 0, monetary
  fields to 0.0; percentage and ratio fields are nullable and omitted only
  when their denominator was zero - never NaN, never Infinity.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/report.go: The internal report tree these map from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/plansaude/sinistro-engine/engine"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// MonthlyDTO is one month's totals per status. The *_value fields carry
// claim cost, the *_net_value fields the billed revenue counterpart.
type MonthlyDTO struct {
	Month string `json:"month"`

	ActiveCount    int `json:"active_count"`
	InactiveCount  int `json:"inactive_count"`
	UnmatchedCount int `json:"unmatched_count"`
	TotalCount     int `json:"total_count"`

	ActiveValue    float64 `json:"active_value"`
	InactiveValue  float64 `json:"inactive_value"`
	UnmatchedValue float64 `json:"unmatched_value"`
	TotalValue     float64 `json:"total_value"`

	ActiveNetValue    float64 `json:"active_net_value"`
	InactiveNetValue  float64 `json:"inactive_net_value"`
	UnmatchedNetValue float64 `json:"unmatched_net_value"`
	TotalNetValue     float64 `json:"total_net_value"`

	// Indice de sinistralidade: total cost over total revenue.
	ClaimsRatio *float64 `json:"claims_ratio"`
}

// SliceDTO is one (month, dimension value, status) cell with its share of
// the global per-status parent.
type SliceDTO struct {
	Month    string   `json:"month"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Count    int      `json:"count"`
	Value    float64  `json:"value"`
	NetValue float64  `json:"net_value"`
	PctCount *float64 `json:"pct_count"`
	PctValue *float64 `json:"pct_value"`
}

// ReportDTO is the full aggregate tree for one run.
type ReportDTO struct {
	RunID         string       `json:"run_id"`
	GeneratedAt   string       `json:"generated_at"`
	ByMonth       []MonthlyDTO `json:"by_month"`
	ByOrganization []SliceDTO  `json:"by_organization"`
	ByPlan        []SliceDTO   `json:"by_plan"`
	ByAgeBracket  []SliceDTO   `json:"by_age_bracket"`
	DriftFindings int          `json:"drift_findings"`
}

// FiltersDTO lists the distinct values available for filter dropdowns.
type FiltersDTO struct {
	Organizations []string `json:"organizations"`
	Plans         []string `json:"plans"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toReportDTO(r *engine.Report) *ReportDTO {
	dto := &ReportDTO{
		RunID:         r.RunID,
		GeneratedAt:   r.GeneratedAt.Format(time.RFC3339),
		ByMonth:       make([]MonthlyDTO, len(r.Months)),
		DriftFindings: len(r.Drift),
	}
	for i, m := range r.Months {
		dto.ByMonth[i] = toMonthlyDTO(m)
	}
	dto.ByOrganization = toSliceDTOs(r.ByDimension[engine.DimOrganization])
	dto.ByPlan = toSliceDTOs(r.ByDimension[engine.DimPlan])
	dto.ByAgeBracket = toSliceDTOs(r.ByDimension[engine.DimAgeBracket])
	return dto
}

func toMonthlyDTO(m engine.MonthlyAggregate) MonthlyDTO {
	return MonthlyDTO{
		Month: m.Month.String(),

		ActiveCount:    m.Active.Count,
		InactiveCount:  m.Inactive.Count,
		UnmatchedCount: m.Unmatched.Count,
		TotalCount:     m.Total.Count,

		ActiveValue:    toFloat(m.Active.Cost),
		InactiveValue:  toFloat(m.Inactive.Cost),
		UnmatchedValue: toFloat(m.Unmatched.Cost),
		TotalValue:     toFloat(m.Total.Cost),

		ActiveNetValue:    toFloat(m.Active.Revenue),
		InactiveNetValue:  toFloat(m.Inactive.Revenue),
		UnmatchedNetValue: toFloat(m.Unmatched.Revenue),
		TotalNetValue:     toFloat(m.Total.Revenue),

		ClaimsRatio: toFloatPtr(m.Total.ClaimsRatio()),
	}
}

func toSliceDTOs(dr engine.DimensionReport) []SliceDTO {
	out := make([]SliceDTO, len(dr.Slices))
	for i, s := range dr.Slices {
		out[i] = SliceDTO{
			Month:    s.Month.String(),
			Name:     s.Value,
			Status:   string(s.Status),
			Count:    s.Count,
			Value:    toFloat(s.Cost),
			NetValue: toFloat(s.Revenue),
			PctCount: toFloatPtr(s.PctCount),
			PctValue: toFloatPtr(s.PctCost),
		}
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toFloatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}
