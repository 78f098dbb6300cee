/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. Validation errors abort before any
  reconciliation starts; everything past validation produces a best-effort
  consistent result over imperfect source data.

ERROR CATEGORIES:
  1. Validation errors - malformed period/month, missing operator
  2. Source errors - feed loading failures, wrapped by store packages
  3. Invariant drift - detected and logged, never surfaced to callers
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidMonth is returned when a competence month string cannot be
	// parsed as YYYY-MM.
	ErrInvalidMonth = errors.New("invalid competence month")

	// ErrInvalidPeriod is returned when the reference period is missing or
	// its end precedes its start.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrOperatorRequired is returned when a filter carries no operator.
	ErrOperatorRequired = errors.New("operator is required")
)

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrOperatorRequired)
}

// =============================================================================
// INVARIANT DRIFT - Detected, logged, never fatal
// =============================================================================

// DriftFinding records one place where dimensional sums disagree with the
// parent monthly total beyond the tolerance. Upstream data anomalies can
// legitimately cause small drifts; the report is still served.
type DriftFinding struct {
	Month     Month
	Status    Status
	Dimension Dimension // empty for partition-completeness drift
	Field     string    // "count", "cost", "revenue"
	Expected  string
	Got       string
}

func (d DriftFinding) String() string {
	scope := "monthly totals"
	if d.Dimension != "" {
		scope = "dimension " + string(d.Dimension)
	}
	return fmt.Sprintf("%s %s/%s %s: expected %s, got %s",
		scope, d.Month, d.Status, d.Field, d.Expected, d.Got)
}
