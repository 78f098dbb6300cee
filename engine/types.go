/*
Package engine implements the claims-ratio (sinistralidade) computation core.

PURPOSE:
  This package contains the domain types and algorithms that turn two flat
  feeds - enrollment records and claim records - into a consistent monthly
  report: each person with claims is classified into an enrollment-status
  category for each competence month, and headcounts and monetary totals are
  aggregated by month, status, organization, plan, and age bracket.

KEY CONCEPTS IN THIS FILE (types.go):
  - CPF: The person identifier joining enrollment and claim feeds
  - EnrollmentRecord: A validity window (vigencia) under an operator
  - ClaimRecord: A claim attributed to a competence month
  - ReconciledLine: One classified (month, person) pair - the unit of
    aggregation
  - Snapshot: The immutable input the pipeline runs over
  - RecordSource: How feeds are loaded (sqlite, postgres, memory)

DESIGN PRINCIPLES:
  1. Immutability: Feeds are read-only; every run produces a fresh report
  2. Precision: Uses decimal.Decimal for all monetary figures
  3. Closed enums: Free-text status labels are normalized once at ingestion,
     never compared as raw strings inside the engine
  4. Determinism: Same snapshot in, byte-identical report out

SEE ALSO:
  - eligibility.go: Resolving the effective enrollment for a reference date
  - reconcile.go: Three-way status classification per (month, person)
  - aggregate.go: Monthly headcount/cost/revenue totals
  - dimensions.go: Slicing by organization, plan, and age bracket
  - report.go: The pipeline tying it all together
*/
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND ENUMS
// =============================================================================

// CPF is the person identifier used as the join key between feeds.
type CPF string

// EnrollmentStatus is the normalized contractual status of an enrollment
// record. Free-text labels are collapsed at ingestion: "ativo"/"active"
// (case-insensitive) map to EnrollmentActive, everything else - cancelled,
// suspended, garbage - maps to EnrollmentInactive. Collapsing unknown labels
// into inactive mirrors the upstream system; changing it needs product
// sign-off.
type EnrollmentStatus int

const (
	EnrollmentInactive EnrollmentStatus = iota
	EnrollmentActive
)

// NormalizeEnrollmentStatus maps a raw status label to the closed enum.
func NormalizeEnrollmentStatus(label string) EnrollmentStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "ativo", "active":
		return EnrollmentActive
	default:
		return EnrollmentInactive
	}
}

// Status is the reconciliation outcome for a (month, person) pair.
// Every pair with claims lands in exactly one of the three buckets.
type Status string

const (
	StatusActive    Status = "active"    // effective record, active for the month
	StatusInactive  Status = "inactive"  // effective record, not active for the month
	StatusUnmatched Status = "unmatched" // claims but no enrollment history as of the month
)

// Statuses lists the three buckets in their canonical presentation order.
var Statuses = []Status{StatusActive, StatusInactive, StatusUnmatched}

// =============================================================================
// SOURCE RECORDS (read-only input)
// =============================================================================

// EnrollmentRecord is one validity window of a person's enrollment under an
// operator. A person may carry several records (re-enrollment, plan
// migration); records are immutable once created.
type EnrollmentRecord struct {
	ID           int64  // internal id; highest wins on start-date ties
	CPF          CPF
	Operator     string
	Organization string // sponsoring organization (entidade)
	Plan         string
	Kind         string // beneficiary kind, e.g. "titular", "dependente"
	Age          *int   // nil = unknown
	Status       EnrollmentStatus
	StartDate    time.Time  // enrollment start (inclusive)
	Exclusion    *time.Time // nil = still enrolled
	Adjustment   time.Month // plan renewal month (mes de reajuste); 0 = unknown
}

// ClaimRecord is one claim attributed to a competence month. Revenue is a
// per-person figure carried on the claim row, not a per-claim amount.
type ClaimRecord struct {
	CPF        CPF
	Operator   string
	Competence Month
	Amount     decimal.Decimal
	Revenue    decimal.Decimal // billed/contracted revenue for the person
	Event      string          // billable-event marker; rows without one are dropped
}

// Billable reports whether the claim carries the event marker that makes it
// count toward the report.
func (c ClaimRecord) Billable() bool {
	return strings.TrimSpace(c.Event) != ""
}

// =============================================================================
// RECONCILED LINE (derived, ephemeral)
// =============================================================================

// ReconciledLine is one classified (month, person) pair: the person's month
// claim total, their per-person revenue counted once, and the dimensions
// taken from the effective enrollment record (empty for unmatched).
type ReconciledLine struct {
	Month        Month
	CPF          CPF
	Status       Status
	ClaimTotal   decimal.Decimal
	Revenue      decimal.Decimal
	Organization string
	Plan         string
	AgeBracket   AgeBracket
}

// =============================================================================
// SNAPSHOT - Immutable input for one pipeline run
// =============================================================================

// Snapshot is the read-only input the pipeline operates on. Building it
// applies the two ingestion rules once: claims without a billable-event
// marker are dropped, and enrollment records are ordered by start date
// (then id) per person. The snapshot is safe to share across parallel
// workers by reference.
type Snapshot struct {
	enrollments map[CPF][]EnrollmentRecord
	claims      map[CPF]map[Month][]ClaimRecord
	persons     []CPF
}

// NewSnapshot builds a snapshot from the two feeds.
func NewSnapshot(enrollments []EnrollmentRecord, claims []ClaimRecord) *Snapshot {
	sn := &Snapshot{
		enrollments: make(map[CPF][]EnrollmentRecord),
		claims:      make(map[CPF]map[Month][]ClaimRecord),
	}

	for _, e := range enrollments {
		sn.enrollments[e.CPF] = append(sn.enrollments[e.CPF], e)
	}
	for cpf, recs := range sn.enrollments {
		recs := recs
		sort.Slice(recs, func(i, j int) bool {
			if !recs[i].StartDate.Equal(recs[j].StartDate) {
				return recs[i].StartDate.Before(recs[j].StartDate)
			}
			return recs[i].ID < recs[j].ID
		})
		sn.enrollments[cpf] = recs
	}

	seen := make(map[CPF]bool)
	for _, c := range claims {
		if !c.Billable() {
			continue
		}
		byMonth := sn.claims[c.CPF]
		if byMonth == nil {
			byMonth = make(map[Month][]ClaimRecord)
			sn.claims[c.CPF] = byMonth
		}
		byMonth[c.Competence] = append(byMonth[c.Competence], c)
		if !seen[c.CPF] {
			seen[c.CPF] = true
			sn.persons = append(sn.persons, c.CPF)
		}
	}
	sort.Slice(sn.persons, func(i, j int) bool { return sn.persons[i] < sn.persons[j] })

	return sn
}

// Persons returns every person with at least one billable claim, sorted.
func (sn *Snapshot) Persons() []CPF { return sn.persons }

// EnrollmentsFor returns the person's enrollment history, oldest first.
func (sn *Snapshot) EnrollmentsFor(cpf CPF) []EnrollmentRecord { return sn.enrollments[cpf] }

// ClaimMonths returns the competence months the person has claims in, sorted.
func (sn *Snapshot) ClaimMonths(cpf CPF) []Month {
	byMonth := sn.claims[cpf]
	months := make([]Month, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// ClaimsFor returns the person's claims for one competence month.
func (sn *Snapshot) ClaimsFor(cpf CPF, m Month) []ClaimRecord { return sn.claims[cpf][m] }

// =============================================================================
// RECORD SOURCE - How feeds are loaded
// =============================================================================

// Filter narrows the feeds a RecordSource returns. Filtering happens before
// reconciliation: the engine itself is agnostic to where records came from.
type Filter struct {
	Operator     string
	From, To     Month
	Organization string
	Plan         string
	CPF          CPF
	Kind         string
}

// Validate rejects filters that cannot produce a meaningful report.
func (f Filter) Validate() error {
	if strings.TrimSpace(f.Operator) == "" {
		return ErrOperatorRequired
	}
	if f.From.IsZero() || f.To.IsZero() {
		return fmt.Errorf("%w: missing reference period", ErrInvalidPeriod)
	}
	if f.To.Before(f.From) {
		return ErrInvalidPeriod
	}
	return nil
}

// Fingerprint returns a stable cache key for the filter.
func (f Filter) Fingerprint() string {
	return strings.Join([]string{
		f.Operator, f.From.String(), f.To.String(),
		f.Organization, f.Plan, string(f.CPF), f.Kind,
	}, "|")
}

// RecordSource provides the two input feeds for a filter. Implementations:
// store/sqlite, store/postgres, and engine/store (in-memory, for tests).
type RecordSource interface {
	Enrollments(ctx context.Context, f Filter) ([]EnrollmentRecord, error)
	Claims(ctx context.Context, f Filter) ([]ClaimRecord, error)
}
