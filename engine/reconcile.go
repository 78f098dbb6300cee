/*
reconcile.go - Three-way claim classification

PURPOSE:
  Reconciles each month's claims for a person against the enrollment record
  resolved for that month, producing one ReconciledLine per (month, person)
  pair. This is a total three-way classification: every pair with billable
  claims lands in exactly one of {active, inactive, unmatched}, never a
  fourth bucket, never twice.

CLASSIFICATION:
  unmatched  no record resolved for the month (enrollment started after the
             month ended, or the person has no history under the operator -
             often covered by a different operator, or a data-entry mismatch)
  active     resolved record counts as active for the month
  inactive   resolved record present but not active (cancelled, suspended,
             or any other non-active label)

  Pure per (month, person): no shared state, safe to shard across workers.
*/
package engine

import "github.com/shopspring/decimal"

// Classify assigns the status bucket for one (month, person) pair given the
// record resolved for that month (nil = never enrolled as of month end).
func Classify(resolved *EnrollmentRecord, m Month) Status {
	switch {
	case resolved == nil:
		return StatusUnmatched
	case resolved.ActiveForMonth(m):
		return StatusActive
	default:
		return StatusInactive
	}
}

// ReconcilePerson produces the person's reconciled lines, one per competence
// month with billable claims, in month order.
func ReconcilePerson(sn *Snapshot, cpf CPF) []ReconciledLine {
	months := sn.ClaimMonths(cpf)
	if len(months) == 0 {
		return nil
	}
	history := sn.EnrollmentsFor(cpf)

	lines := make([]ReconciledLine, 0, len(months))
	for _, m := range months {
		resolved := Resolve(history, m.LastDay())

		line := ReconciledLine{
			Month:      m,
			CPF:        cpf,
			Status:     Classify(resolved, m),
			ClaimTotal: decimal.Zero,
			Revenue:    decimal.Zero,
			AgeBracket: BracketForAge(nil),
		}
		if resolved != nil {
			line.Organization = resolved.Organization
			line.Plan = resolved.Plan
			line.AgeBracket = BracketForAge(resolved.Age)
		}

		// Revenue is a per-person figure: counted once per month, not per
		// claim. The first claim carrying one wins.
		for _, c := range sn.ClaimsFor(cpf, m) {
			line.ClaimTotal = line.ClaimTotal.Add(c.Amount)
			if line.Revenue.IsZero() && !c.Revenue.IsZero() {
				line.Revenue = c.Revenue
			}
		}

		lines = append(lines, line)
	}
	return lines
}
