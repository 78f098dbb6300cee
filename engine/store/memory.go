// Package store provides an in-memory RecordSource for tests and dev.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/plansaude/sinistro-engine/engine"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds the two feeds in memory and applies filters the same way the
// database-backed sources do: organization/plan/kind filters restrict claims
// to persons whose enrollment matches, since claim rows carry no dimensions
// of their own.
type Memory struct {
	mu          sync.RWMutex
	enrollments []engine.EnrollmentRecord
	claims      []engine.ClaimRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

// AddEnrollments appends enrollment feed rows.
func (m *Memory) AddEnrollments(records ...engine.EnrollmentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments = append(m.enrollments, records...)
}

// AddClaims appends claim feed rows.
func (m *Memory) AddClaims(records ...engine.ClaimRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, records...)
}

func (m *Memory) Enrollments(_ context.Context, f engine.Filter) ([]engine.EnrollmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.EnrollmentRecord
	for _, e := range m.enrollments {
		if m.matchEnrollment(e, f) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) Claims(_ context.Context, f engine.Filter) ([]engine.ClaimRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Dimension filters apply through the enrollment feed.
	var allowed map[engine.CPF]bool
	if f.Organization != "" || f.Plan != "" || f.Kind != "" {
		allowed = make(map[engine.CPF]bool)
		for _, e := range m.enrollments {
			if m.matchEnrollment(e, f) {
				allowed[e.CPF] = true
			}
		}
	}

	var out []engine.ClaimRecord
	for _, c := range m.claims {
		if !strings.EqualFold(c.Operator, f.Operator) {
			continue
		}
		if c.Competence.Before(f.From) || c.Competence.After(f.To) {
			continue
		}
		if f.CPF != "" && c.CPF != f.CPF {
			continue
		}
		if allowed != nil && !allowed[c.CPF] {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) matchEnrollment(e engine.EnrollmentRecord, f engine.Filter) bool {
	if !strings.EqualFold(e.Operator, f.Operator) {
		return false
	}
	if f.Organization != "" && e.Organization != f.Organization {
		return false
	}
	if f.Plan != "" && e.Plan != f.Plan {
		return false
	}
	if f.Kind != "" && !strings.EqualFold(e.Kind, f.Kind) {
		return false
	}
	if f.CPF != "" && e.CPF != f.CPF {
		return false
	}
	return true
}
