package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plansaude/sinistro-engine/engine"
)

func month(t *testing.T, s string) engine.Month {
	t.Helper()
	m, err := engine.ParseMonth(s)
	require.NoError(t, err)
	return m
}

func seedMemory() *Memory {
	m := NewMemory()
	m.AddEnrollments(
		engine.EnrollmentRecord{ID: 1, CPF: "111", Operator: "VidaMais", Organization: "Org A", Plan: "Essencial", Kind: "titular",
			Status: engine.EnrollmentActive, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		engine.EnrollmentRecord{ID: 2, CPF: "222", Operator: "VidaMais", Organization: "Org B", Plan: "Premium", Kind: "dependente",
			Status: engine.EnrollmentActive, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		engine.EnrollmentRecord{ID: 3, CPF: "333", Operator: "OutraOp", Organization: "Org A", Plan: "Essencial", Kind: "titular",
			Status: engine.EnrollmentActive, StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	)
	m.AddClaims(
		engine.ClaimRecord{CPF: "111", Operator: "VidaMais", Competence: engine.NewMonth(2025, time.January), Amount: decimal.NewFromInt(100), Event: "consulta"},
		engine.ClaimRecord{CPF: "222", Operator: "VidaMais", Competence: engine.NewMonth(2025, time.February), Amount: decimal.NewFromInt(200), Event: "exame"},
		engine.ClaimRecord{CPF: "111", Operator: "VidaMais", Competence: engine.NewMonth(2025, time.June), Amount: decimal.NewFromInt(300), Event: "consulta"},
		engine.ClaimRecord{CPF: "333", Operator: "OutraOp", Competence: engine.NewMonth(2025, time.January), Amount: decimal.NewFromInt(400), Event: "consulta"},
	)
	return m
}

func TestMemory_OperatorScoping(t *testing.T) {
	m := seedMemory()
	f := engine.Filter{Operator: "vidamais", From: month(t, "2025-01"), To: month(t, "2025-12")}

	enrollments, err := m.Enrollments(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, enrollments, 2, "operator match is case-insensitive")

	claims, err := m.Claims(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, claims, 3)
}

func TestMemory_CompetenceRange(t *testing.T) {
	m := seedMemory()
	f := engine.Filter{Operator: "VidaMais", From: month(t, "2025-01"), To: month(t, "2025-02")}

	claims, err := m.Claims(context.Background(), f)
	require.NoError(t, err)
	assert.Len(t, claims, 2, "June claim falls outside the range")
}

func TestMemory_DimensionFiltersRestrictClaimsThroughEnrollment(t *testing.T) {
	m := seedMemory()
	f := engine.Filter{Operator: "VidaMais", From: month(t, "2025-01"), To: month(t, "2025-12"),
		Organization: "Org A"}

	claims, err := m.Claims(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	for _, c := range claims {
		assert.Equal(t, engine.CPF("111"), c.CPF)
	}

	enrollments, err := m.Enrollments(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "Org A", enrollments[0].Organization)
}

func TestMemory_CPFFilter(t *testing.T) {
	m := seedMemory()
	f := engine.Filter{Operator: "VidaMais", From: month(t, "2025-01"), To: month(t, "2025-12"),
		CPF: "222"}

	claims, err := m.Claims(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, engine.CPF("222"), claims[0].CPF)
}
