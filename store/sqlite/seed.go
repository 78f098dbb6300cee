package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plansaude/sinistro-engine/engine"
)

// Seed loads a small demo dataset: one operator, two organizations, a mix of
// active, cancelled, and never-enrolled claimants across three competence
// months. Intended for local development only.
func (s *Store) Seed(ctx context.Context) error {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	intp := func(v int) *int { return &v }
	timep := func(t time.Time) *time.Time { return &t }

	enrollments := []struct {
		rec engine.EnrollmentRecord
		raw string
	}{
		{engine.EnrollmentRecord{CPF: "11111111111", Operator: "VidaMais", Organization: "Sindicato Metalurgicos", Plan: "Essencial", Kind: "titular", Age: intp(34), StartDate: date(2024, time.March, 1)}, "Ativo"},
		{engine.EnrollmentRecord{CPF: "22222222222", Operator: "VidaMais", Organization: "Sindicato Metalurgicos", Plan: "Premium", Kind: "titular", Age: intp(61), StartDate: date(2023, time.July, 1)}, "ativo"},
		{engine.EnrollmentRecord{CPF: "33333333333", Operator: "VidaMais", Organization: "Associacao Comercial", Plan: "Essencial", Kind: "dependente", Age: intp(17), StartDate: date(2025, time.January, 1), Exclusion: timep(date(2025, time.March, 15))}, "Cancelado"},
		{engine.EnrollmentRecord{CPF: "44444444444", Operator: "VidaMais", Organization: "Associacao Comercial", Plan: "Premium", Kind: "titular", Age: intp(45), StartDate: date(2024, time.November, 1)}, "Suspenso"},
	}
	for _, e := range enrollments {
		if _, err := s.SaveEnrollment(ctx, e.rec, e.raw); err != nil {
			return fmt.Errorf("seed enrollment %s: %w", e.rec.CPF, err)
		}
	}

	month := func(s string) engine.Month {
		m, _ := engine.ParseMonth(s)
		return m
	}
	claims := []engine.ClaimRecord{
		{CPF: "11111111111", Operator: "VidaMais", Competence: month("2025-01"), Amount: decimal.NewFromFloat(320.50), Revenue: decimal.NewFromFloat(450), Event: "consulta"},
		{CPF: "11111111111", Operator: "VidaMais", Competence: month("2025-02"), Amount: decimal.NewFromFloat(1280.00), Revenue: decimal.NewFromFloat(450), Event: "exame"},
		{CPF: "22222222222", Operator: "VidaMais", Competence: month("2025-01"), Amount: decimal.NewFromFloat(5400.00), Revenue: decimal.NewFromFloat(980), Event: "internacao"},
		{CPF: "33333333333", Operator: "VidaMais", Competence: month("2025-02"), Amount: decimal.NewFromFloat(150.00), Revenue: decimal.NewFromFloat(210), Event: "consulta"},
		{CPF: "33333333333", Operator: "VidaMais", Competence: month("2025-03"), Amount: decimal.NewFromFloat(90.00), Revenue: decimal.NewFromFloat(210), Event: "consulta"},
		{CPF: "44444444444", Operator: "VidaMais", Competence: month("2025-03"), Amount: decimal.NewFromFloat(760.00), Revenue: decimal.NewFromFloat(620), Event: "terapia"},
		{CPF: "99999999999", Operator: "VidaMais", Competence: month("2025-03"), Amount: decimal.NewFromFloat(2100.00), Event: "internacao"},
		// No event marker: ignored by the whole pipeline.
		{CPF: "11111111111", Operator: "VidaMais", Competence: month("2025-03"), Amount: decimal.NewFromFloat(999.99)},
	}
	for _, c := range claims {
		if err := s.SaveClaim(ctx, c); err != nil {
			return fmt.Errorf("seed claim %s/%s: %w", c.CPF, c.Competence, err)
		}
	}
	return nil
}
