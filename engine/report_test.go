package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func demoSnapshot() *Snapshot {
	enrollments := []EnrollmentRecord{
		{ID: 1, CPF: "111", Organization: "Org A", Plan: "Essencial", Age: intp(34),
			Status: EnrollmentActive, StartDate: date(2024, time.March, 1)},
		{ID: 2, CPF: "222", Organization: "Org A", Plan: "Premium", Age: intp(61),
			Status: EnrollmentActive, StartDate: date(2023, time.July, 1)},
		{ID: 3, CPF: "333", Organization: "Org B", Plan: "Essencial", Age: intp(17),
			Status: EnrollmentActive, StartDate: date(2025, time.January, 1),
			Exclusion: timep(date(2025, time.March, 15))},
		{ID: 4, CPF: "444", Organization: "Org B", Plan: "Premium", Age: intp(45),
			Status: EnrollmentInactive, StartDate: date(2024, time.November, 1)},
	}
	claims := []ClaimRecord{
		{CPF: "111", Competence: month("2025-01"), Amount: dec(320.50), Revenue: dec(450), Event: "consulta"},
		{CPF: "111", Competence: month("2025-02"), Amount: dec(1280), Revenue: dec(450), Event: "exame"},
		{CPF: "222", Competence: month("2025-01"), Amount: dec(5400), Revenue: dec(980), Event: "internacao"},
		{CPF: "333", Competence: month("2025-02"), Amount: dec(150), Revenue: dec(210), Event: "consulta"},
		{CPF: "333", Competence: month("2025-03"), Amount: dec(90), Revenue: dec(210), Event: "consulta"},
		{CPF: "444", Competence: month("2025-03"), Amount: dec(760), Revenue: dec(620), Event: "terapia"},
		{CPF: "999", Competence: month("2025-03"), Amount: dec(2100), Event: "internacao"},
	}
	return NewSnapshot(enrollments, claims)
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	report, err := NewPipeline(zap.NewNop()).Run(context.Background(), demoSnapshot())
	require.NoError(t, err)
	require.Len(t, report.Months, 3)

	jan, feb, mar := report.Months[0], report.Months[1], report.Months[2]

	assert.Equal(t, "2025-01", jan.Month.String())
	assert.Equal(t, 2, jan.Active.Count)
	assert.Equal(t, 0, jan.Inactive.Count)
	assert.Equal(t, 0, jan.Unmatched.Count)
	assert.True(t, jan.Active.Cost.Equal(dec(5720.50)), "jan active cost = %s", jan.Active.Cost)

	// 333 still active in February (excluded 2025-03-15)
	assert.Equal(t, "2025-02", feb.Month.String())
	assert.Equal(t, 2, feb.Active.Count)

	// March: 333 inactive (mid-month exclusion), 444 inactive (label),
	// 999 unmatched (no history)
	assert.Equal(t, "2025-03", mar.Month.String())
	assert.Equal(t, 0, mar.Active.Count)
	assert.Equal(t, 2, mar.Inactive.Count)
	assert.Equal(t, 1, mar.Unmatched.Count)
	assert.Equal(t, 3, mar.Total.Count)
	assert.True(t, mar.Unmatched.Cost.Equal(dec(2100)))

	// A fully computed report carries no drift by construction
	assert.Empty(t, report.Drift)

	// All three dimension axes are present
	for _, dim := range Dimensions {
		assert.NotEmpty(t, report.ByDimension[dim].Slices, "dimension %s", dim)
	}
}

func TestPipelineRun_IdempotentAcrossRunsAndWorkerCounts(t *testing.T) {
	sn := demoSnapshot()

	normalize := func(r *Report) string {
		r.RunID = ""
		r.GeneratedAt = time.Time{}
		b, err := json.Marshal(struct {
			Months []MonthlyAggregate
			Dims   map[Dimension]DimensionReport
		}{r.Months, r.ByDimension})
		require.NoError(t, err)
		return string(b)
	}

	var first string
	for _, workers := range []int{1, 2, 7} {
		p := NewPipeline(zap.NewNop())
		p.Workers = workers
		report, err := p.Run(context.Background(), sn)
		require.NoError(t, err)

		got := normalize(report)
		if first == "" {
			first = got
			continue
		}
		assert.Equal(t, first, got, "workers=%d must not change the aggregates", workers)
	}
}

func TestPipelineRun_EmptySnapshot(t *testing.T) {
	report, err := NewPipeline(nil).Run(context.Background(), NewSnapshot(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, report.Months)
	assert.Empty(t, report.Drift)
	assert.NotEmpty(t, report.RunID)
}

func TestPipelineRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(zap.NewNop()).Run(ctx, demoSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyInvariants_DetectsTampering(t *testing.T) {
	report, err := NewPipeline(zap.NewNop()).Run(context.Background(), demoSnapshot())
	require.NoError(t, err)
	require.Empty(t, VerifyInvariants(report))

	// Break partition completeness on one month
	report.Months[0].Total.Count++
	findings := VerifyInvariants(report)
	assert.NotEmpty(t, findings)
}
