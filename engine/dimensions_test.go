package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgLine(m string, cpf CPF, status Status, org string, cost float64) ReconciledLine {
	l := line(m, cpf, status, cost, 0)
	l.Organization = org
	return l
}

func buildDimension(lines []ReconciledLine, dim Dimension) ([]DimensionSlice, *MonthlyAccumulator) {
	monthly := NewMonthlyAccumulator()
	da := NewDimensionAccumulator(dim)
	for _, l := range lines {
		monthly.Add(l)
		da.Add(l)
	}
	return da.Slices(monthly), monthly
}

func TestDimensionSlices_ConsistencyWithParent(t *testing.T) {
	lines := []ReconciledLine{
		orgLine("2025-01", "A", StatusActive, "Org A", 100),
		orgLine("2025-01", "B", StatusActive, "Org B", 300),
		orgLine("2025-01", "C", StatusInactive, "Org A", 50),
		orgLine("2025-01", "D", StatusUnmatched, "", 25),
	}
	slices, monthly := buildDimension(lines, DimOrganization)

	// Per-status slice sums must reduce to the monthly status totals
	sums := make(map[Status]Metrics)
	for _, s := range slices {
		if s.Status == StatusTotal {
			continue
		}
		cur, ok := sums[s.Status]
		if !ok {
			cur = NewMetrics()
		}
		sums[s.Status] = cur.Merge(s.Metrics)
	}
	parent := monthly.Lookup(month("2025-01"))
	assert.Equal(t, parent.Active.Count, sums[StatusActive].Count)
	assert.True(t, sums[StatusActive].Cost.Equal(parent.Active.Cost))
	assert.Equal(t, parent.Inactive.Count, sums[StatusInactive].Count)
	assert.Equal(t, parent.Unmatched.Count, sums[StatusUnmatched].Count)
}

func TestDimensionSlices_Percentages(t *testing.T) {
	lines := []ReconciledLine{
		orgLine("2025-01", "A", StatusActive, "Org A", 100),
		orgLine("2025-01", "B", StatusActive, "Org B", 300),
	}
	slices, _ := buildDimension(lines, DimOrganization)

	var orgA *DimensionSlice
	for i := range slices {
		if slices[i].Value == "Org A" && slices[i].Status == StatusActive {
			orgA = &slices[i]
		}
	}
	require.NotNil(t, orgA)

	require.NotNil(t, orgA.PctCount)
	assert.True(t, orgA.PctCount.Equal(dec(0.5)), "pct_count = %s", orgA.PctCount)
	require.NotNil(t, orgA.PctCost)
	assert.True(t, orgA.PctCost.Equal(dec(0.25)), "pct_cost = %s", orgA.PctCost)
}

func TestDimensionSlices_PercentageWellFormedness(t *testing.T) {
	lines := []ReconciledLine{
		orgLine("2025-01", "A", StatusActive, "Org A", 100),
		orgLine("2025-01", "B", StatusActive, "Org B", 300),
		orgLine("2025-02", "C", StatusInactive, "Org A", 10),
		orgLine("2025-02", "D", StatusUnmatched, "", 0),
	}
	slices, _ := buildDimension(lines, DimOrganization)

	one := dec(1)
	for _, s := range slices {
		if s.PctCount != nil {
			assert.False(t, s.PctCount.IsNegative(), "%s/%s/%s pct_count negative", s.Month, s.Value, s.Status)
			assert.False(t, s.PctCount.GreaterThan(one), "%s/%s/%s pct_count > 1", s.Month, s.Value, s.Status)
		}
		if s.PctCost != nil {
			assert.False(t, s.PctCost.IsNegative())
			assert.False(t, s.PctCost.GreaterThan(one))
		}
	}
}

func TestDimensionSlices_ZeroDenominatorYieldsNil(t *testing.T) {
	// GIVEN: A slice whose parent cost is zero (claims with zero amounts)
	lines := []ReconciledLine{
		orgLine("2025-01", "A", StatusActive, "Org A", 0),
	}
	slices, _ := buildDimension(lines, DimOrganization)

	require.NotEmpty(t, slices)
	for _, s := range slices {
		assert.Nil(t, s.PctCost, "zero parent cost must yield nil, got %v", s.PctCost)
		require.NotNil(t, s.PctCount, "count parent is nonzero")
		assert.True(t, s.PctCount.Equal(dec(1)))
	}
}

func TestDimensionSlices_TotalPseudoStatus(t *testing.T) {
	lines := []ReconciledLine{
		orgLine("2025-01", "A", StatusActive, "Org A", 100),
		orgLine("2025-01", "B", StatusInactive, "Org A", 100),
		orgLine("2025-01", "C", StatusActive, "Org B", 200),
	}
	slices, _ := buildDimension(lines, DimOrganization)

	var total *DimensionSlice
	for i := range slices {
		if slices[i].Value == "Org A" && slices[i].Status == StatusTotal {
			total = &slices[i]
		}
	}
	require.NotNil(t, total, "every dimension value gets a total row")

	assert.Equal(t, 2, total.Count)
	assert.True(t, total.Cost.Equal(dec(200)))
	require.NotNil(t, total.PctCost)
	assert.True(t, total.PctCost.Equal(dec(0.5)), "200 of 400 globally")
}

func TestDimensionSlices_AgeBracketAxis(t *testing.T) {
	l1 := line("2025-01", "A", StatusActive, 100, 0)
	l1.AgeBracket = Bracket34to38
	l2 := line("2025-01", "B", StatusActive, 50, 0)
	l2.AgeBracket = Bracket59plus

	slices, _ := buildDimension([]ReconciledLine{l1, l2}, DimAgeBracket)

	values := map[string]bool{}
	for _, s := range slices {
		values[s.Value] = true
	}
	assert.True(t, values["34-38"])
	assert.True(t, values["59+"])
}
