package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(m string, cpf CPF, status Status, cost, revenue float64) ReconciledLine {
	return ReconciledLine{
		Month:      month(m),
		CPF:        cpf,
		Status:     status,
		ClaimTotal: dec(cost),
		Revenue:    dec(revenue),
		AgeBracket: Bracket00to18,
	}
}

func TestMonthlyAccumulator_PartitionCompleteness(t *testing.T) {
	ma := NewMonthlyAccumulator()
	ma.Add(line("2025-01", "A", StatusActive, 100, 50))
	ma.Add(line("2025-01", "B", StatusActive, 200, 80))
	ma.Add(line("2025-01", "C", StatusInactive, 30, 10))
	ma.Add(line("2025-01", "D", StatusUnmatched, 70, 0))
	ma.Add(line("2025-02", "A", StatusActive, 40, 50))

	aggs := ma.Aggregates()
	require.Len(t, aggs, 2)

	jan := aggs[0]
	assert.Equal(t, "2025-01", jan.Month.String())
	assert.Equal(t, 2, jan.Active.Count)
	assert.Equal(t, 1, jan.Inactive.Count)
	assert.Equal(t, 1, jan.Unmatched.Count)
	assert.Equal(t, jan.Active.Count+jan.Inactive.Count+jan.Unmatched.Count, jan.Total.Count)

	assert.True(t, jan.Total.Cost.Equal(dec(400)), "total cost = %s", jan.Total.Cost)
	assert.True(t, jan.Active.Cost.Add(jan.Inactive.Cost).Add(jan.Unmatched.Cost).Equal(jan.Total.Cost))
	assert.True(t, jan.Total.Revenue.Equal(dec(140)), "total revenue = %s", jan.Total.Revenue)

	feb := aggs[1]
	assert.Equal(t, "2025-02", feb.Month.String())
	assert.Equal(t, 1, feb.Total.Count)
}

func TestMonthlyAccumulator_MergeIsCommutative(t *testing.T) {
	// GIVEN: The same lines split across two shards, merged in both orders
	build := func(first, second []ReconciledLine) []MonthlyAggregate {
		a, b := NewMonthlyAccumulator(), NewMonthlyAccumulator()
		for _, l := range first {
			a.Add(l)
		}
		for _, l := range second {
			b.Add(l)
		}
		a.Merge(b)
		return a.Aggregates()
	}

	shard1 := []ReconciledLine{
		line("2025-01", "A", StatusActive, 100, 50),
		line("2025-02", "A", StatusInactive, 10, 50),
	}
	shard2 := []ReconciledLine{
		line("2025-01", "B", StatusUnmatched, 75.5, 0),
	}

	left := build(shard1, shard2)
	right := build(shard2, shard1)

	require.Equal(t, len(left), len(right))
	for i := range left {
		assert.Equal(t, left[i].Month, right[i].Month)
		assert.Equal(t, left[i].Total.Count, right[i].Total.Count)
		assert.True(t, left[i].Total.Cost.Equal(right[i].Total.Cost))
		assert.True(t, left[i].Total.Revenue.Equal(right[i].Total.Revenue))
	}
}

func TestMetricsClaimsRatio(t *testing.T) {
	m := Metrics{Cost: dec(70), Revenue: dec(100)}
	ratio := m.ClaimsRatio()
	require.NotNil(t, ratio)
	assert.True(t, ratio.Equal(dec(0.7)), "ratio = %s", ratio)

	zero := Metrics{Cost: dec(70), Revenue: decimal.Zero}
	assert.Nil(t, zero.ClaimsRatio(), "zero revenue must yield nil, not a division by zero")
}

func TestMonthlyAccumulator_LookupMissingMonthIsZero(t *testing.T) {
	ma := NewMonthlyAccumulator()
	agg := ma.Lookup(month("2025-06"))
	assert.Equal(t, 0, agg.Total.Count)
	assert.True(t, agg.Total.Cost.IsZero())
}
