package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAggregates(t *testing.T) {
	stats := computeAggregates([]string{"first 100", "then 250", "finally 150"})
	require.NotNil(t, stats)

	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 500.0, stats.Sum)
	assert.Equal(t, 166.67, stats.Average)
	assert.Equal(t, 150.0, stats.Median)
	assert.Empty(t, stats.Currency)
}

func TestComputeAggregatesUncommaedThousands(t *testing.T) {
	// A 4+ digit amount without thousands separators is one token, not a
	// 3-digit prefix plus a remainder.
	stats := computeAggregates([]string{"Total: 1500"})
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1500.0, stats.Sum)

	stats = computeAggregates([]string{"invoice 12500.75 plus fee 300"})
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 12800.75, stats.Sum)
}

func TestComputeAggregatesCurrency(t *testing.T) {
	t.Run("consistent symbol", func(t *testing.T) {
		stats := computeAggregates([]string{"total $1,250.00", "shipping $49.50"})
		require.NotNil(t, stats)
		assert.Equal(t, "$", stats.Currency)
		assert.Equal(t, 1299.5, stats.Sum)
	})

	t.Run("mixed symbols drop currency", func(t *testing.T) {
		stats := computeAggregates([]string{"paid $100", "owed €200"})
		require.NotNil(t, stats)
		assert.Empty(t, stats.Currency)
		assert.Equal(t, 2, stats.Count)
	})
}

func TestComputeAggregatesEvenCount(t *testing.T) {
	stats := computeAggregates([]string{"10 and 20", "30 and 40"})
	require.NotNil(t, stats)
	assert.Equal(t, 25.0, stats.Median)
}

func TestComputeAggregatesNoNumbers(t *testing.T) {
	assert.Nil(t, computeAggregates([]string{"no numbers here", "none at all"}))
	assert.Nil(t, computeAggregates(nil))
}
