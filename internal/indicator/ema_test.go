package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend_trader/internal/models"
)

func TestEMA_MatchesAdjustFalseRecursion(t *testing.T) {
	values := []float64{10, 11, 12, 13}
	got, err := EMA(values, 3)
	require.NoError(t, err)

	// alpha = 0.5
	want := []float64{10, 10.5, 11.25, 12.125}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}

func TestEMA_FlatSeriesStaysFlat(t *testing.T) {
	got, err := EMA([]float64{5, 5, 5, 5, 5}, 4)
	require.NoError(t, err)
	for _, v := range got {
		assert.InDelta(t, 5.0, v, 1e-12)
	}
}

func TestEMA_InvalidPeriod(t *testing.T) {
	_, err := EMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestEMA_Empty(t *testing.T) {
	got, err := EMA(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewPair_Deterministic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var candles []models.Candle
	for i := 0; i < 30; i++ {
		candles = append(candles, models.Candle{
			OpenTime: start.Add(time.Duration(i) * 30 * time.Minute),
			Close:    decimal.NewFromInt(int64(100 + i%7)),
		})
	}

	a, err := NewPair(candles, 5, 10)
	require.NoError(t, err)
	b, err := NewPair(candles, 5, 10)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Short, len(candles))
	assert.Len(t, a.Long, len(candles))
}
