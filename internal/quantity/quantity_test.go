package quantity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend_trader/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundDown(t *testing.T) {
	tests := []struct {
		raw, step, want string
	}{
		{"0.12345", "0.001", "0.123"},
		{"0.12399", "0.001", "0.123"},
		{"0.12345", "0.00001000", "0.12345"},
		{"3.7", "1", "3"},
		{"15", "10", "10"},
		{"9", "10", "0"},
		{"0.75", "0.25", "0.75"},
		{"0.8", "0.25", "0.75"},
	}
	for _, tt := range tests {
		got := RoundDown(d(tt.raw), d(tt.step))
		assert.True(t, got.Equal(d(tt.want)), "%s step %s: got %s", tt.raw, tt.step, got)
	}
	assert.True(t, RoundDown(d("0.12345"), decimal.Zero).Equal(d("0.12345")))
}

func TestNormalize_CoarseStep(t *testing.T) {
	f := models.SymbolFilters{StepSize: d("10"), MinNotional: d("1")}

	qty, err := Normalize(d("15"), d("2"), f)
	require.NoError(t, err)
	assert.Equal(t, "10", qty.String())
}

func TestNormalize(t *testing.T) {
	f := models.SymbolFilters{StepSize: d("0.001"), MinNotional: d("10")}

	qty, err := Normalize(d("0.12345"), d("100"), f)
	require.NoError(t, err)
	assert.True(t, qty.Equal(d("0.123")))
}

func TestNormalize_BelowMinNotional(t *testing.T) {
	f := models.SymbolFilters{StepSize: d("0.001"), MinNotional: d("10")}

	_, err := Normalize(d("0.05"), d("100"), f)
	assert.ErrorIs(t, err, ErrBelowMinNotional)
}

func TestNormalize_ZeroAfterRounding(t *testing.T) {
	f := models.SymbolFilters{StepSize: d("0.001"), MinNotional: d("10")}

	_, err := Normalize(d("0.0009"), d("50000"), f)
	assert.ErrorIs(t, err, ErrZeroQuantity)
}

func TestCheckNotional_ExactMinimumPasses(t *testing.T) {
	f := models.SymbolFilters{MinNotional: d("10")}
	assert.NoError(t, CheckNotional(d("0.1"), d("100"), f))
}
