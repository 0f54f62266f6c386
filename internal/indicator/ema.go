// Package indicator computes moving averages over a closing-price series.
package indicator

import (
	"fmt"

	"trend_trader/internal/models"
)

// EMA returns the exponential moving average of values, index-aligned with the input.
//
// The first value seeds the average and every later point applies
// alpha = 2/(period+1), the same recursion pandas uses for ewm(span, adjust=False).
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be a positive integer, got %d", period)
	}
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out, nil
	}

	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out, nil
}

// Closes extracts the close prices of a candle series as float64.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

// Pair holds the short and long EMA of one price series.
type Pair struct {
	Short []float64
	Long  []float64
}

// NewPair recomputes both averages from scratch.
func NewPair(candles []models.Candle, shortPeriod, longPeriod int) (Pair, error) {
	closes := Closes(candles)
	short, err := EMA(closes, shortPeriod)
	if err != nil {
		return Pair{}, fmt.Errorf("short ema: %w", err)
	}
	long, err := EMA(closes, longPeriod)
	if err != nil {
		return Pair{}, fmt.Errorf("long ema: %w", err)
	}
	return Pair{Short: short, Long: long}, nil
}

// Last returns the most recent short and long values.
func (p Pair) Last() (short, long float64) {
	n := len(p.Short)
	if n == 0 || len(p.Long) != n {
		return 0, 0
	}
	return p.Short[n-1], p.Long[n-1]
}

// ShortAbove reports whether the latest short EMA is above the latest long EMA.
func (p Pair) ShortAbove() bool {
	s, l := p.Last()
	return len(p.Short) > 0 && s > l
}
