// Package signal detects EMA crossovers on closed candles.
package signal

import (
	"time"

	"trend_trader/internal/indicator"
	"trend_trader/internal/models"
)

// Crossover is the detector output for one poll.
type Crossover struct {
	Bullish    bool
	SignalTime time.Time // open time of the last candle, used as the confirmation token
}

// RequiredCandles is the minimum series length for a long period.
func RequiredCandles(longPeriod int) int {
	return longPeriod + 2
}

// Sufficient reports whether there is enough history to evaluate a signal.
func Sufficient(candles []models.Candle, longPeriod int) bool {
	return len(candles) >= RequiredCandles(longPeriod)
}

// IsBullishCross is true iff short[-2] < long[-2] and short[-1] > long[-1].
func IsBullishCross(short, long []float64) bool {
	n := len(short)
	if n < 2 || len(long) != n {
		return false
	}
	return short[n-2] < long[n-2] && short[n-1] > long[n-1]
}

// Detect compares the last two EMA pairs of the series. It has no side effects.
func Detect(candles []models.Candle, emas indicator.Pair) Crossover {
	if len(candles) == 0 {
		return Crossover{}
	}
	return Crossover{
		Bullish:    IsBullishCross(emas.Short, emas.Long),
		SignalTime: candles[len(candles)-1].OpenTime,
	}
}
