package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StateVersion is the schema version written to the state file.
const StateVersion = "2"

// PositionState is the durable record of the single position this bot manages.
//
// In Go, structs are collections of fields.
// The text inside the backticks (e.g. `json:"in_position"`) are "struct tags".
// They tell the JSON encoder/decoder which keys to map to these fields.
type PositionState struct {
	Version         string          `json:"version"`
	InPosition      bool            `json:"in_position"`       // True while we hold the base asset
	EntryPrice      decimal.Decimal `json:"entry_price"`       // Average fill price of the buy (cost basis)
	RiskReference   decimal.Decimal `json:"risk_reference"`    // Price the stop and targets are computed from
	PartialExitDone bool            `json:"partial_exit_done"` // Staged policy: first half already sold
	StopAdjusted    bool            `json:"stop_adjusted"`     // Simple policy: stop-loss ratchet applied
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

// NewPositionState returns the "no position" record.
func NewPositionState() PositionState {
	return PositionState{
		Version:       StateVersion,
		EntryPrice:    decimal.Zero,
		RiskReference: decimal.Zero,
	}
}

// OpenPosition returns the record for a freshly filled buy.
func OpenPosition(fillPrice decimal.Decimal) PositionState {
	s := NewPositionState()
	s.InPosition = true
	s.EntryPrice = fillPrice
	s.RiskReference = fillPrice
	return s
}

// Valid reports whether the record respects the flat-state invariant and,
// when a position is open, carries usable prices.
func (s PositionState) Valid() bool {
	if !s.InPosition {
		return s.EntryPrice.IsZero() && s.RiskReference.IsZero() && !s.PartialExitDone && !s.StopAdjusted
	}
	return s.EntryPrice.IsPositive() && s.RiskReference.IsPositive()
}

// Equal compares the decision-relevant fields (UpdatedAt is ignored).
func (s PositionState) Equal(o PositionState) bool {
	return s.Version == o.Version &&
		s.InPosition == o.InPosition &&
		s.EntryPrice.Equal(o.EntryPrice) &&
		s.RiskReference.Equal(o.RiskReference) &&
		s.PartialExitDone == o.PartialExitDone &&
		s.StopAdjusted == o.StopAdjusted
}

// PendingSignal marks a bullish crossover that still waits for its candle to close.
// It lives in memory only.
type PendingSignal struct {
	SignalTime time.Time
}
