// Package risk decides when an open position must be reduced or closed.
//
// Two policies share one interface: Simple (take-profit, stop-loss and a
// one-shot stop ratchet) and Staged (stop-loss, a partial first target that
// moves the risk reference up, then a full second target). Both check the
// stop-loss first.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trend_trader/internal/models"
)

// Action tells the watcher what to do with the position.
type Action int

const (
	Hold Action = iota
	ExitPartial
	ExitAll
)

func (a Action) String() string {
	switch a {
	case ExitPartial:
		return "exit_partial"
	case ExitAll:
		return "exit_all"
	default:
		return "hold"
	}
}

// Exit reasons.
const (
	ReasonStopLoss     = "stop_loss"
	ReasonTakeProfit   = "take_profit"
	ReasonFirstTarget  = "first_target"
	ReasonSecondTarget = "second_target"
)

// Decision is the outcome of evaluating one price against the position.
type Decision struct {
	Action   Action
	Reason   string
	Fraction decimal.Decimal // share of the live base balance to sell
	Stop     decimal.Decimal
	Target   decimal.Decimal
	// AdjustStop is set when the simple-policy ratchet fires on this price.
	AdjustStop bool
}

// Policy evaluates prices and settles the position after an exit fill.
type Policy interface {
	Name() string
	Evaluate(state models.PositionState, price decimal.Decimal) Decision
	// Settle returns the state after the exit in d has been filled.
	Settle(state models.PositionState, d Decision) models.PositionState
}

// Params are the multipliers of both policies, relative to the risk reference.
type Params struct {
	TakeProfitMult  float64
	StopLossMult    float64
	AdjustTrigger   float64
	AdjustTo        float64
	FirstTrigger    float64
	FirstStop       float64
	SecondTrigger   float64
	PartialFraction float64
}

// Policy names accepted by New.
const (
	PolicySimple = "simple"
	PolicyStaged = "staged"
)

// New builds the policy selected by configuration.
func New(kind string, p Params) (Policy, error) {
	switch kind {
	case PolicySimple:
		return NewSimple(p), nil
	case PolicyStaged:
		return NewStaged(p), nil
	default:
		return nil, fmt.Errorf("unknown risk policy %q", kind)
	}
}

var one = decimal.NewFromInt(1)

func closed() models.PositionState {
	return models.NewPositionState()
}
