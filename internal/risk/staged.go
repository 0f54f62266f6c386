package risk

import (
	"github.com/shopspring/decimal"

	"trend_trader/internal/models"
)

// Staged sells PartialFraction at the first target, then moves the risk
// reference to firstTarget*FirstStop. The stop-loss and the second target
// are computed from that reference afterwards.
type Staged struct {
	stopLoss      decimal.Decimal
	firstTrigger  decimal.Decimal
	firstStop     decimal.Decimal
	secondTrigger decimal.Decimal
	partial       decimal.Decimal
}

func NewStaged(p Params) *Staged {
	return &Staged{
		stopLoss:      decimal.NewFromFloat(p.StopLossMult),
		firstTrigger:  decimal.NewFromFloat(p.FirstTrigger),
		firstStop:     decimal.NewFromFloat(p.FirstStop),
		secondTrigger: decimal.NewFromFloat(p.SecondTrigger),
		partial:       decimal.NewFromFloat(p.PartialFraction),
	}
}

func (s *Staged) Name() string { return PolicyStaged }

func (s *Staged) Evaluate(state models.PositionState, price decimal.Decimal) Decision {
	ref := state.RiskReference
	d := Decision{
		Action: Hold,
		Stop:   ref.Mul(s.stopLoss),
	}

	if price.LessThanOrEqual(d.Stop) {
		d.Action = ExitAll
		d.Reason = ReasonStopLoss
		d.Fraction = one
		return d
	}

	if !state.PartialExitDone {
		d.Target = ref.Mul(s.firstTrigger)
		if price.GreaterThanOrEqual(d.Target) {
			d.Action = ExitPartial
			d.Reason = ReasonFirstTarget
			d.Fraction = s.partial
		}
		return d
	}

	d.Target = ref.Mul(s.secondTrigger)
	if price.GreaterThanOrEqual(d.Target) {
		d.Action = ExitAll
		d.Reason = ReasonSecondTarget
		d.Fraction = one
	}
	return d
}

// NextReference is the risk reference after the first target has been sold.
func (s *Staged) NextReference(ref decimal.Decimal) decimal.Decimal {
	return ref.Mul(s.firstTrigger).Mul(s.firstStop)
}

func (s *Staged) Settle(state models.PositionState, d Decision) models.PositionState {
	switch d.Action {
	case ExitAll:
		return closed()
	case ExitPartial:
		next := state
		next.PartialExitDone = true
		next.RiskReference = s.NextReference(state.RiskReference)
		return next
	default:
		return state
	}
}
