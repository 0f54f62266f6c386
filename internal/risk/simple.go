package risk

import (
	"github.com/shopspring/decimal"

	"trend_trader/internal/models"
)

// Simple exits everything at the take-profit or the stop-loss. Once price
// reaches AdjustTrigger the stop is raised to AdjustTo for the rest of the trade.
type Simple struct {
	takeProfit    decimal.Decimal
	stopLoss      decimal.Decimal
	adjustTrigger decimal.Decimal
	adjustTo      decimal.Decimal
}

func NewSimple(p Params) *Simple {
	return &Simple{
		takeProfit:    decimal.NewFromFloat(p.TakeProfitMult),
		stopLoss:      decimal.NewFromFloat(p.StopLossMult),
		adjustTrigger: decimal.NewFromFloat(p.AdjustTrigger),
		adjustTo:      decimal.NewFromFloat(p.AdjustTo),
	}
}

func (s *Simple) Name() string { return PolicySimple }

// raisedStop never sits below the initial stop, so applying it can only tighten.
func (s *Simple) raisedStop(ref decimal.Decimal) decimal.Decimal {
	return decimal.Max(ref.Mul(s.stopLoss), ref.Mul(s.adjustTo))
}

func (s *Simple) Evaluate(state models.PositionState, price decimal.Decimal) Decision {
	ref := state.RiskReference
	d := Decision{
		Action:   Hold,
		Fraction: one,
		Target:   ref.Mul(s.takeProfit),
		Stop:     ref.Mul(s.stopLoss),
	}

	switch {
	case state.StopAdjusted:
		d.Stop = s.raisedStop(ref)
	case price.GreaterThanOrEqual(ref.Mul(s.adjustTrigger)):
		d.AdjustStop = true
		d.Stop = s.raisedStop(ref)
	}

	switch {
	case price.LessThanOrEqual(d.Stop):
		d.Action = ExitAll
		d.Reason = ReasonStopLoss
	case price.GreaterThanOrEqual(d.Target):
		d.Action = ExitAll
		d.Reason = ReasonTakeProfit
	}
	return d
}

func (s *Simple) Settle(state models.PositionState, d Decision) models.PositionState {
	if d.Action == ExitAll {
		return closed()
	}
	return state
}
