package watcher

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trend_trader/internal/models"
	"trend_trader/internal/quantity"
	"trend_trader/internal/risk"
)

// manageRisk is the IN_POSITION branch: evaluate the policy against the
// latest price and execute any exit it asks for.
func (w *Watcher) manageRisk(ctx context.Context) error {
	price, err := w.exchange.Price(ctx, w.config.Symbol)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}
	w.metrics.LastPrice.Set(price.InexactFloat64())

	d := w.policy.Evaluate(w.state, price)
	w.log.Debug("Risk check",
		zap.String("price", price.String()),
		zap.String("stop", d.Stop.String()),
		zap.String("target", d.Target.String()),
		zap.Stringer("action", d.Action))

	if d.AdjustStop && !w.state.StopAdjusted {
		w.state.StopAdjusted = true
		w.persist()
		w.metrics.Decisions.WithLabelValues("stop_raised").Inc()
		w.journal.Notify(fmt.Sprintf("Stop-loss raised to %s", d.Stop.StringFixed(2)))
	}

	if d.Action == risk.Hold {
		w.metrics.Decisions.WithLabelValues("hold").Inc()
		return nil
	}
	return w.exit(ctx, price, d)
}

// exit sells d.Fraction of the live base balance. A failed or unsubmittable
// sell leaves the state untouched so the same decision is retried next poll.
func (w *Watcher) exit(ctx context.Context, price decimal.Decimal, d risk.Decision) error {
	filters, err := w.exchange.Filters(ctx, w.config.Symbol)
	if err != nil {
		return fmt.Errorf("fetch filters: %w", err)
	}
	base := w.freeBalance(ctx, w.config.BaseAsset)

	qty, err := quantity.Normalize(base.Mul(d.Fraction), price, filters)
	if err != nil {
		w.metrics.Orders.WithLabelValues(string(models.SideSell), "skipped").Inc()
		w.journal.LimitedWarn("sell_unsubmittable", "Exit quantity not submittable",
			zap.String("reason", d.Reason),
			zap.String("balance", base.String()),
			zap.Error(err))
		return nil
	}

	res, err := w.submit(ctx, models.SideSell, qty, price, filters)
	if err != nil {
		w.metrics.Orders.WithLabelValues(string(models.SideSell), "failed").Inc()
		w.journal.Limited("sell_failed", "Sell order failed", zap.String("reason", d.Reason), zap.Error(err))
		return nil
	}
	w.metrics.Orders.WithLabelValues(string(models.SideSell), "filled").Inc()
	w.metrics.ExitReasons.WithLabelValues(d.Reason).Inc()
	w.metrics.Decisions.WithLabelValues(d.Action.String()).Inc()

	fill := fillPrice(res, price)
	entry := w.state.EntryPrice
	pnl := PnL(entry, fill, qty, decimal.NewFromFloat(w.config.Commission))

	w.state = w.policy.Settle(w.state, d)
	w.persist()

	outcome := tradeOutcome(entry, fill)
	w.log.Info("Exit filled",
		zap.String("reason", d.Reason),
		zap.String("qty", qty.String()),
		zap.String("fill", fill.String()),
		zap.String("entry", entry.String()),
		zap.String("pnl", pnl.String()),
		zap.String("outcome", outcome),
		zap.Bool("still_in_position", w.state.InPosition))
	w.journal.Notify(fmt.Sprintf("SELL %s %s @ %s (%s, %s %s %s)",
		qty.String(), w.config.Symbol, fill.String(), d.Reason, outcome, pnl.StringFixed(2), w.config.QuoteAsset))
	return nil
}

// tradeOutcome labels an exit by price alone; break-even counts as profit.
func tradeOutcome(entry, fill decimal.Decimal) string {
	if fill.GreaterThanOrEqual(entry) {
		return "profit"
	}
	return "loss"
}

// PnL is the commission-adjusted result of selling qty bought at entry:
// (sell*(1-c) - entry*(1+c)) * qty.
func PnL(entry, sell, qty, commission decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	perUnit := sell.Mul(one.Sub(commission)).Sub(entry.Mul(one.Add(commission)))
	return perUnit.Mul(qty)
}
