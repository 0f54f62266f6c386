package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trend_trader/internal/indicator"
	"trend_trader/internal/models"
	"trend_trader/internal/quantity"
	"trend_trader/internal/signal"
)

// detect is the IDLE branch.
func (w *Watcher) detect(candles []models.Candle, emas indicator.Pair) {
	cross := signal.Detect(candles, emas)
	if !cross.Bullish {
		w.metrics.Decisions.WithLabelValues("no_signal").Inc()
		return
	}
	w.pending = &models.PendingSignal{SignalTime: cross.SignalTime}
	w.metrics.Decisions.WithLabelValues("signal").Inc()
	w.journal.Record("Bullish crossover detected, waiting for candle close",
		zap.Time("candle", cross.SignalTime))
}

// confirm is the AWAITING_CONFIRMATION branch. The signal is only judged
// once a newer candle than the one that produced it is available.
func (w *Watcher) confirm(ctx context.Context, candles []models.Candle, emas indicator.Pair) error {
	last := candles[len(candles)-1].OpenTime
	if last.Equal(w.pending.SignalTime) {
		w.log.Debug("Waiting for signal candle to close", zap.Time("candle", last))
		return nil
	}

	if !emas.ShortAbove() {
		w.pending = nil
		w.metrics.Decisions.WithLabelValues("invalidated").Inc()
		w.journal.Record("Signal invalidated, short EMA fell back below long EMA")
		return nil
	}
	return w.enter(ctx)
}

// enter sizes and submits the buy. Errors before the sizing decision leave
// the pending signal in place for the next poll.
func (w *Watcher) enter(ctx context.Context) error {
	price, err := w.exchange.Price(ctx, w.config.Symbol)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}
	filters, err := w.exchange.Filters(ctx, w.config.Symbol)
	if err != nil {
		return fmt.Errorf("fetch filters: %w", err)
	}
	quote := w.freeBalance(ctx, w.config.QuoteAsset)
	w.metrics.LastPrice.Set(price.InexactFloat64())

	// Decision point: the signal is consumed whatever happens next.
	w.pending = nil

	minQuote := decimal.NewFromFloat(w.config.MinQuoteBalance)
	if quote.LessThan(minQuote) {
		w.metrics.Decisions.WithLabelValues("insufficient_balance").Inc()
		w.journal.Record("Insufficient balance to open position",
			zap.String("asset", w.config.QuoteAsset),
			zap.String("free", quote.String()),
			zap.String("min", minQuote.String()))
		return nil
	}

	raw := quote.Mul(decimal.NewFromFloat(w.config.BuyBalanceFraction)).Div(price)
	qty, err := quantity.Normalize(raw, price, filters)
	if err != nil {
		w.metrics.Orders.WithLabelValues(string(models.SideBuy), "skipped").Inc()
		w.journal.Record("Buy quantity not submittable", zap.Error(err))
		return nil
	}

	res, err := w.submit(ctx, models.SideBuy, qty, price, filters)
	if err != nil {
		w.metrics.Orders.WithLabelValues(string(models.SideBuy), "failed").Inc()
		w.journal.Limited("buy_failed", "Buy order failed", zap.Error(err))
		return nil
	}
	w.metrics.Orders.WithLabelValues(string(models.SideBuy), "filled").Inc()
	w.metrics.Decisions.WithLabelValues("buy").Inc()

	fill := fillPrice(res, price)
	w.state = models.OpenPosition(fill)
	w.persist()

	w.log.Info("Position opened",
		zap.String("qty", qty.String()),
		zap.String("fill", fill.String()),
		zap.String("order_id", res.OrderID))
	w.journal.Notify(fmt.Sprintf("BUY %s %s @ %s", qty.String(), w.config.Symbol, fill.String()))
	return nil
}

// submit enforces the minimum notional locally before calling the venue.
func (w *Watcher) submit(ctx context.Context, side models.Side, qty, price decimal.Decimal, f models.SymbolFilters) (*models.OrderResult, error) {
	if err := quantity.CheckNotional(qty, price, f); err != nil {
		return nil, err
	}
	res, err := w.exchange.PlaceMarketOrder(ctx, models.OrderRequest{
		Symbol:        w.config.Symbol,
		Side:          side,
		Quantity:      qty,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("venue returned no order result")
	}
	return res, nil
}

// fillPrice is the weighted fill average, or the quoted price when the
// venue reported no fills.
func fillPrice(res *models.OrderResult, quoted decimal.Decimal) decimal.Decimal {
	if avg, ok := res.AvgFillPrice(); ok {
		return avg
	}
	return quoted
}
