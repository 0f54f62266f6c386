package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trend_trader/internal/config"
	"trend_trader/internal/indicator"
	"trend_trader/internal/journal"
	"trend_trader/internal/market"
	"trend_trader/internal/metrics"
	"trend_trader/internal/models"
	"trend_trader/internal/risk"
	"trend_trader/internal/signal"
)

// StateStore persists the single position record.
type StateStore interface {
	Load() (models.PositionState, error)
	Save(s models.PositionState) error
}

// Phase is the position state machine's current state.
type Phase string

const (
	PhaseIdle                 Phase = "IDLE"
	PhaseAwaitingConfirmation Phase = "AWAITING_CONFIRMATION"
	PhaseInPosition           Phase = "IN_POSITION"
)

// Watcher runs the fetch, decide, execute, persist cycle for one instrument.
// It is not safe for concurrent use: exactly one loop owns it.
type Watcher struct {
	exchange market.Exchange
	store    StateStore
	policy   risk.Policy
	journal  *journal.Journal
	metrics  *metrics.Metrics
	log      *zap.Logger
	config   *config.Config

	state   models.PositionState
	pending *models.PendingSignal
}

// New loads the persisted state. An unreadable state file is reported and
// treated as "no position".
func New(cfg *config.Config, exchange market.Exchange, store StateStore, policy risk.Policy, j *journal.Journal, m *metrics.Metrics) *Watcher {
	if m == nil {
		m = metrics.New()
	}
	w := &Watcher{
		exchange: exchange,
		store:    store,
		policy:   policy,
		journal:  j,
		metrics:  m,
		log:      j.Logger(),
		config:   cfg,
	}

	s, err := store.Load()
	if err != nil {
		j.Warn("Could not load state, starting without a position", zap.Error(err))
	}
	if !s.Valid() {
		s = models.NewPositionState()
	}
	w.state = s
	w.metrics.SetPosition(s.InPosition, s.EntryPrice, s.RiskReference)
	return w
}

// Phase derives the state machine position from the durable and pending records.
func (w *Watcher) Phase() Phase {
	switch {
	case w.state.InPosition:
		return PhaseInPosition
	case w.pending != nil:
		return PhaseAwaitingConfirmation
	default:
		return PhaseIdle
	}
}

// State returns a copy of the in-memory position record.
func (w *Watcher) State() models.PositionState {
	return w.state
}

// Startup announces the bot, syncs the venue clock and logs balances and state.
func (w *Watcher) Startup(ctx context.Context) {
	w.journal.Record("Bot started",
		zap.String("exchange", w.exchange.Name()),
		zap.String("symbol", w.config.Symbol),
		zap.String("interval", w.config.Interval),
		zap.String("policy", w.policy.Name()),
	)

	if ts, ok := w.exchange.(market.TimeSyncer); ok {
		offset, err := ts.SyncTime(ctx)
		if err != nil {
			w.journal.Limited("time_sync", "Server time sync failed", zap.Error(err))
		} else {
			w.log.Info("Server time synced", zap.Duration("offset", offset))
		}
	}

	balances, err := w.exchange.Balances(ctx)
	if err != nil {
		w.journal.Limited("balances", "Could not read balances", zap.Error(err))
	} else {
		for asset, amount := range balances {
			w.log.Info("Balance", zap.String("asset", asset), zap.String("free", amount.String()))
		}
	}

	w.log.Info("Loaded state",
		zap.Bool("in_position", w.state.InPosition),
		zap.String("entry_price", w.state.EntryPrice.String()),
		zap.String("risk_reference", w.state.RiskReference.String()),
		zap.Bool("partial_exit_done", w.state.PartialExitDone),
		zap.Bool("stop_adjusted", w.state.StopAdjusted),
	)
}

// Poll runs one iteration. A returned error is a transient I/O failure; the
// caller backs off and polls again. Decision outcomes (no signal, no funds,
// order refused) are not errors.
func (w *Watcher) Poll(ctx context.Context) error {
	err := w.poll(ctx)
	switch {
	case errors.Is(err, errInsufficientData):
		w.metrics.Polls.WithLabelValues("insufficient_data").Inc()
		return nil
	case err != nil:
		w.metrics.Polls.WithLabelValues("error").Inc()
		return err
	}
	w.metrics.Polls.WithLabelValues("ok").Inc()
	return nil
}

var errInsufficientData = errors.New("insufficient candle data")

func (w *Watcher) poll(ctx context.Context) error {
	candles, err := w.exchange.Candles(ctx, w.config.Symbol, w.config.Interval, w.config.CandleLimit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if !signal.Sufficient(candles, w.config.EmaLong) {
		w.log.Warn("Not enough candles, waiting",
			zap.Int("have", len(candles)),
			zap.Int("need", signal.RequiredCandles(w.config.EmaLong)),
		)
		return errInsufficientData
	}

	emas, err := indicator.NewPair(candles, w.config.EmaShort, w.config.EmaLong)
	if err != nil {
		return err
	}
	short, long := emas.Last()
	w.metrics.EMAShort.Set(short)
	w.metrics.EMALong.Set(long)
	w.log.Debug("Poll",
		zap.String("phase", string(w.Phase())),
		zap.Time("last_candle", candles[len(candles)-1].OpenTime),
		zap.Float64("ema_short", short),
		zap.Float64("ema_long", long),
	)

	// An open position always wins over entry logic.
	if w.state.InPosition {
		return w.manageRisk(ctx)
	}
	if w.pending != nil {
		return w.confirm(ctx, candles, emas)
	}
	w.detect(candles, emas)
	return nil
}

// freeBalance fails safe: an unreadable balance is zero.
func (w *Watcher) freeBalance(ctx context.Context, asset string) decimal.Decimal {
	b, err := w.exchange.Balance(ctx, asset)
	if err != nil {
		w.journal.LimitedWarn("balance_"+asset, "Balance unavailable, treating as zero",
			zap.String("asset", asset), zap.Error(err))
		return decimal.Zero
	}
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// persist writes the state. A failure is reported and the in-memory state
// stays authoritative.
func (w *Watcher) persist() {
	if err := w.store.Save(w.state); err != nil {
		w.metrics.PersistFailures.Inc()
		w.journal.Limited("persist", "Could not save state", zap.Error(err))
	}
	w.metrics.SetPosition(w.state.InPosition, w.state.EntryPrice, w.state.RiskReference)
}
