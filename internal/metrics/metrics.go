// Package metrics exposes the bot's Prometheus series:
//
//	bot_polls_total{result}          poll outcomes (ok|insufficient_data|error)
//	bot_decisions_total{decision}    state machine transitions and holds
//	bot_orders_total{side,result}    market orders (filled|failed|skipped)
//	bot_exit_reasons_total{reason}   exits by risk reason
//	bot_persist_failures_total       state file writes that failed
//	bot_in_position                  1 while holding the base asset
//	bot_entry_price, bot_risk_reference, bot_last_price, bot_ema_short, bot_ema_long
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metrics groups the collectors. Each instance registers into its own
// registry so tests never collide with the default one.
type Metrics struct {
	Registry *prometheus.Registry

	Polls           *prometheus.CounterVec
	Decisions       *prometheus.CounterVec
	Orders          *prometheus.CounterVec
	ExitReasons     *prometheus.CounterVec
	PersistFailures prometheus.Counter

	InPosition    prometheus.Gauge
	EntryPrice    prometheus.Gauge
	RiskReference prometheus.Gauge
	LastPrice     prometheus.Gauge
	EMAShort      prometheus.Gauge
	EMALong       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bot_polls_total", Help: "Poll cycles by outcome"},
			[]string{"result"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bot_decisions_total", Help: "Decisions taken"},
			[]string{"decision"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bot_orders_total", Help: "Orders placed"},
			[]string{"side", "result"},
		),
		ExitReasons: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bot_exit_reasons_total", Help: "Exits split by reason"},
			[]string{"reason"},
		),
		PersistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "bot_persist_failures_total", Help: "Failed state file writes"},
		),
		InPosition:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_in_position", Help: "1 while a position is open"}),
		EntryPrice:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_entry_price", Help: "Cost basis of the open position"}),
		RiskReference: prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_risk_reference", Help: "Price stops and targets are computed from"}),
		LastPrice:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_last_price", Help: "Last observed price"}),
		EMAShort:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_ema_short", Help: "Short EMA at the last candle"}),
		EMALong:       prometheus.NewGauge(prometheus.GaugeOpts{Name: "bot_ema_long", Help: "Long EMA at the last candle"}),
	}
	m.Registry.MustRegister(
		m.Polls, m.Decisions, m.Orders, m.ExitReasons, m.PersistFailures,
		m.InPosition, m.EntryPrice, m.RiskReference, m.LastPrice, m.EMAShort, m.EMALong,
	)
	return m
}

// SetPosition mirrors the persisted position into the gauges.
func (m *Metrics) SetPosition(in bool, entry, reference decimal.Decimal) {
	if in {
		m.InPosition.Set(1)
	} else {
		m.InPosition.Set(0)
	}
	m.EntryPrice.Set(entry.InexactFloat64())
	m.RiskReference.Set(reference.InexactFloat64())
}

// Handler serves this instance's registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve runs the /metrics endpoint until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server stopped", zap.Error(err))
	}
}
