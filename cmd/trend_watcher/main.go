package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trend_trader/internal/config"
	"trend_trader/internal/journal"
	"trend_trader/internal/logger"
	"trend_trader/internal/market"
	"trend_trader/internal/market/alpaca"
	"trend_trader/internal/market/binance"
	"trend_trader/internal/market/paper"
	"trend_trader/internal/metrics"
	"trend_trader/internal/risk"
	"trend_trader/internal/storage"
	"trend_trader/internal/telegram"
	"trend_trader/internal/throttle"
	"trend_trader/internal/watcher"
)

const VersionFile = "version.latest"

func main() {
	cmd := &cli.Command{
		Name:  "trend_watcher",
		Usage: "Trade one spot pair on EMA crossovers with a stop-loss / take-profit exit policy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to the .env file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Optional YAML strategy file (overrides defaults, overridden by environment)",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single poll iteration and exit",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	// 1. Initialization
	// Load configuration first to get logger settings
	boot := logger.New(zapcore.AddSync(os.Stderr), zapcore.InfoLevel)
	cfg, err := config.Load(cmd.String("env"), cmd.String("strategy"), boot)
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 2. Setup Dependencies
	tg := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID)
	var sender journal.Sender
	if tg.Enabled() {
		sender = tg
	} else {
		log.Warn("Telegram not configured, notifications disabled")
	}
	j := journal.New(log, sender, throttle.New(), cfg.NotifyCooldown(), cfg.LogCooldown())

	exchange, err := buildExchange(cfg)
	if err != nil {
		return err
	}

	policy, err := risk.New(cfg.RiskPolicy, cfg.RiskParams())
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go m.Serve(ctx, cfg.MetricsAddr, log)
	}

	w := watcher.New(cfg, exchange, storage.NewFileStore(cfg.StateFile), policy, j, m)

	// 3. Setup Signal Handling (Graceful Shutdown)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	go func() {
		select {
		case <-c:
			log.Warn("Shutting down: system signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("Trend watcher initialized",
		zap.String("version", readVersion()),
		zap.String("exchange", exchange.Name()),
		zap.Duration("poll_interval", cfg.PollInterval()),
	)
	w.Startup(ctx)

	// 4. Main Loop
	if cmd.Bool("once") {
		return w.Poll(ctx)
	}
	w.Run(ctx)
	return nil
}

func buildExchange(cfg *config.Config) (market.Exchange, error) {
	switch cfg.Exchange {
	case "binance":
		return binance.NewProvider(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceTestnet), nil
	case "alpaca":
		return alpaca.NewProvider(alpaca.Options{
			APIKey:      cfg.AlpacaAPIKey,
			APISecret:   cfg.AlpacaAPISecret,
			BaseURL:     cfg.AlpacaBaseURL,
			QuoteAsset:  cfg.QuoteAsset,
			StepSize:    decimal.NewFromFloat(cfg.AlpacaStepSize),
			MinNotional: decimal.NewFromFloat(cfg.AlpacaMinNotional),
		}), nil
	case "paper":
		// Market data is public, keys are optional.
		feed := binance.NewProvider(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceTestnet)
		return paper.New(feed, cfg.BaseAsset, cfg.QuoteAsset,
			decimal.NewFromFloat(cfg.PaperQuoteBalance), decimal.NewFromFloat(cfg.Commission)), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", cfg.Exchange)
	}
}

func readVersion() string {
	// read version from VersionFile file
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}
