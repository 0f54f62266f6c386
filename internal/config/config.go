package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"trend_trader/internal/risk"
)

// Config holds every tunable of the bot.
// Fields tagged yaml:"-" are secrets and only come from the environment.
type Config struct {
	// Venue
	Exchange          string  `yaml:"exchange" validate:"oneof=binance alpaca paper"`
	BinanceAPIKey     string  `yaml:"-" validate:"required_if=Exchange binance"`
	BinanceAPISecret  string  `yaml:"-" validate:"required_if=Exchange binance"`
	BinanceTestnet    bool    `yaml:"binance_testnet"`
	AlpacaAPIKey      string  `yaml:"-" validate:"required_if=Exchange alpaca"`
	AlpacaAPISecret   string  `yaml:"-" validate:"required_if=Exchange alpaca"`
	AlpacaBaseURL     string  `yaml:"alpaca_base_url"`
	AlpacaStepSize    float64 `yaml:"alpaca_step_size" validate:"gte=0"`
	AlpacaMinNotional float64 `yaml:"alpaca_min_notional" validate:"gte=0"`
	PaperQuoteBalance float64 `yaml:"paper_quote_balance" validate:"gte=0"`

	// Notifications
	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	// Instrument and signal
	Symbol      string `yaml:"symbol" validate:"required"`
	BaseAsset   string `yaml:"base_asset" validate:"required"`
	QuoteAsset  string `yaml:"quote_asset" validate:"required"`
	Interval    string `yaml:"interval" validate:"required"`
	CandleLimit int    `yaml:"candle_limit" validate:"gt=0"`
	EmaShort    int    `yaml:"ema_short" validate:"gt=0,ltfield=EmaLong"`
	EmaLong     int    `yaml:"ema_long" validate:"gt=0"`

	// Risk
	RiskPolicy          string  `yaml:"risk_policy" validate:"oneof=simple staged"`
	TakeProfitMult      float64 `yaml:"take_profit_mult" validate:"gt=1"`
	StopLossMult        float64 `yaml:"stop_loss_mult" validate:"gt=0,lt=1"`
	AdjustTrigger       float64 `yaml:"stoploss_adjust_trigger" validate:"gt=1"`
	AdjustTo            float64 `yaml:"stoploss_adjust_to" validate:"gt=0"`
	FirstTargetMult     float64 `yaml:"first_target_mult" validate:"gt=1"`
	FirstTargetStopMult float64 `yaml:"first_target_stop_mult" validate:"gt=0"`
	SecondTargetMult    float64 `yaml:"second_target_mult" validate:"gt=1"`
	PartialExitFraction float64 `yaml:"partial_exit_fraction" validate:"gt=0,lte=1"`

	// Sizing
	BuyBalanceFraction float64 `yaml:"buy_balance_fraction" validate:"gt=0,lte=1"`
	MinQuoteBalance    float64 `yaml:"min_quote_balance" validate:"gte=0"`
	Commission         float64 `yaml:"commission" validate:"gte=0,lt=1"`

	// Loop and throttling, in seconds
	PollIntervalSec   int `yaml:"poll_interval_sec" validate:"gt=0"`
	RetryDelaySec     int `yaml:"retry_delay_sec" validate:"gt=0"`
	NotifyCooldownSec int `yaml:"notify_cooldown_sec" validate:"gte=0"`
	LogCooldownSec    int `yaml:"log_cooldown_sec" validate:"gte=0"`

	// Files and observability
	StateFile     string `yaml:"state_file" validate:"required"`
	LogFile       string `yaml:"log_file"`
	MaxLogSizeMB  int64  `yaml:"max_log_size_mb" validate:"gte=0"`
	MaxLogBackups int    `yaml:"max_log_backups" validate:"gte=0"`
	LogLevel      string `yaml:"log_level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	MetricsAddr   string `yaml:"metrics_addr"`
}

// Default returns the stock BTCUSDT 30m configuration.
func Default() *Config {
	return &Config{
		Exchange:            "binance",
		AlpacaBaseURL:       "https://paper-api.alpaca.markets",
		AlpacaStepSize:      0.000001,
		AlpacaMinNotional:   1,
		PaperQuoteBalance:   1000,
		Symbol:              "BTCUSDT",
		BaseAsset:           "BTC",
		QuoteAsset:          "USDT",
		Interval:            "30m",
		CandleLimit:         999,
		EmaShort:            150,
		EmaLong:             200,
		RiskPolicy:          "simple",
		TakeProfitMult:      1.08,
		StopLossMult:        0.97,
		AdjustTrigger:       1.05,
		AdjustTo:            1.03,
		FirstTargetMult:     1.05,
		FirstTargetStopMult: 1.02,
		SecondTargetMult:    1.05,
		PartialExitFraction: 0.5,
		BuyBalanceFraction:  0.99,
		MinQuoteBalance:     10,
		Commission:          0.001,
		PollIntervalSec:     60,
		RetryDelaySec:       60,
		NotifyCooldownSec:   180,
		LogCooldownSec:      1000,
		StateFile:           "state.json",
		LogFile:             "log.txt",
		MaxLogSizeMB:        5,
		MaxLogBackups:       3,
		LogLevel:            "info",
	}
}

// secretVars are masked when the configuration is printed.
var secretVars = map[string]bool{
	"BINANCE_API_KEY":     true,
	"BINANCE_API_SECRET":  true,
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
	"TELEGRAM_TOKEN":      true,
}

// Load builds the configuration: defaults, then the optional YAML strategy
// file, then environment variables (a .env file is loaded into the process
// environment first). The result is validated.
func Load(envFile, strategyFile string, log *zap.Logger) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env variables into the process environment
	if err := godotenv.Load(envFile); err != nil {
		log.Warn("No .env file found, using system environment variables", zap.String("path", envFile))
	}

	cfg := Default()

	if strategyFile == "" {
		strategyFile = os.Getenv("STRATEGY_FILE")
	}
	if strategyFile != "" {
		if err := cfg.applyStrategyFile(strategyFile); err != nil {
			return nil, err
		}
		log.Info("Strategy file loaded", zap.String("path", strategyFile))
	}

	cfg.applyEnv(envReader{log: log})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logEnvFile(log, envFile)
	return cfg, nil
}

func (c *Config) applyStrategyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read strategy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse strategy file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(r envReader) {
	c.Exchange = r.getEnv("EXCHANGE", c.Exchange)
	c.BinanceAPIKey = r.getEnv("BINANCE_API_KEY", c.BinanceAPIKey)
	c.BinanceAPISecret = r.getEnv("BINANCE_API_SECRET", c.BinanceAPISecret)
	c.BinanceTestnet = r.getEnvAsBool("BINANCE_TESTNET", c.BinanceTestnet)
	c.AlpacaAPIKey = r.getEnv("APCA_API_KEY_ID", c.AlpacaAPIKey)
	c.AlpacaAPISecret = r.getEnv("APCA_API_SECRET_KEY", c.AlpacaAPISecret)
	c.AlpacaBaseURL = r.getEnv("APCA_API_BASE_URL", c.AlpacaBaseURL)
	c.AlpacaStepSize = r.getEnvAsFloat64("ALPACA_STEP_SIZE", c.AlpacaStepSize)
	c.AlpacaMinNotional = r.getEnvAsFloat64("ALPACA_MIN_NOTIONAL", c.AlpacaMinNotional)
	c.PaperQuoteBalance = r.getEnvAsFloat64("PAPER_QUOTE_BALANCE", c.PaperQuoteBalance)

	c.TelegramToken = r.getEnv("TELEGRAM_TOKEN", c.TelegramToken)
	c.TelegramChatID = r.getEnv("TELEGRAM_CHAT_ID", c.TelegramChatID)

	c.Symbol = r.getEnv("SYMBOL", c.Symbol)
	c.BaseAsset = r.getEnv("BASE_ASSET", c.BaseAsset)
	c.QuoteAsset = r.getEnv("QUOTE_ASSET", c.QuoteAsset)
	c.Interval = r.getEnv("INTERVAL", c.Interval)
	c.CandleLimit = r.getEnvAsInt("CANDLE_LIMIT", c.CandleLimit)
	c.EmaShort = r.getEnvAsInt("EMA_SHORT", c.EmaShort)
	c.EmaLong = r.getEnvAsInt("EMA_LONG", c.EmaLong)

	c.RiskPolicy = r.getEnv("RISK_POLICY", c.RiskPolicy)
	c.TakeProfitMult = r.getEnvAsFloat64("TAKE_PROFIT_MULT", c.TakeProfitMult)
	c.StopLossMult = r.getEnvAsFloat64("STOP_LOSS_MULT", c.StopLossMult)
	c.AdjustTrigger = r.getEnvAsFloat64("STOPLOSS_ADJUST_TRIGGER", c.AdjustTrigger)
	c.AdjustTo = r.getEnvAsFloat64("STOPLOSS_ADJUST_TO", c.AdjustTo)
	c.FirstTargetMult = r.getEnvAsFloat64("FIRST_TARGET_MULT", c.FirstTargetMult)
	c.FirstTargetStopMult = r.getEnvAsFloat64("FIRST_TARGET_STOP_MULT", c.FirstTargetStopMult)
	c.SecondTargetMult = r.getEnvAsFloat64("SECOND_TARGET_MULT", c.SecondTargetMult)
	c.PartialExitFraction = r.getEnvAsFloat64("PARTIAL_EXIT_FRACTION", c.PartialExitFraction)

	c.BuyBalanceFraction = r.getEnvAsFloat64("BUY_BALANCE_FRACTION", c.BuyBalanceFraction)
	c.MinQuoteBalance = r.getEnvAsFloat64("MIN_QUOTE_BALANCE", c.MinQuoteBalance)
	c.Commission = r.getEnvAsFloat64("COMMISSION", c.Commission)

	c.PollIntervalSec = r.getEnvAsInt("POLL_INTERVAL_SEC", c.PollIntervalSec)
	c.RetryDelaySec = r.getEnvAsInt("RETRY_DELAY_SEC", c.RetryDelaySec)
	c.NotifyCooldownSec = r.getEnvAsInt("NOTIFY_COOLDOWN_SEC", c.NotifyCooldownSec)
	c.LogCooldownSec = r.getEnvAsInt("LOG_COOLDOWN_SEC", c.LogCooldownSec)

	c.StateFile = r.getEnv("STATE_FILE", c.StateFile)
	c.LogFile = r.getEnv("LOG_FILE", c.LogFile)
	c.MaxLogSizeMB = int64(r.getEnvAsInt("MAX_LOG_SIZE_MB", int(c.MaxLogSizeMB)))
	c.MaxLogBackups = r.getEnvAsInt("MAX_LOG_BACKUPS", c.MaxLogBackups)
	c.LogLevel = r.getEnv("LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = r.getEnv("METRICS_ADDR", c.MetricsAddr)
}

// ErrCandleLimit means the kline window cannot fit the long EMA warm-up.
var ErrCandleLimit = errors.New("candle limit too small for long EMA")

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.CandleLimit < c.EmaLong+2 {
		return fmt.Errorf("%w: limit %d, need at least %d", ErrCandleLimit, c.CandleLimit, c.EmaLong+2)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}

func (c *Config) NotifyCooldown() time.Duration {
	return time.Duration(c.NotifyCooldownSec) * time.Second
}

func (c *Config) LogCooldown() time.Duration {
	return time.Duration(c.LogCooldownSec) * time.Second
}

// logEnvFile prints the variables defined in the .env file.
func logEnvFile(log *zap.Logger, envFile string) {
	envMap, err := godotenv.Read(envFile)
	if err != nil {
		return
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		log.Info("env", zap.String("key", key), zap.String("value", displayValue(key, envMap[key])))
	}
}

// displayValue masks secrets: show only last 4 chars.
func displayValue(key, val string) string {
	if !secretVars[key] {
		return val
	}
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}

// RiskParams maps the multipliers onto the risk policy parameters.
func (c *Config) RiskParams() risk.Params {
	return risk.Params{
		TakeProfitMult:  c.TakeProfitMult,
		StopLossMult:    c.StopLossMult,
		AdjustTrigger:   c.AdjustTrigger,
		AdjustTo:        c.AdjustTo,
		FirstTrigger:    c.FirstTargetMult,
		FirstStop:       c.FirstTargetStopMult,
		SecondTrigger:   c.SecondTargetMult,
		PartialFraction: c.PartialExitFraction,
	}
}
