package alpaca

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trend_trader/internal/market"
	"trend_trader/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// tradeAPI is the subset of *alpaca.Client used by the provider.
type tradeAPI interface {
	GetAccount() (*alpaca.Account, error)
	GetPosition(symbol string) (*alpaca.Position, error)
	GetPositions() ([]alpaca.Position, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	GetOrder(orderID string) (*alpaca.Order, error)
	CancelOrder(orderID string) error
}

// dataAPI is the subset of *marketdata.Client used by the provider.
type dataAPI interface {
	GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error)
	GetLatestCryptoTrade(symbol string, req marketdata.GetLatestCryptoTradeRequest) (*marketdata.CryptoTrade, error)
}

// Options configures the crypto venue. Alpaca does not publish lot rules
// for crypto pairs in a form the bot can read, so they come from config.
type Options struct {
	APIKey      string
	APISecret   string
	BaseURL     string
	QuoteAsset  string
	StepSize    decimal.Decimal
	MinNotional decimal.Decimal
}

// Provider implements market.Exchange against Alpaca crypto.
type Provider struct {
	mdClient    dataAPI
	tradeClient tradeAPI
	opts        Options

	fillAttempts int
	fillWait     time.Duration
}

// Ensure Provider implements the interface
var _ market.Exchange = (*Provider)(nil)

// NewProvider returns a new Alpaca provider.
func NewProvider(opts Options) *Provider {
	return newProvider(
		marketdata.NewClient(marketdata.ClientOpts{APIKey: opts.APIKey, APISecret: opts.APISecret}),
		alpaca.NewClient(alpaca.ClientOpts{APIKey: opts.APIKey, APISecret: opts.APISecret, BaseURL: opts.BaseURL}),
		opts,
	)
}

func newProvider(md dataAPI, trade tradeAPI, opts Options) *Provider {
	return &Provider{
		mdClient:     md,
		tradeClient:  trade,
		opts:         opts,
		fillAttempts: 5,
		fillWait:     time.Second,
	}
}

func (p *Provider) Name() string { return "alpaca" }

// --- Market Data ---

func (p *Provider) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	tf, step, err := parseInterval(interval)
	if err != nil {
		return nil, err
	}
	end := time.Now().UTC()
	start := end.Add(-step * time.Duration(limit+1))
	bars, err := p.mdClient.GetCryptoBars(symbol, marketdata.GetCryptoBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	result := make([]models.Candle, 0, len(bars))
	for _, b := range bars {
		result = append(result, models.Candle{
			OpenTime: b.Timestamp,
			Open:     decimal.NewFromFloat(b.Open),
			High:     decimal.NewFromFloat(b.High),
			Low:      decimal.NewFromFloat(b.Low),
			Close:    decimal.NewFromFloat(b.Close),
			Volume:   decimal.NewFromFloat(b.Volume),
		})
	}
	return result, nil
}

func (p *Provider) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	trade, err := p.mdClient.GetLatestCryptoTrade(symbol, marketdata.GetLatestCryptoTradeRequest{})
	if err != nil {
		return decimal.Zero, err
	}
	if trade == nil {
		return decimal.Zero, fmt.Errorf("no trade found for %s", symbol)
	}
	return decimal.NewFromFloat(trade.Price), nil
}

// --- Account ---

// Balance reads cash for the quote asset and the open position quantity
// for anything else. A missing position is a zero balance.
func (p *Provider) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if strings.EqualFold(asset, p.opts.QuoteAsset) {
		acct, err := p.tradeClient.GetAccount()
		if err != nil {
			return decimal.Zero, err
		}
		return acct.Cash, nil
	}

	pos, err := p.tradeClient.GetPosition(asset + p.opts.QuoteAsset)
	if err != nil {
		if isNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return pos.Qty, nil
}

func (p *Provider) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	acct, err := p.tradeClient.GetAccount()
	if err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{}
	if acct.Cash.IsPositive() {
		out[p.opts.QuoteAsset] = acct.Cash
	}

	positions, err := p.tradeClient.GetPositions()
	if err != nil {
		return nil, err
	}
	for _, x := range positions {
		if x.Qty.IsZero() {
			continue
		}
		out[strings.TrimSuffix(x.Symbol, p.opts.QuoteAsset)] = x.Qty
	}
	return out, nil
}

func (p *Provider) Filters(ctx context.Context, symbol string) (models.SymbolFilters, error) {
	return models.SymbolFilters{
		Symbol:      symbol,
		StepSize:    p.opts.StepSize,
		MinNotional: p.opts.MinNotional,
	}, nil
}

// --- Execution ---

// PlaceMarketOrder submits a GTC market order and waits briefly for the fill.
// Whatever is still working after the wait is canceled, so the caller never
// holds an untracked working order. A partial fill is returned as a success.
func (p *Provider) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	qty := req.Quantity
	side := alpaca.Buy
	if req.Side == models.SideSell {
		side = alpaca.Sell
	}

	o, err := p.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.GTC,
		ClientOrderID: req.ClientOrderID,
	})
	if err != nil {
		return nil, err
	}

	final := p.awaitFill(ctx, o)
	var cancelErr error
	if !isTerminal(final.Status) {
		cancelErr = p.tradeClient.CancelOrder(final.ID)
		// The order may have filled between the last poll and the cancel.
		if latest, err := p.tradeClient.GetOrder(final.ID); err == nil && latest != nil {
			final = latest
		}
	}

	res := mapOrder(final, req.Side)
	if final.FilledQty.IsPositive() {
		return res, nil
	}
	if cancelErr != nil {
		return res, fmt.Errorf("%w: order %s unfilled, cancel failed: %v", market.ErrOrderRejected, final.ID, cancelErr)
	}
	return res, fmt.Errorf("%w: order %s status %s", market.ErrOrderRejected, final.ID, final.Status)
}

// awaitFill polls the order until it reaches a terminal status or the
// attempts run out. A failed poll is skipped; the last known order is
// returned so the caller can cancel it.
func (p *Provider) awaitFill(ctx context.Context, o *alpaca.Order) *alpaca.Order {
	current := o
	for i := 0; i < p.fillAttempts; i++ {
		if isTerminal(current.Status) {
			return current
		}
		select {
		case <-ctx.Done():
			return current
		case <-time.After(p.fillWait):
		}
		next, err := p.tradeClient.GetOrder(o.ID)
		if err != nil || next == nil {
			continue
		}
		current = next
	}
	return current
}

// Helpers

func isTerminal(status string) bool {
	switch status {
	case "filled", "canceled", "expired", "rejected", "done_for_day":
		return true
	}
	return false
}

func isNotFound(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "position does not exist") ||
		strings.Contains(err.Error(), "404")
}

func mapOrder(o *alpaca.Order, side models.Side) *models.OrderResult {
	res := &models.OrderResult{
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          side,
		Status:        o.Status,
		ExecutedQty:   o.FilledQty,
	}
	if o.FilledAvgPrice != nil && o.FilledQty.IsPositive() {
		res.Fills = []models.Fill{{Price: *o.FilledAvgPrice, Quantity: o.FilledQty}}
	}
	return res
}

// parseInterval maps kline notation ("30m", "4h", "1d") to an Alpaca timeframe.
func parseInterval(interval string) (marketdata.TimeFrame, time.Duration, error) {
	if len(interval) < 2 {
		return marketdata.TimeFrame{}, 0, fmt.Errorf("invalid interval %q", interval)
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return marketdata.TimeFrame{}, 0, fmt.Errorf("invalid interval %q", interval)
	}
	switch interval[len(interval)-1] {
	case 'm':
		return marketdata.NewTimeFrame(n, marketdata.Min), time.Duration(n) * time.Minute, nil
	case 'h':
		return marketdata.NewTimeFrame(n, marketdata.Hour), time.Duration(n) * time.Hour, nil
	case 'd':
		return marketdata.NewTimeFrame(n, marketdata.Day), time.Duration(n) * 24 * time.Hour, nil
	}
	return marketdata.TimeFrame{}, 0, fmt.Errorf("invalid interval %q", interval)
}
