package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trend_trader/internal/market"
	"trend_trader/internal/models"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// DefaultMinNotional applies when the exchange lists no notional filter.
var DefaultMinNotional = decimal.NewFromInt(10)

// Provider implements market.Exchange against the Binance spot REST API.
type Provider struct {
	client *binance.Client
}

var (
	_ market.Exchange   = (*Provider)(nil)
	_ market.TimeSyncer = (*Provider)(nil)
)

// NewProvider returns a spot client. Public endpoints work with empty keys.
func NewProvider(apiKey, apiSecret string, testnet bool) *Provider {
	binance.UseTestnet = testnet
	return &Provider{client: binance.NewClient(apiKey, apiSecret)}
}

// NewProviderWithBaseURL points the client at a custom REST root.
func NewProviderWithBaseURL(apiKey, apiSecret, baseURL string) *Provider {
	c := binance.NewClient(apiKey, apiSecret)
	c.BaseURL = strings.TrimRight(baseURL, "/")
	return &Provider{client: c}
}

func (p *Provider) Name() string { return "binance" }

// --- Market Data ---

func (p *Provider) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, interval, err)
	}

	result := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := toCandle(k)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func toCandle(k *binance.Kline) (models.Candle, error) {
	var (
		c   models.Candle
		err error
	)
	c.OpenTime = time.UnixMilli(k.OpenTime).UTC()
	if c.Open, err = decimal.NewFromString(k.Open); err != nil {
		return c, fmt.Errorf("kline open %q: %w", k.Open, err)
	}
	if c.High, err = decimal.NewFromString(k.High); err != nil {
		return c, fmt.Errorf("kline high %q: %w", k.High, err)
	}
	if c.Low, err = decimal.NewFromString(k.Low); err != nil {
		return c, fmt.Errorf("kline low %q: %w", k.Low, err)
	}
	if c.Close, err = decimal.NewFromString(k.Close); err != nil {
		return c, fmt.Errorf("kline close %q: %w", k.Close, err)
	}
	if c.Volume, err = decimal.NewFromString(k.Volume); err != nil {
		return c, fmt.Errorf("kline volume %q: %w", k.Volume, err)
	}
	return c, nil
}

func (p *Provider) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	for _, sp := range prices {
		if sp.Symbol == symbol {
			return decimal.NewFromString(sp.Price)
		}
	}
	return decimal.Zero, fmt.Errorf("no price found for %s", symbol)
}

// --- Account ---

func (p *Provider) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	all, err := p.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return all[asset], nil
}

func (p *Provider) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	acct, err := p.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{}
	for _, b := range acct.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, fmt.Errorf("balance %s %q: %w", b.Asset, b.Free, err)
		}
		if free.IsPositive() {
			out[b.Asset] = free
		}
	}
	return out, nil
}

// Filters reads LOT_SIZE and the notional filter from exchangeInfo.
// Newer symbols carry NOTIONAL instead of MIN_NOTIONAL.
func (p *Provider) Filters(ctx context.Context, symbol string) (models.SymbolFilters, error) {
	info, err := p.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return models.SymbolFilters{}, err
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		f := models.SymbolFilters{Symbol: symbol, MinNotional: DefaultMinNotional}
		for _, raw := range s.Filters {
			switch raw["filterType"] {
			case "LOT_SIZE":
				if f.StepSize, err = filterDecimal(raw, "stepSize"); err != nil {
					return models.SymbolFilters{}, err
				}
			case "MIN_NOTIONAL", "NOTIONAL":
				if f.MinNotional, err = filterDecimal(raw, "minNotional"); err != nil {
					return models.SymbolFilters{}, err
				}
			}
		}
		return f, nil
	}
	return models.SymbolFilters{}, fmt.Errorf("symbol %s not listed", symbol)
}

func filterDecimal(raw map[string]interface{}, key string) (decimal.Decimal, error) {
	s, ok := raw[key].(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("filter %v: missing %s", raw["filterType"], key)
	}
	return decimal.NewFromString(s)
}

// --- Execution ---

func (p *Provider) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	side := binance.SideTypeBuy
	if req.Side == models.SideSell {
		side = binance.SideTypeSell
	}

	svc := p.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(req.Quantity.String()).
		NewOrderRespType(binance.NewOrderRespTypeFULL)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}

	res := &models.OrderResult{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          req.Side,
		Status:        string(resp.Status),
	}
	// The order has executed by now, so a malformed number must not lose it:
	// bad fills are dropped and the executed quantity falls back to the fills.
	filled := decimal.Zero
	for _, f := range resp.Fills {
		price, perr := decimal.NewFromString(f.Price)
		qty, qerr := decimal.NewFromString(f.Quantity)
		if perr != nil || qerr != nil {
			continue
		}
		res.Fills = append(res.Fills, models.Fill{Price: price, Quantity: qty})
		filled = filled.Add(qty)
	}
	if res.ExecutedQty, err = decimal.NewFromString(resp.ExecutedQuantity); err != nil {
		res.ExecutedQty = filled
	}

	switch resp.Status {
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired, binance.OrderStatusTypeCanceled:
		if !res.ExecutedQty.IsPositive() {
			return res, fmt.Errorf("%w: order %s status %s", market.ErrOrderRejected, res.OrderID, res.Status)
		}
	}
	return res, nil
}

// SyncTime aligns the signing clock with the server and returns the offset.
func (p *Provider) SyncTime(ctx context.Context) (time.Duration, error) {
	offset, err := p.client.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(offset) * time.Millisecond, nil
}
