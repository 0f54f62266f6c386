// Package paper simulates fills against live market data so the whole
// pipeline can run without touching a real account.
package paper

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"trend_trader/internal/market"
	"trend_trader/internal/models"
)

// Exchange reads candles, prices and filters from feed and books orders
// against an in-memory wallet at the latest price.
type Exchange struct {
	feed       market.Exchange
	base       string
	quote      string
	commission decimal.Decimal

	mu       sync.Mutex
	balances map[string]decimal.Decimal
	seq      int64
}

var _ market.Exchange = (*Exchange)(nil)

// New funds the wallet with quoteBalance. Commission is charged in the
// received asset on every fill.
func New(feed market.Exchange, baseAsset, quoteAsset string, quoteBalance, commission decimal.Decimal) *Exchange {
	return &Exchange{
		feed:       feed,
		base:       baseAsset,
		quote:      quoteAsset,
		commission: commission,
		balances:   map[string]decimal.Decimal{quoteAsset: quoteBalance},
	}
}

func (e *Exchange) Name() string { return "paper" }

func (e *Exchange) Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	return e.feed.Candles(ctx, symbol, interval, limit)
}

func (e *Exchange) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return e.feed.Price(ctx, symbol)
}

func (e *Exchange) Filters(ctx context.Context, symbol string) (models.SymbolFilters, error) {
	return e.feed.Filters(ctx, symbol)
}

func (e *Exchange) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[asset], nil
}

func (e *Exchange) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(e.balances))
	for k, v := range e.balances {
		if v.IsPositive() {
			out[k] = v
		}
	}
	return out, nil
}

// PlaceMarketOrder fills the whole quantity at the feed's current price.
func (e *Exchange) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive quantity %s", market.ErrOrderRejected, req.Quantity)
	}
	price, err := e.feed.Price(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	keep := decimal.NewFromInt(1).Sub(e.commission)
	notional := req.Quantity.Mul(price)
	switch req.Side {
	case models.SideBuy:
		if notional.GreaterThan(e.balances[e.quote]) {
			return nil, fmt.Errorf("%w: insufficient %s", market.ErrOrderRejected, e.quote)
		}
		e.balances[e.quote] = e.balances[e.quote].Sub(notional)
		e.balances[e.base] = e.balances[e.base].Add(req.Quantity.Mul(keep))
	case models.SideSell:
		if req.Quantity.GreaterThan(e.balances[e.base]) {
			return nil, fmt.Errorf("%w: insufficient %s", market.ErrOrderRejected, e.base)
		}
		e.balances[e.base] = e.balances[e.base].Sub(req.Quantity)
		e.balances[e.quote] = e.balances[e.quote].Add(notional.Mul(keep))
	default:
		return nil, fmt.Errorf("%w: unknown side %q", market.ErrOrderRejected, req.Side)
	}

	e.seq++
	return &models.OrderResult{
		OrderID:       "paper-" + strconv.FormatInt(e.seq, 10),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Status:        "FILLED",
		ExecutedQty:   req.Quantity,
		Fills:         []models.Fill{{Price: price, Quantity: req.Quantity}},
	}, nil
}
