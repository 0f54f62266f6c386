package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"trend_trader/internal/models"
)

// ErrOrderRejected means the venue refused or did not fill a market order.
var ErrOrderRejected = errors.New("order rejected")

// Exchange is an Interface.
// Interfaces define *behavior*. Any struct that implements these methods
// satisfies the interface. This allows us to swap out Binance for Alpaca,
// a paper venue, or a Mock for testing, without changing the code that *uses* it.
//
// Every call blocks until the venue answers or ctx is done.
type Exchange interface {
	Name() string
	// Candles returns up to limit klines, oldest first.
	Candles(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	// Price is the latest traded price.
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
	// Balance is the free amount of one asset.
	Balance(ctx context.Context, asset string) (decimal.Decimal, error)
	// Balances lists every asset with a non-zero free amount.
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	// Filters returns the lot step and minimum notional of the instrument.
	Filters(ctx context.Context, symbol string) (models.SymbolFilters, error)
	// PlaceMarketOrder submits an immediate-execution order and reports its fills.
	PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResult, error)
}

// TimeSyncer is implemented by venues that sign requests with a local clock.
type TimeSyncer interface {
	SyncTime(ctx context.Context) (time.Duration, error)
}
