package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	"trend_trader/internal/market"
	"trend_trader/internal/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrade struct {
	account   *alpaca.Account
	positions map[string]alpaca.Position
	placed    []alpaca.PlaceOrderRequest
	orders    []*alpaca.Order // returned by successive GetOrder calls
	canceled  []string
	placeErr  error
	getErrs   []error // consumed before orders, one per GetOrder call
}

func (f *fakeTrade) GetAccount() (*alpaca.Account, error) { return f.account, nil }

func (f *fakeTrade) GetPosition(symbol string) (*alpaca.Position, error) {
	p, ok := f.positions[symbol]
	if !ok {
		return nil, errors.New("position does not exist")
	}
	return &p, nil
}

func (f *fakeTrade) GetPositions() ([]alpaca.Position, error) {
	var out []alpaca.Position
	for _, p := range f.positions {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeTrade) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	f.placed = append(f.placed, req)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return &alpaca.Order{ID: "ord-1", Symbol: req.Symbol, ClientOrderID: req.ClientOrderID, Status: "new"}, nil
}

func (f *fakeTrade) GetOrder(orderID string) (*alpaca.Order, error) {
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return nil, err
	}
	if len(f.orders) == 0 {
		return &alpaca.Order{ID: orderID, Status: "new"}, nil
	}
	o := f.orders[0]
	if len(f.orders) > 1 {
		f.orders = f.orders[1:]
	}
	return o, nil
}

func (f *fakeTrade) CancelOrder(orderID string) error {
	f.canceled = append(f.canceled, orderID)
	return nil
}

type fakeData struct {
	bars []marketdata.CryptoBar
	req  marketdata.GetCryptoBarsRequest
}

func (f *fakeData) GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error) {
	f.req = req
	return f.bars, nil
}

func (f *fakeData) GetLatestCryptoTrade(symbol string, req marketdata.GetLatestCryptoTradeRequest) (*marketdata.CryptoTrade, error) {
	return &marketdata.CryptoTrade{Price: 101.5}, nil
}

func testProvider(md *fakeData, tr *fakeTrade) *Provider {
	p := newProvider(md, tr, Options{
		QuoteAsset:  "USD",
		StepSize:    decimal.RequireFromString("0.0001"),
		MinNotional: decimal.NewFromInt(1),
	})
	p.fillWait = time.Millisecond
	return p
}

func TestCandlesTrimsToLimit(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	md := &fakeData{}
	for i := 0; i < 5; i++ {
		md.bars = append(md.bars, marketdata.CryptoBar{Timestamp: base.Add(time.Duration(i) * 30 * time.Minute), Close: float64(100 + i)})
	}
	p := testProvider(md, &fakeTrade{})

	candles, err := p.Candles(context.Background(), "BTC/USD", "30m", 3)
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.True(t, candles[2].Close.Equal(decimal.NewFromInt(104)))
	assert.Equal(t, marketdata.NewTimeFrame(30, marketdata.Min), md.req.TimeFrame)
}

func TestCandlesRejectsBadInterval(t *testing.T) {
	p := testProvider(&fakeData{}, &fakeTrade{})
	_, err := p.Candles(context.Background(), "BTC/USD", "x", 3)
	assert.Error(t, err)
}

func TestBalance(t *testing.T) {
	tr := &fakeTrade{
		account:   &alpaca.Account{Cash: decimal.NewFromInt(500)},
		positions: map[string]alpaca.Position{"BTCUSD": {Symbol: "BTCUSD", Qty: decimal.RequireFromString("0.25")}},
	}
	p := testProvider(&fakeData{}, tr)
	ctx := context.Background()

	cash, err := p.Balance(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.NewFromInt(500)))

	btc, err := p.Balance(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "0.25", btc.String())

	eth, err := p.Balance(ctx, "ETH")
	require.NoError(t, err)
	assert.True(t, eth.IsZero())

	all, err := p.Balances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPlaceMarketOrderFilled(t *testing.T) {
	avg := decimal.NewFromInt(100)
	tr := &fakeTrade{orders: []*alpaca.Order{
		{ID: "ord-1", Status: "filled", FilledQty: decimal.RequireFromString("0.5"), FilledAvgPrice: &avg},
	}}
	p := testProvider(&fakeData{}, tr)

	res, err := p.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTC/USD", Side: models.SideBuy, Quantity: decimal.RequireFromString("0.5"), ClientOrderID: "cid",
	})
	require.NoError(t, err)
	price, ok := res.AvgFillPrice()
	require.True(t, ok)
	assert.True(t, price.Equal(avg))
	require.Len(t, tr.placed, 1)
	assert.Equal(t, alpaca.Buy, tr.placed[0].Side)
	assert.Equal(t, alpaca.GTC, tr.placed[0].TimeInForce)
	assert.Equal(t, "cid", tr.placed[0].ClientOrderID)
}

func TestPlaceMarketOrderUnfilledIsCanceled(t *testing.T) {
	tr := &fakeTrade{}
	p := testProvider(&fakeData{}, tr)

	_, err := p.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTC/USD", Side: models.SideSell, Quantity: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, market.ErrOrderRejected)
	assert.Equal(t, []string{"ord-1"}, tr.canceled)
}

func TestPlaceMarketOrderSurvivesFailedPoll(t *testing.T) {
	avg := decimal.NewFromInt(100)
	tr := &fakeTrade{
		getErrs: []error{errors.New("read tcp: connection reset")},
		orders: []*alpaca.Order{
			{ID: "ord-1", Status: "filled", FilledQty: decimal.RequireFromString("0.5"), FilledAvgPrice: &avg},
		},
	}
	p := testProvider(&fakeData{}, tr)

	res, err := p.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTC/USD", Side: models.SideBuy, Quantity: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, "0.5", res.ExecutedQty.String())
	assert.Empty(t, tr.canceled)
}

func TestPlaceMarketOrderUnreachableStatusIsCanceled(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = errors.New("read tcp: connection reset")
	}
	tr := &fakeTrade{getErrs: errs}
	p := testProvider(&fakeData{}, tr)

	res, err := p.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTC/USD", Side: models.SideBuy, Quantity: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, market.ErrOrderRejected)
	require.NotNil(t, res)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, []string{"ord-1"}, tr.canceled)
}

func TestPlaceMarketOrderPartialFillCancelsRemainder(t *testing.T) {
	avg := decimal.NewFromInt(100)
	tr := &fakeTrade{orders: []*alpaca.Order{
		{ID: "ord-1", Status: "partially_filled", FilledQty: decimal.RequireFromString("0.2"), FilledAvgPrice: &avg},
	}}
	p := testProvider(&fakeData{}, tr)

	res, err := p.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTC/USD", Side: models.SideBuy, Quantity: decimal.RequireFromString("0.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.2", res.ExecutedQty.String())
	assert.Equal(t, []string{"ord-1"}, tr.canceled)
}

func TestPlaceMarketOrderRejected(t *testing.T) {
	tr := &fakeTrade{orders: []*alpaca.Order{{ID: "ord-1", Status: "rejected"}}}
	p := testProvider(&fakeData{}, tr)

	_, err := p.PlaceMarketOrder(context.Background(), models.OrderRequest{
		Symbol: "BTC/USD", Side: models.SideBuy, Quantity: decimal.NewFromInt(1),
	})
	require.ErrorIs(t, err, market.ErrOrderRejected)
	assert.Empty(t, tr.canceled)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30m", 30 * time.Minute, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"0m", 0, false},
		{"5w", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, d, err := parseInterval(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}
