package paper_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trend_trader/internal/market"
	"trend_trader/internal/market/paper"
	"trend_trader/internal/models"
	"trend_trader/mocks"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mocks.NewMockExchange(ctrl)
	ctx := context.Background()

	ex := paper.New(feed, "BTC", "USDT", d("1000"), d("0.001"))

	feed.EXPECT().Price(gomock.Any(), "BTCUSDT").Return(d("100"), nil)
	res, err := ex.PlaceMarketOrder(ctx, models.OrderRequest{Symbol: "BTCUSDT", Side: models.SideBuy, Quantity: d("5")})
	require.NoError(t, err)
	price, ok := res.AvgFillPrice()
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")))

	usdt, _ := ex.Balance(ctx, "USDT")
	btc, _ := ex.Balance(ctx, "BTC")
	assert.True(t, usdt.Equal(d("500")), usdt.String())
	assert.True(t, btc.Equal(d("4.995")), btc.String())

	feed.EXPECT().Price(gomock.Any(), "BTCUSDT").Return(d("110"), nil)
	_, err = ex.PlaceMarketOrder(ctx, models.OrderRequest{Symbol: "BTCUSDT", Side: models.SideSell, Quantity: d("4.995")})
	require.NoError(t, err)

	usdt, _ = ex.Balance(ctx, "USDT")
	assert.True(t, usdt.Equal(d("1048.90055")), usdt.String())

	all, err := ex.Balances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRejectsOverspend(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mocks.NewMockExchange(ctrl)
	ex := paper.New(feed, "BTC", "USDT", d("10"), decimal.Zero)

	feed.EXPECT().Price(gomock.Any(), "BTCUSDT").Return(d("100"), nil)
	_, err := ex.PlaceMarketOrder(context.Background(), models.OrderRequest{Symbol: "BTCUSDT", Side: models.SideBuy, Quantity: d("1")})
	assert.ErrorIs(t, err, market.ErrOrderRejected)
}

func TestDelegatesMarketData(t *testing.T) {
	ctrl := gomock.NewController(t)
	feed := mocks.NewMockExchange(ctrl)
	ex := paper.New(feed, "BTC", "USDT", d("10"), decimal.Zero)
	ctx := context.Background()

	filters := models.SymbolFilters{Symbol: "BTCUSDT", StepSize: d("0.001"), MinNotional: d("10")}
	feed.EXPECT().Filters(gomock.Any(), "BTCUSDT").Return(filters, nil)
	feed.EXPECT().Candles(gomock.Any(), "BTCUSDT", "30m", 10).Return(nil, nil)

	got, err := ex.Filters(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, filters, got)
	_, err = ex.Candles(ctx, "BTCUSDT", "30m", 10)
	require.NoError(t, err)
	assert.Equal(t, "paper", ex.Name())
}
