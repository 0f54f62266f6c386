package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one kline; only the open time and close price drive decisions.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// Side of a market order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SymbolFilters are the instrument rules used to build a legal order.
type SymbolFilters struct {
	Symbol      string
	StepSize    decimal.Decimal // LOT_SIZE step; zero means "no lot rule"
	MinNotional decimal.Decimal
}

// OrderRequest is a market order the bot wants to send.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      decimal.Decimal
	ClientOrderID string
}

// Fill is one partial execution of an order.
type Fill struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderResult is what the venue reports back for a submitted market order.
type OrderResult struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          Side
	Status        string
	ExecutedQty   decimal.Decimal
	Fills         []Fill
}

// AvgFillPrice returns the quantity-weighted price of the fills.
// The boolean is false when there is nothing to average.
func (o *OrderResult) AvgFillPrice() (decimal.Decimal, bool) {
	if o == nil || len(o.Fills) == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	qty := decimal.Zero
	for _, f := range o.Fills {
		total = total.Add(f.Price.Mul(f.Quantity))
		qty = qty.Add(f.Quantity)
	}
	if !qty.IsPositive() {
		return decimal.Zero, false
	}
	return total.Div(qty), true
}
