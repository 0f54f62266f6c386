// Package quantity turns a theoretical order size into one the venue accepts.
package quantity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"trend_trader/internal/models"
)

var (
	// ErrZeroQuantity means nothing is left after rounding to the lot step.
	ErrZeroQuantity = errors.New("quantity rounds to zero")
	// ErrBelowMinNotional means quantity*price is under the venue minimum.
	ErrBelowMinNotional = errors.New("order value below minimum notional")
)

// RoundDown floors qty to a whole multiple of the lot step. A zero step
// leaves qty untouched.
func RoundDown(qty, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return qty
	}
	return qty.Div(step).Floor().Mul(step)
}

// CheckNotional rejects orders worth less than the instrument minimum.
func CheckNotional(qty, price decimal.Decimal, f models.SymbolFilters) error {
	notional := qty.Mul(price)
	if notional.LessThan(f.MinNotional) {
		return fmt.Errorf("%w: %s x %s = %s < %s", ErrBelowMinNotional,
			qty.String(), price.String(), notional.String(), f.MinNotional.String())
	}
	return nil
}

// Normalize rounds raw down to the lot step and checks the minimum notional.
// The returned quantity is only submittable when err is nil.
func Normalize(raw, price decimal.Decimal, f models.SymbolFilters) (decimal.Decimal, error) {
	qty := RoundDown(raw, f.StepSize)
	if !qty.IsPositive() {
		return decimal.Zero, ErrZeroQuantity
	}
	if err := CheckNotional(qty, price, f); err != nil {
		return qty, err
	}
	return qty, nil
}
