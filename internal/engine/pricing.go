package engine

import (
	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// ItemPrice returns the item's current transactable price from a chain
// snapshot. The curve evaluation happens on chain against the item's weight;
// this guards the engine's non-negative price invariant against a bad
// upstream read by clamping at zero.
func ItemPrice(snap domain.Snapshot) decimal.Decimal {
	if snap.CurrentPrice.Sign() < 0 {
		return decimal.Zero
	}
	return snap.CurrentPrice
}

// PriceQuote returns the current price together with its fiat mirror. The
// fiat side is invalid when no usable rate was supplied.
func PriceQuote(snap domain.Snapshot, rate decimal.Decimal) (decimal.Decimal, domain.FiatDisplay) {
	price := ItemPrice(snap)
	return price, ToFiat(price, rate)
}
