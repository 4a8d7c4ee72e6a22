// Package engine implements the item lifecycle and redemption-economics
// rules: phase derivation, pricing, eligibility, top-up discount math, and
// loyalty reward sizing. Every function here is a pure function of its
// explicit inputs — callers pass the market, item, snapshot, clock, and
// exchange rate; nothing is read from ambient state. Failures of the
// external collaborators (chain, price feed, reward ledger) are recovered at
// the boundary of each function and surfaced as flagged fallback values,
// never as errors crossing into the UI layer.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// fiatScale is the display precision for fiat mirrors.
const fiatScale = 2

// ToFiat converts a native-token amount into its fiat display value using
// the supplied exchange rate. A zero, negative, or unset rate yields an
// invalid FiatDisplay so the caller degrades to native-only display; it is
// never an error and can never produce NaN or infinity.
func ToFiat(amount, rate decimal.Decimal) domain.FiatDisplay {
	if rate.Sign() <= 0 {
		return domain.FiatDisplay{}
	}
	return domain.FiatDisplay{
		Amount: amount.Mul(rate).Round(fiatScale),
		Valid:  true,
	}
}
