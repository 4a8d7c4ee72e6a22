package engine

import (
	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// MaxDisplayDiscountPercent caps the advertised discount. A top-up offer is
// never shown as "100% off"; fully covered items skip the top-up path
// entirely.
const MaxDisplayDiscountPercent = 97

// MinTopUp is the dust floor for a top-up payment, in native-token units.
// Some chain semantics reject or no-op zero-value calls, so the payment
// attached to a top-up transaction is never below this.
var MinTopUp = decimal.RequireFromString("0.000001")

// TopUpQuote computes the consumer-facing discount a "buy it now" payment
// represents, for an item that is not yet redeemable: how much of the
// redemption threshold the current market price already covers, and the
// exact additional payment still required.
//
// discountAmount + additionalPaymentNeeded always equals the threshold; the
// dust floor applies only to the payable TopUp, not to the discount math.
// A non-positive threshold is a contract violation upstream and yields the
// zero quote.
func TopUpQuote(currentPrice, redemptionThreshold decimal.Decimal) domain.DiscountQuote {
	if redemptionThreshold.Sign() <= 0 {
		return domain.DiscountQuote{}
	}
	if currentPrice.Sign() < 0 {
		currentPrice = decimal.Zero
	}

	needed := redemptionThreshold.Sub(currentPrice)
	if needed.Sign() < 0 {
		needed = decimal.Zero
	}
	discountAmount := redemptionThreshold.Sub(needed)

	percent := int(discountAmount.Div(redemptionThreshold).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	q := domain.DiscountQuote{
		DiscountAmount: discountAmount,
		Percent:        percent,
		DisplayPercent: percent,
	}
	if q.DisplayPercent > MaxDisplayDiscountPercent {
		q.DisplayPercent = MaxDisplayDiscountPercent
	}

	if needed.Sign() == 0 {
		// Price already covers the threshold: no top-up, route through the
		// ordinary redemption path.
		q.FullyCovered = true
		return q
	}

	q.TopUp = needed
	if q.TopUp.LessThan(MinTopUp) {
		q.TopUp = MinTopUp
	}
	return q
}
