package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FiatDisplay is a fiat mirror of a native amount. Valid is false when no
// usable exchange rate was available; callers must then fall back to
// native-only display instead of rendering a zero.
type FiatDisplay struct {
	Amount decimal.Decimal `json:"amount"`
	Valid  bool            `json:"valid"`
}

// DiscountQuote is the consumer-facing top-up offer for a non-redeemable
// item.
type DiscountQuote struct {
	// TopUp is the exact additional payment needed to cross the threshold,
	// floored at the dust minimum so the payment tx is never zero-value.
	TopUp decimal.Decimal `json:"top_up"`
	// DiscountAmount is the part of the threshold already covered by the
	// current market price.
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	// Percent is the true discount percentage in [0,100].
	Percent int `json:"percent"`
	// DisplayPercent is Percent capped for display.
	DisplayPercent int `json:"display_percent"`
	// FullyCovered marks items whose price already covers the threshold;
	// these take the plain redemption path, not the top-up path.
	FullyCovered bool `json:"fully_covered"`
}

// RewardQuote is the accrued loyalty reward due at redemption. Unavailable
// is true when the ledger lookup failed; the amount is then zero and must be
// rendered as "unable to calculate", not as a real zero.
type RewardQuote struct {
	Amount      decimal.Decimal `json:"amount"`
	Fiat        FiatDisplay     `json:"fiat"`
	Unavailable bool            `json:"unavailable"`
}

// ItemQuote is the assembled per-item answer served to the UI: phase state,
// current price, eligibility, and the discount/reward quotes, all derived
// from one chain snapshot.
type ItemQuote struct {
	ItemID   string `json:"item_id"`
	MarketID string `json:"market_id"`

	Phase            Phase     `json:"-"`
	PhaseName        string    `json:"phase"`
	PhaseEndsAt      time.Time `json:"phase_ends_at,omitempty"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	PercentRemaining float64   `json:"percent_remaining"`

	CurrentPrice decimal.Decimal `json:"current_price"`
	PriceFiat    FiatDisplay     `json:"price_fiat"`

	Redeemable bool           `json:"redeemable"`
	Discount   *DiscountQuote `json:"discount,omitempty"`
	Reward     RewardQuote    `json:"reward"`

	SnapshotAt time.Time `json:"snapshot_at"`
}
