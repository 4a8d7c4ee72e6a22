package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one minted unit offered through a Market, bonded to a physical
// good. Weight and RedemptionThreshold are fixed at mint time; the current
// price is never stored, it is derived from the curve at query time.
type Item struct {
	ID       string
	MarketID string
	TokenID  uint64 // on-chain token id
	Name     string

	// Weight (base value) is the item's fixed position on the bonding curve.
	Weight decimal.Decimal
	// RedemptionThreshold is the native-token price the item must reach,
	// directly or via top-up, to become redeemable. Always > 0.
	RedemptionThreshold decimal.Decimal

	// PurchasePrice and PurchaseTime are recorded once when the current
	// holder acquired the item. Used for reward and discount math only.
	PurchasePrice decimal.Decimal
	PurchaseTime  time.Time

	Holder string // current holder wallet address

	// Redeemed is write-once. Once true the item has left the tradable
	// model; no further pricing or eligibility computation is meaningful.
	Redeemed   bool
	RedeemedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
