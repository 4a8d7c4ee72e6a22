package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionStatus is the state of a physical-item claim.
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionConfirmed RedemptionStatus = "confirmed"
	RedemptionFailed    RedemptionStatus = "failed"
)

// Redemption records one consumed physical-item claim. An item is redeemed
// exactly once; the row is written when the redemption transaction is
// accepted and never deleted.
type Redemption struct {
	ID       string
	MarketID string
	ItemID   string
	Holder   string

	// TopUpPaid is the additional payment submitted to cross the item's
	// redemption threshold. Zero when the price already covered it.
	TopUpPaid decimal.Decimal

	// AwardGranted is the loyalty token grant sized at redemption time, in
	// whole token units.
	AwardGranted int64

	// AwardFallback marks grants produced by the fallback path after a
	// malformed locked-value read. The claim itself still succeeded.
	AwardFallback bool

	Status      RedemptionStatus
	TxHash      string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}
