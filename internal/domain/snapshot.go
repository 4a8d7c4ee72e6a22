package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one consistent read of the chain state backing a single item
// evaluation. Eligibility, discount, and reward math for an item must all be
// computed from the same Snapshot; mixing reads from different chain states
// produces incorrect results. The engine performs no staleness detection of
// its own — assembling a consistent Snapshot is the caller's job.
type Snapshot struct {
	MarketID string

	// CurrentPrice is the curve's buy price evaluated against the item's
	// weight at TakenAt.
	CurrentPrice decimal.Decimal

	// TotalLockedValue is the market contract's native-token balance.
	TotalLockedValue decimal.Decimal

	// PoolSurcharge is the pool-level liquidity requirement on top of the
	// item threshold that gates redemption after expiry. Read from the
	// tracker contract; this is the canonical source, not a local estimate.
	PoolSurcharge decimal.Decimal

	TakenAt time.Time
}
