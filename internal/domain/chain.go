package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarketSchedule bundles the chain-read lifecycle parameters of one market.
type MarketSchedule struct {
	InitializedAt      *time.Time
	TradingDuration    time.Duration
	RedemptionDuration time.Duration
}

// ChainReader supplies read-only queries against the externally-owned curve
// and tracker contracts. All amounts are returned as decimal native-token
// units; wei conversion happens inside the implementation. Chain mutation
// (trades, redemptions) never goes through this interface.
type ChainReader interface {
	// CurrentPrice evaluates the curve's buy price for the given weight.
	CurrentPrice(ctx context.Context, market string, weight decimal.Decimal) (decimal.Decimal, error)
	// TotalLockedValue returns the native balance held by the market contract.
	TotalLockedValue(ctx context.Context, market string) (decimal.Decimal, error)
	// PoolSurcharge returns the tracker contract's pool-level liquidity
	// requirement that gates redemption after expiry.
	PoolSurcharge(ctx context.Context, market string, tokenID uint64) (decimal.Decimal, error)
	// RawLockedValue returns the tracker contract's locked-value read as the
	// unparsed base-10 string, in token units. The award sizer consumes the
	// raw form so a malformed upstream value can take its documented
	// fallback path instead of failing the redemption.
	RawLockedValue(ctx context.Context, market string) (string, error)
	// Schedule returns the curve initialization time and phase durations.
	Schedule(ctx context.Context, market string) (MarketSchedule, error)
}

// LedgerEntry is the reward-tracking tuple recorded when the current holder
// acquired the item.
type LedgerEntry struct {
	Weight        decimal.Decimal
	PurchasePrice decimal.Decimal
	PurchaseTime  time.Time
	IsActive      bool
	// Accrued is the precomputed time- and price-weighted reward scalar, in
	// native-token units.
	Accrued decimal.Decimal
}

// RewardLedger is the external reward-tracking contract, treated as a black
// box. Lookups are keyed by market and token id.
type RewardLedger interface {
	Entry(ctx context.Context, market string, tokenID uint64) (LedgerEntry, error)
}

// RateSource supplies the native-to-fiat exchange rate from an external
// price feed. Implementations substitute a last-known or hardcoded fallback
// on fetch failure rather than propagating an error into pricing displays.
type RateSource interface {
	NativeToFiat(ctx context.Context) (decimal.Decimal, error)
}
