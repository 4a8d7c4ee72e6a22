package engine

import (
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	// AwardRateBps sizes the loyalty grant as a share of the market's total
	// locked value: 2%.
	AwardRateBps = 200

	// MinGrant is the floor for any loyalty grant, in whole token units.
	MinGrant int64 = 50

	// FallbackGrant is issued when the locked-value read cannot be parsed.
	// The physical-item claim must still succeed even when the bonus
	// calculation fails, so the sizer never blocks the redemption flow.
	FallbackGrant int64 = 250
)

// SizeAward computes the loyalty token grant for a redemption from the raw
// locked-value string read from the tracker contract (a base-10 integer in
// token units). A malformed or negative read falls back to FallbackGrant
// with fallback=true; it is logged and never raised to the caller.
func SizeAward(rawLockedValue string, logger *slog.Logger) (grant int64, fallback bool) {
	tvl, err := strconv.ParseInt(rawLockedValue, 10, 64)
	if err != nil || tvl < 0 {
		logger.Warn("award sizing fell back on malformed locked value",
			slog.String("raw", rawLockedValue),
			slog.Int64("fallback_grant", FallbackGrant),
		)
		return FallbackGrant, true
	}

	grant = decimal.NewFromInt(tvl).
		Mul(decimal.NewFromInt(AwardRateBps)).
		Div(decimal.NewFromInt(10_000)).
		Round(0).
		IntPart()
	if grant < MinGrant {
		grant = MinGrant
	}
	return grant, false
}
