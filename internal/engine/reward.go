package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// EstimateReward looks up the accrued loyalty reward for an item in the
// external reward ledger and formats it for display. The ledger is a black
// box; when the lookup fails or the item is not tracked, the quote degrades
// to a zero amount with Unavailable set so the UI shows "unable to
// calculate" instead of a misleading zero. No error reaches the caller.
func EstimateReward(ctx context.Context, ledger domain.RewardLedger, market string, tokenID uint64, rate decimal.Decimal, logger *slog.Logger) domain.RewardQuote {
	entry, err := ledger.Entry(ctx, market, tokenID)
	if err != nil {
		logger.WarnContext(ctx, "reward ledger lookup failed",
			slog.String("market", market),
			slog.Uint64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		return domain.RewardQuote{Unavailable: true}
	}
	if !entry.IsActive {
		return domain.RewardQuote{Unavailable: true}
	}

	amount := entry.Accrued
	if amount.Sign() < 0 {
		amount = decimal.Zero
	}
	return domain.RewardQuote{
		Amount: amount,
		Fiat:   ToFiat(amount, rate),
	}
}
