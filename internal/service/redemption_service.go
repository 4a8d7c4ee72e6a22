package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
	"github.com/mintrail/phygmarket/internal/engine"
	"github.com/mintrail/phygmarket/internal/notify"
)

// RedemptionService executes physical-item claims. Each claim holds a
// per-item distributed lock, re-checks eligibility against a fresh chain
// snapshot, sizes the loyalty award, and records the redemption. The chain
// transaction itself is submitted externally; this service validates and
// accounts for it.
type RedemptionService struct {
	markets     domain.MarketStore
	items       domain.ItemStore
	redemptions domain.RedemptionStore
	reader      domain.ChainReader
	marketSvc   *MarketService
	snaps       domain.SnapshotCache
	locks       domain.LockManager
	bus         domain.SignalBus
	notifier    *notify.Notifier
	lockTTL     time.Duration
	logger      *slog.Logger
}

// NewRedemptionService creates a RedemptionService with all required
// dependencies.
func NewRedemptionService(
	markets domain.MarketStore,
	items domain.ItemStore,
	redemptions domain.RedemptionStore,
	reader domain.ChainReader,
	marketSvc *MarketService,
	snaps domain.SnapshotCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	lockTTL time.Duration,
	logger *slog.Logger,
) *RedemptionService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &RedemptionService{
		markets:     markets,
		items:       items,
		redemptions: redemptions,
		reader:      reader,
		marketSvc:   marketSvc,
		snaps:       snaps,
		locks:       locks,
		bus:         bus,
		notifier:    notifier,
		lockTTL:     lockTTL,
		logger:      logger.With(slog.String("component", "redemption_service")),
	}
}

// Redeem validates and records a claim for the given item. topUpPaid is the
// additional payment observed in the claim transaction; it must cover the
// quoted top-up when the item is not yet eligible at the current price. The
// returned redemption is pending until Confirm is called with the settled
// transaction hash.
func (s *RedemptionService) Redeem(ctx context.Context, itemID, holder string, topUpPaid decimal.Decimal) (domain.Redemption, error) {
	unlock, err := s.locks.Acquire(ctx, "redeem:"+itemID, s.lockTTL)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: redeem %s: %w", itemID, err)
	}
	defer unlock()

	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: redeem %s: %w", itemID, err)
	}
	if item.Redeemed {
		return domain.Redemption{}, domain.ErrAlreadyRedeemed
	}
	market, err := s.markets.Get(ctx, item.MarketID)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: redeem %s: %w", itemID, err)
	}

	// Eligibility is decided on a fresh snapshot, never a cached one. A
	// cached read could admit a claim the curve no longer supports.
	snap, err := s.marketSvc.Snapshot(ctx, item, market, true)
	if err != nil {
		return domain.Redemption{}, err
	}

	now := time.Now().UTC()
	phase := engine.PhaseAt(market, now)
	if phase == domain.PhaseUnknown {
		return domain.Redemption{}, domain.ErrNotInitialized
	}

	if !engine.Redeemable(item, market, phase, snap) {
		if phase == domain.PhaseExpired {
			// Past expiry the pool rule is the only way in; a top-up cannot
			// substitute for missing pool liquidity.
			return domain.Redemption{}, domain.ErrMarketExpired
		}
		quote := engine.TopUpQuote(engine.ItemPrice(snap), item.RedemptionThreshold)
		if quote.FullyCovered || topUpPaid.LessThan(quote.TopUp) {
			return domain.Redemption{}, domain.ErrNotRedeemable
		}
	} else {
		// Eligible at the current price: the plain path takes no top-up.
		topUpPaid = decimal.Zero
	}

	raw, err := s.reader.RawLockedValue(ctx, market.Contract)
	if err != nil {
		// The award sizer's fallback covers unreadable values too; the claim
		// must not fail because of the loyalty grant.
		s.logger.WarnContext(ctx, "locked value read failed, using award fallback",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()),
		)
		raw = ""
	}
	award, awardFallback := engine.SizeAward(raw, s.logger)

	r := domain.Redemption{
		ID:            uuid.New().String(),
		MarketID:      market.ID,
		ItemID:        item.ID,
		Holder:        holder,
		TopUpPaid:     topUpPaid,
		AwardGranted:  award,
		AwardFallback: awardFallback,
		Status:        domain.RedemptionPending,
		CreatedAt:     now,
	}
	if err := s.redemptions.Insert(ctx, r); err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: redeem %s: %w", itemID, err)
	}

	s.logger.InfoContext(ctx, "redemption pending",
		slog.String("redemption_id", r.ID),
		slog.String("item_id", item.ID),
		slog.String("top_up_paid", topUpPaid.String()),
		slog.Int64("award_granted", award),
		slog.Bool("award_fallback", awardFallback),
	)
	return r, nil
}

// Confirm settles a pending redemption: the item flips to redeemed, the
// snapshot cache is invalidated, and a redemption_completed event goes out.
func (s *RedemptionService) Confirm(ctx context.Context, redemptionID, txHash string) (domain.Redemption, error) {
	r, err := s.redemptions.Get(ctx, redemptionID)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: confirm %s: %w", redemptionID, err)
	}
	if r.Status == domain.RedemptionConfirmed {
		return r, nil
	}
	if r.Status == domain.RedemptionFailed {
		return domain.Redemption{}, fmt.Errorf("redemption_service: confirm %s: redemption already failed", redemptionID)
	}

	now := time.Now().UTC()
	if err := s.items.MarkRedeemed(ctx, r.ItemID, now); err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: confirm %s: %w", redemptionID, err)
	}
	if err := s.redemptions.UpdateStatus(ctx, r.ID, domain.RedemptionConfirmed, txHash, &now); err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: confirm %s: %w", redemptionID, err)
	}
	r.Status = domain.RedemptionConfirmed
	r.TxHash = txHash
	r.ConfirmedAt = &now

	if err := s.snaps.Invalidate(ctx, r.ItemID); err != nil {
		s.logger.WarnContext(ctx, "snapshot invalidate failed",
			slog.String("item_id", r.ItemID),
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":          "redemption_completed",
		"redemption_id":  r.ID,
		"market_id":      r.MarketID,
		"item_id":        r.ItemID,
		"holder":         r.Holder,
		"top_up_paid":    r.TopUpPaid.String(),
		"award_granted":  r.AwardGranted,
		"award_fallback": r.AwardFallback,
		"timestamp":      now.Format(time.RFC3339Nano),
	})
	if err := s.bus.Publish(ctx, "redemptions", evt); err != nil {
		s.logger.WarnContext(ctx, "publish redemption event failed",
			slog.String("redemption_id", r.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, "redemptions", evt); err != nil {
		s.logger.WarnContext(ctx, "append redemption stream failed",
			slog.String("redemption_id", r.ID),
			slog.String("error", err.Error()),
		)
	}

	if s.notifier != nil {
		_ = s.notifier.Notify(ctx, "redemption_completed",
			"Item redeemed",
			fmt.Sprintf("Item %s redeemed by %s (award %d)", r.ItemID, r.Holder, r.AwardGranted),
		)
	}

	s.logger.InfoContext(ctx, "redemption confirmed",
		slog.String("redemption_id", r.ID),
		slog.String("tx_hash", txHash),
	)
	return r, nil
}

// Fail marks a pending redemption as failed. The item stays unredeemed and
// can be claimed again.
func (s *RedemptionService) Fail(ctx context.Context, redemptionID, txHash string) error {
	if err := s.redemptions.UpdateStatus(ctx, redemptionID, domain.RedemptionFailed, txHash, nil); err != nil {
		return fmt.Errorf("redemption_service: fail %s: %w", redemptionID, err)
	}
	s.logger.WarnContext(ctx, "redemption failed",
		slog.String("redemption_id", redemptionID),
		slog.String("tx_hash", txHash),
	)
	return nil
}

// Get retrieves a redemption by ID.
func (s *RedemptionService) Get(ctx context.Context, id string) (domain.Redemption, error) {
	r, err := s.redemptions.Get(ctx, id)
	if err != nil {
		return domain.Redemption{}, fmt.Errorf("redemption_service: get %s: %w", id, err)
	}
	return r, nil
}

// ListByMarket returns a market's redemptions with pagination.
func (s *RedemptionService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Redemption, error) {
	rs, err := s.redemptions.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("redemption_service: list for market %s: %w", marketID, err)
	}
	return rs, nil
}
