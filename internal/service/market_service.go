// Package service contains the coordinators that tie chain reads, caches,
// stores, and the pricing engine together.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
	"github.com/mintrail/phygmarket/internal/engine"
)

// MarketService serves market and item state and assembles per-item quotes.
// Every quote is computed from one consistent chain snapshot; the snapshot
// cache bounds chain reads under request bursts.
type MarketService struct {
	markets domain.MarketStore
	items   domain.ItemStore
	reader  domain.ChainReader
	ledger  domain.RewardLedger
	snaps   domain.SnapshotCache
	rates   domain.RateSource
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	items domain.ItemStore,
	reader domain.ChainReader,
	ledger domain.RewardLedger,
	snaps domain.SnapshotCache,
	rates domain.RateSource,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		items:   items,
		reader:  reader,
		ledger:  ledger,
		snaps:   snaps,
		rates:   rates,
		bus:     bus,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket retrieves a market by ID.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %s: %w", id, err)
	}
	return m, nil
}

// ListMarkets returns markets with pagination.
func (s *MarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list markets: %w", err)
	}
	return markets, nil
}

// CountMarkets returns the total number of known markets.
func (s *MarketService) CountMarkets(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count markets: %w", err)
	}
	return count, nil
}

// ListItems returns a market's items with pagination.
func (s *MarketService) ListItems(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Item, error) {
	if _, err := s.markets.Get(ctx, marketID); err != nil {
		return nil, fmt.Errorf("market_service: list items for %s: %w", marketID, err)
	}
	items, err := s.items.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list items for %s: %w", marketID, err)
	}
	return items, nil
}

// SyncMarket refreshes a market's chain-derived fields (schedule and locked
// value) from the curve contract and persists the result.
func (s *MarketService) SyncMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: sync market %s: %w", id, err)
	}

	sched, err := s.reader.Schedule(ctx, m.Contract)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: sync market %s: %w", id, err)
	}
	tvl, err := s.reader.TotalLockedValue(ctx, m.Contract)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: sync market %s: %w", id, err)
	}

	m.InitializedAt = sched.InitializedAt
	m.TradingDuration = sched.TradingDuration
	m.RedemptionDuration = sched.RedemptionDuration
	m.TotalLockedValue = tvl

	if err := s.markets.Upsert(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: sync market %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "market synced",
		slog.String("market_id", m.ID),
		slog.String("total_locked_value", tvl.String()),
	)
	return m, nil
}

// Snapshot returns a consistent chain snapshot for the item, reusing a cached
// one when fresh. Pass fresh=true to force a chain read, as the redemption
// flow does.
func (s *MarketService) Snapshot(ctx context.Context, item domain.Item, market domain.Market, fresh bool) (domain.Snapshot, error) {
	if !fresh {
		snap, err := s.snaps.Get(ctx, item.ID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "snapshot cache read failed",
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	price, err := s.reader.CurrentPrice(ctx, market.Contract, item.Weight)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("market_service: snapshot %s: %w", item.ID, err)
	}
	tvl, err := s.reader.TotalLockedValue(ctx, market.Contract)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("market_service: snapshot %s: %w", item.ID, err)
	}
	surcharge, err := s.reader.PoolSurcharge(ctx, market.Contract, item.TokenID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("market_service: snapshot %s: %w", item.ID, err)
	}

	snap := domain.Snapshot{
		MarketID:         market.ID,
		CurrentPrice:     price,
		TotalLockedValue: tvl,
		PoolSurcharge:    surcharge,
		TakenAt:          time.Now().UTC(),
	}

	if err := s.snaps.Set(ctx, item.ID, snap); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache write failed",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
	return snap, nil
}

// QuoteItem assembles the full per-item quote: phase state, current price
// with fiat mirror, redemption eligibility, discount offer, and loyalty
// reward estimate, all derived from one snapshot.
func (s *MarketService) QuoteItem(ctx context.Context, itemID string) (domain.ItemQuote, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return domain.ItemQuote{}, fmt.Errorf("market_service: quote item %s: %w", itemID, err)
	}
	market, err := s.markets.Get(ctx, item.MarketID)
	if err != nil {
		return domain.ItemQuote{}, fmt.Errorf("market_service: quote item %s: %w", itemID, err)
	}

	snap, err := s.Snapshot(ctx, item, market, false)
	if err != nil {
		return domain.ItemQuote{}, err
	}

	rate, err := s.rates.NativeToFiat(ctx)
	if err != nil {
		// Fiat display degrades to invalid; the native quote still stands.
		s.logger.WarnContext(ctx, "rate unavailable for quote",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		rate = decimal.Zero
	}

	now := time.Now().UTC()
	state := engine.StateAt(market, now)
	price, priceFiat := engine.PriceQuote(snap, rate)
	redeemable := engine.Redeemable(item, market, state.Phase, snap)

	quote := domain.ItemQuote{
		ItemID:           item.ID,
		MarketID:         market.ID,
		Phase:            state.Phase,
		PhaseName:        state.Phase.String(),
		PhaseEndsAt:      state.EndsAt,
		SecondsRemaining: state.SecondsRemaining,
		PercentRemaining: state.PercentRemaining,
		CurrentPrice:     price,
		PriceFiat:        priceFiat,
		Redeemable:       redeemable,
		Reward:           engine.EstimateReward(ctx, s.ledger, market.Contract, item.TokenID, rate, s.logger),
		SnapshotAt:       snap.TakenAt,
	}

	// The top-up offer only makes sense for an unredeemed item that is not
	// already eligible at the current price.
	if !item.Redeemed && !redeemable && state.Phase != domain.PhaseUnknown {
		dq := engine.TopUpQuote(price, item.RedemptionThreshold)
		quote.Discount = &dq
	}

	s.publishQuote(ctx, quote)
	return quote, nil
}

// publishQuote emits a price event for WebSocket subscribers. Publish
// failures are logged, never surfaced to the quote caller.
func (s *MarketService) publishQuote(ctx context.Context, q domain.ItemQuote) {
	evt, _ := json.Marshal(map[string]any{
		"event":         "item_quote",
		"item_id":       q.ItemID,
		"market_id":     q.MarketID,
		"phase":         q.PhaseName,
		"current_price": q.CurrentPrice.String(),
		"redeemable":    q.Redeemable,
		"timestamp":     q.SnapshotAt.Format(time.RFC3339Nano),
	})
	if err := s.bus.Publish(ctx, "prices", evt); err != nil {
		s.logger.WarnContext(ctx, "publish quote event failed",
			slog.String("item_id", q.ItemID),
			slog.String("error", err.Error()),
		)
	}
}
