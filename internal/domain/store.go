package domain

import (
	"context"
	"time"
)

// ListOpts carries standard pagination parameters.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market metadata and chain-read schedule fields.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	// ListLive returns markets that are initialized and not yet past their
	// redemption window at the given instant.
	ListLive(ctx context.Context, now time.Time) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// ItemStore persists items minted through a market.
type ItemStore interface {
	Upsert(ctx context.Context, it Item) error
	Get(ctx context.Context, id string) (Item, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Item, error)
	// MarkRedeemed flips the write-once redeemed flag. It returns
	// ErrAlreadyRedeemed when the item was redeemed before.
	MarkRedeemed(ctx context.Context, itemID string, at time.Time) error
}

// RedemptionStore persists consumed claims.
type RedemptionStore interface {
	Insert(ctx context.Context, r Redemption) error
	Get(ctx context.Context, id string) (Redemption, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Redemption, error)
	UpdateStatus(ctx context.Context, id string, status RedemptionStatus, txHash string, confirmedAt *time.Time) error
	// ListBefore returns confirmed redemptions created strictly before the
	// cutoff, for archival.
	ListBefore(ctx context.Context, before time.Time) ([]Redemption, error)
}
