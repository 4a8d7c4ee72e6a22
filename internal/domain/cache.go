package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateCache stores the latest native-to-fiat exchange rate together with the
// time it was fetched, so pricing displays can flag stale conversions.
type RateCache interface {
	SetRate(ctx context.Context, rate decimal.Decimal, ts time.Time) error
	GetRate(ctx context.Context) (decimal.Decimal, time.Time, error)
}

// SnapshotCache stores the most recent consistent chain snapshot per item so
// repeated quote requests within the TTL reuse one chain read.
type SnapshotCache interface {
	Set(ctx context.Context, itemID string, snap Snapshot) error
	Get(ctx context.Context, itemID string) (Snapshot, error)
	Invalidate(ctx context.Context, itemID string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. The redemption flow holds a
// per-item lock so a claim can never be consumed twice.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams for phase ticks, price
// updates, and redemption events consumed by the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
