package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mintrail/phygmarket/internal/domain"
)

// defaultSnapshotTTL bounds how long a chain snapshot may be reused before a
// fresh read is forced. Kept short: one curve step can move the price.
const defaultSnapshotTTL = 3 * time.Second

// SnapshotCache implements domain.SnapshotCache using Redis strings with
// JSON-serialized Snapshot data.
//
// Key schema:
//
//	snapshot:{itemID} - JSON snapshot with a short TTL
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client. A ttl
// of zero selects the default.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func snapshotKey(itemID string) string { return "snapshot:" + itemID }

// Set stores an item's chain snapshot with the cache TTL.
func (sc *SnapshotCache) Set(ctx context.Context, itemID string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", itemID, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(itemID), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", itemID, err)
	}
	return nil
}

// Get retrieves an item's cached snapshot.
// It returns domain.ErrNotFound when the key does not exist or has expired.
func (sc *SnapshotCache) Get(ctx context.Context, itemID string) (domain.Snapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot %s: %w", itemID, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", itemID, err)
	}
	return snap, nil
}

// Invalidate removes an item's cached snapshot. Redemption invalidates the
// snapshot so the next quote reflects the post-claim state.
func (sc *SnapshotCache) Invalidate(ctx context.Context, itemID string) error {
	if err := sc.rdb.Del(ctx, snapshotKey(itemID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %s: %w", itemID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
