package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// rateKey is the single hash holding the latest native/fiat rate with fields
// "rate" and "ts" (Unix nanosecond timestamp).
const rateKey = "rate:native_fiat"

// RateCache implements domain.RateCache using a Redis hash.
type RateCache struct {
	rdb *redis.Client
}

// NewRateCache creates a RateCache backed by the given Client.
func NewRateCache(c *Client) *RateCache {
	return &RateCache{rdb: c.Underlying()}
}

// SetRate stores the latest exchange rate and the time it was fetched.
func (rc *RateCache) SetRate(ctx context.Context, rate decimal.Decimal, ts time.Time) error {
	fields := map[string]interface{}{
		"rate": rate.String(),
		"ts":   strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := rc.rdb.HSet(ctx, rateKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set rate: %w", err)
	}
	return nil
}

// GetRate retrieves the latest exchange rate and its fetch time.
// It returns domain.ErrNotFound when no rate has been stored yet.
func (rc *RateCache) GetRate(ctx context.Context) (decimal.Decimal, time.Time, error) {
	vals, err := rc.rdb.HGetAll(ctx, rateKey).Result()
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: get rate: %w", err)
	}
	if len(vals) == 0 {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}

	rateStr, ok := vals["rate"]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: parse rate: %w", err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("redis: parse rate ts: %w", err)
	}

	return rate, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.RateCache = (*RateCache)(nil)
