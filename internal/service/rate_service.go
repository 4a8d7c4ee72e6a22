package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
	"github.com/mintrail/phygmarket/internal/notify"
)

// rateFetcher is the external price feed surface the RateService consumes.
type rateFetcher interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// RateService keeps the native/fiat exchange rate fresh. It polls the price
// feed on an interval, caches the result, and substitutes the last-known or
// configured fallback rate when the feed is down. Rate trouble degrades fiat
// displays; it never blocks pricing or redemption.
type RateService struct {
	feed     rateFetcher
	cache    domain.RateCache
	bus      domain.SignalBus
	notifier *notify.Notifier
	fallback decimal.Decimal
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	lastKnown decimal.Decimal
}

// NewRateService creates a RateService. fallback must be a positive rate; it
// is the substitute of last resort when no fetch has ever succeeded.
func NewRateService(
	feed rateFetcher,
	cache domain.RateCache,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	fallback decimal.Decimal,
	interval time.Duration,
	logger *slog.Logger,
) *RateService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RateService{
		feed:     feed,
		cache:    cache,
		bus:      bus,
		notifier: notifier,
		fallback: fallback,
		interval: interval,
		logger:   logger.With(slog.String("component", "rate_service")),
	}
}

// Run polls the price feed until the context is cancelled. The first fetch
// happens immediately so quotes have a live rate as soon as possible.
func (s *RateService) Run(ctx context.Context) error {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh fetches the rate once and stores it. On failure the last-known
// value stays in place and a rate_fallback notification goes out.
func (s *RateService) refresh(ctx context.Context) {
	rate, err := s.feed.FetchRate(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "rate fetch failed, keeping last known",
			slog.String("error", err.Error()),
		)
		if s.notifier != nil {
			_ = s.notifier.Notify(ctx, "rate_fallback",
				"Exchange rate feed down",
				"Rate fetch failed; fiat displays use the last known rate: "+err.Error(),
			)
		}
		return
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.lastKnown = rate
	s.mu.Unlock()

	if err := s.cache.SetRate(ctx, rate, now); err != nil {
		s.logger.WarnContext(ctx, "rate cache write failed",
			slog.String("error", err.Error()),
		)
	}

	evt, _ := json.Marshal(map[string]any{
		"event":     "rate_update",
		"rate":      rate.String(),
		"timestamp": now.Format(time.RFC3339Nano),
	})
	if err := s.bus.Publish(ctx, "rates", evt); err != nil {
		s.logger.WarnContext(ctx, "publish rate event failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.DebugContext(ctx, "rate refreshed", slog.String("rate", rate.String()))
}

// NativeToFiat returns the best available exchange rate: the cached value,
// then the in-memory last-known, then the configured fallback. It only errors
// when even the fallback is unusable.
func (s *RateService) NativeToFiat(ctx context.Context) (decimal.Decimal, error) {
	rate, _, err := s.cache.GetRate(ctx)
	if err == nil && rate.Sign() > 0 {
		return rate, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "rate cache read failed",
			slog.String("error", err.Error()),
		)
	}

	s.mu.RLock()
	last := s.lastKnown
	s.mu.RUnlock()
	if last.Sign() > 0 {
		return last, nil
	}

	if s.fallback.Sign() > 0 {
		return s.fallback, nil
	}
	return decimal.Zero, domain.ErrRateUnavailable
}

// Compile-time interface check.
var _ domain.RateSource = (*RateService)(nil)
