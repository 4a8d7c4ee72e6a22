package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mintrail/phygmarket/internal/domain"
	"github.com/mintrail/phygmarket/internal/engine"
	"github.com/mintrail/phygmarket/internal/notify"
)

// defaultScanInterval is how often the ticker rescans the store for newly
// initialized markets.
const defaultScanInterval = time.Minute

// PhaseTicker drives a countdown for every live market and publishes phase
// observations to the signal bus, at least once per second per market. When a
// market's countdown reaches Expired the ticker emits a final event and a
// market_expired notification, then stops tracking it.
type PhaseTicker struct {
	markets      domain.MarketStore
	bus          domain.SignalBus
	notifier     *notify.Notifier
	tickInterval time.Duration
	scanInterval time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	tracked map[string]bool
}

// NewPhaseTicker creates a PhaseTicker. tickInterval is the per-market
// countdown resolution; values below one second are raised by the countdown
// itself.
func NewPhaseTicker(
	markets domain.MarketStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	tickInterval time.Duration,
	logger *slog.Logger,
) *PhaseTicker {
	return &PhaseTicker{
		markets:      markets,
		bus:          bus,
		notifier:     notifier,
		tickInterval: tickInterval,
		scanInterval: defaultScanInterval,
		logger:       logger.With(slog.String("component", "phase_ticker")),
		tracked:      make(map[string]bool),
	}
}

// Run scans for live markets and tracks each until it expires. It blocks
// until the context is cancelled and all per-market countdowns have stopped.
func (t *PhaseTicker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(t.scanInterval)
		defer ticker.Stop()

		if err := t.scan(ctx, g); err != nil {
			t.logger.ErrorContext(ctx, "market scan failed", slog.String("error", err.Error()))
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := t.scan(ctx, g); err != nil {
					t.logger.ErrorContext(ctx, "market scan failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	return g.Wait()
}

// scan starts a countdown for every live market not yet tracked.
func (t *PhaseTicker) scan(ctx context.Context, g *errgroup.Group) error {
	live, err := t.markets.ListLive(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("phase_ticker: list live markets: %w", err)
	}

	for _, m := range live {
		t.mu.Lock()
		if t.tracked[m.ID] {
			t.mu.Unlock()
			continue
		}
		t.tracked[m.ID] = true
		t.mu.Unlock()

		market := m
		g.Go(func() error {
			return t.track(ctx, market)
		})
	}
	return nil
}

// track runs one market's countdown to completion. Context cancellation is
// not an error at shutdown; a countdown ending means the market expired.
func (t *PhaseTicker) track(ctx context.Context, m domain.Market) error {
	t.logger.InfoContext(ctx, "tracking market",
		slog.String("market_id", m.ID),
		slog.String("kind", string(m.Kind)),
	)

	cd := engine.NewCountdown(m, t.tickInterval, func(st engine.PhaseState) {
		t.publishTick(ctx, m, st)
	}, t.logger)

	err := cd.Run(ctx)

	t.mu.Lock()
	delete(t.tracked, m.ID)
	t.mu.Unlock()

	if err != nil {
		// Cancelled at shutdown.
		return nil
	}

	t.logger.InfoContext(ctx, "market expired", slog.String("market_id", m.ID))
	if t.notifier != nil {
		_ = t.notifier.Notify(ctx, "market_expired",
			"Market expired",
			fmt.Sprintf("Market %s (%s) passed its redemption deadline", m.Name, m.ID),
		)
	}
	return nil
}

// publishTick emits one phase observation for WebSocket subscribers.
func (t *PhaseTicker) publishTick(ctx context.Context, m domain.Market, st engine.PhaseState) {
	evt, _ := json.Marshal(map[string]any{
		"event":             "phase_tick",
		"market_id":         m.ID,
		"phase":             st.Phase.String(),
		"ends_at":           st.EndsAt.Format(time.RFC3339),
		"seconds_remaining": st.SecondsRemaining,
		"percent_remaining": st.PercentRemaining,
	})
	if err := t.bus.Publish(ctx, "phases", evt); err != nil {
		t.logger.WarnContext(ctx, "publish phase tick failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
