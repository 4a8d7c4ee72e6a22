package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/mintrail/phygmarket/internal/domain"
)

// DefaultCountdownInterval is the cadence at which a Countdown recomputes
// the phase state. Progress displays need at least one update per second.
const DefaultCountdownInterval = time.Second

// Countdown periodically recomputes a market's phase state and delivers each
// observation to a callback. It stops scheduling work as soon as the
// terminal Expired state has been delivered, and is cancellable through its
// context — there is no way to leak a timer past either point.
type Countdown struct {
	market   domain.Market
	interval time.Duration
	onTick   func(PhaseState)
	nowFn    func() time.Time
	logger   *slog.Logger
}

// NewCountdown creates a Countdown for the given market. interval values
// below DefaultCountdownInterval are raised to it. onTick must be non-nil
// and is invoked synchronously from the countdown goroutine.
func NewCountdown(m domain.Market, interval time.Duration, onTick func(PhaseState), logger *slog.Logger) *Countdown {
	if interval < DefaultCountdownInterval {
		interval = DefaultCountdownInterval
	}
	return &Countdown{
		market:   m,
		interval: interval,
		onTick:   onTick,
		nowFn:    time.Now,
		logger:   logger.With(slog.String("component", "countdown"), slog.String("market_id", m.ID)),
	}
}

// Run delivers the current phase state immediately and then once per
// interval. It returns nil after the Expired state has been delivered once,
// or ctx.Err() when cancelled. Call in a goroutine.
func (c *Countdown) Run(ctx context.Context) error {
	if st := c.tick(ctx); st.Phase.Terminal() {
		return nil
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if st := c.tick(ctx); st.Phase.Terminal() {
				return nil
			}
		}
	}
}

func (c *Countdown) tick(ctx context.Context) PhaseState {
	st := StateAt(c.market, c.nowFn())
	c.onTick(st)
	if st.Phase.Terminal() {
		c.logger.DebugContext(ctx, "countdown reached terminal phase")
	}
	return st
}
