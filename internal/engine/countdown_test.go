package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintrail/phygmarket/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCountdownStopsAtExpired(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	m := testMarket(epoch, 2*time.Second, 1*time.Second)

	// Virtual clock: each tick observes a later instant, crossing into
	// Expired on the fourth observation.
	var mu sync.Mutex
	step := 0
	var seen []domain.Phase

	c := NewCountdown(m, time.Second, func(st PhaseState) {
		mu.Lock()
		seen = append(seen, st.Phase)
		mu.Unlock()
	}, discardLogger())
	c.interval = time.Millisecond // speed the loop up for the test
	c.nowFn = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at := epoch.Add(time.Duration(step) * time.Second)
		step++
		return at
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Run(ctx)
	require.NoError(t, err, "run must return nil once Expired is delivered")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, domain.PhaseExpired, seen[len(seen)-1])
	// No further observations were scheduled after the terminal state.
	assert.Equal(t, []domain.Phase{
		domain.PhaseTrading, domain.PhaseTrading,
		domain.PhaseRedemption, domain.PhaseExpired,
	}, seen)
}

func TestCountdownImmediateTerminal(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	m := testMarket(epoch, time.Second, time.Second)

	calls := 0
	c := NewCountdown(m, time.Second, func(st PhaseState) {
		calls++
		assert.Equal(t, domain.PhaseExpired, st.Phase)
	}, discardLogger())
	c.nowFn = func() time.Time { return epoch.Add(time.Hour) }

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestCountdownCancellable(t *testing.T) {
	epoch := time.Now().UTC()
	m := testMarket(epoch, time.Hour, time.Hour)

	c := NewCountdown(m, time.Second, func(PhaseState) {}, discardLogger())
	c.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not stop on cancellation")
	}
}
