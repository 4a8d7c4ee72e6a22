package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintrail/phygmarket/internal/domain"
)

func testMarket(init time.Time, trading, redemption time.Duration) domain.Market {
	return domain.Market{
		ID:                 "mkt-1",
		Kind:               domain.MarketOpen,
		InitializedAt:      &init,
		TradingDuration:    trading,
		RedemptionDuration: redemption,
	}
}

func TestPhaseAt(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	m := testMarket(epoch, 1000*time.Second, 500*time.Second)

	cases := []struct {
		name string
		at   time.Time
		want domain.Phase
	}{
		{"start", epoch, domain.PhaseTrading},
		{"last trading second", epoch.Add(999 * time.Second), domain.PhaseTrading},
		{"trading deadline", epoch.Add(1000 * time.Second), domain.PhaseRedemption},
		{"mid redemption", epoch.Add(1200 * time.Second), domain.PhaseRedemption},
		{"last redemption second", epoch.Add(1499 * time.Second), domain.PhaseRedemption},
		{"redemption deadline", epoch.Add(1500 * time.Second), domain.PhaseExpired},
		{"long after", epoch.Add(24 * time.Hour), domain.PhaseExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PhaseAt(m, tc.at))
		})
	}
}

func TestPhaseAtUninitialized(t *testing.T) {
	m := domain.Market{ID: "mkt-2", Kind: domain.MarketClosed}
	assert.Equal(t, domain.PhaseUnknown, PhaseAt(m, time.Now()))

	st := StateAt(m, time.Now())
	assert.Equal(t, domain.PhaseUnknown, st.Phase)
	assert.True(t, st.EndsAt.IsZero())
	assert.Zero(t, st.SecondsRemaining)
	assert.Zero(t, st.PercentRemaining)
}

// Phase must be monotonically non-decreasing in wall-clock time for a fixed
// market.
func TestPhaseMonotonic(t *testing.T) {
	epoch := time.Unix(1_700_000_000, 0).UTC()
	m := testMarket(epoch, 3*time.Hour, 90*time.Minute)

	prev := domain.PhaseUnknown
	for step := 0; step <= 600; step++ {
		at := epoch.Add(time.Duration(step) * 30 * time.Second)
		p := PhaseAt(m, at)
		require.GreaterOrEqual(t, int(p), int(prev), "phase went backward at %s", at)
		prev = p
	}
	assert.Equal(t, domain.PhaseExpired, prev)
}

func TestStateAtProgress(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	m := testMarket(epoch, 1000*time.Second, 500*time.Second)

	st := StateAt(m, epoch)
	assert.Equal(t, domain.PhaseTrading, st.Phase)
	assert.Equal(t, epoch.Add(1000*time.Second), st.EndsAt)
	assert.Equal(t, int64(1000), st.SecondsRemaining)
	assert.InDelta(t, 100.0, st.PercentRemaining, 1e-9)

	st = StateAt(m, epoch.Add(750*time.Second))
	assert.Equal(t, domain.PhaseTrading, st.Phase)
	assert.Equal(t, int64(250), st.SecondsRemaining)
	assert.InDelta(t, 25.0, st.PercentRemaining, 1e-9)

	st = StateAt(m, epoch.Add(1250*time.Second))
	assert.Equal(t, domain.PhaseRedemption, st.Phase)
	assert.Equal(t, epoch.Add(1500*time.Second), st.EndsAt)
	assert.Equal(t, int64(250), st.SecondsRemaining)
	assert.InDelta(t, 50.0, st.PercentRemaining, 1e-9)

	st = StateAt(m, epoch.Add(2000*time.Second))
	assert.Equal(t, domain.PhaseExpired, st.Phase)
	assert.Zero(t, st.SecondsRemaining)
	assert.Zero(t, st.PercentRemaining)
}

func TestStateAtZeroDuration(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()
	m := testMarket(epoch, 0, 0)

	st := StateAt(m, epoch)
	assert.Equal(t, domain.PhaseExpired, st.Phase)
	assert.Zero(t, st.PercentRemaining)
}
