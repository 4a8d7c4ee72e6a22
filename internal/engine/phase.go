package engine

import (
	"time"

	"github.com/mintrail/phygmarket/internal/domain"
)

// PhaseState is one observation of a market's phase clock, used to drive
// countdown and progress displays.
type PhaseState struct {
	Phase domain.Phase
	// EndsAt is when the current phase ends. Zero for Unknown; for Expired
	// it is the redemption deadline that was crossed.
	EndsAt time.Time
	// SecondsRemaining until EndsAt, floored at 0.
	SecondsRemaining int64
	// PercentRemaining is remaining/totalPhaseDuration*100, clamped to
	// [0,100]. Zero for Unknown and Expired.
	PercentRemaining float64
}

// PhaseAt derives the lifecycle phase of m at the given instant. An
// uninitialized market reports PhaseUnknown — callers must not assume a
// market is live before the curve has been initialized on chain.
//
// Boundaries are half-open: the instant tradingEndsAt itself is already
// Redemption, and redemptionEndsAt is already Expired.
func PhaseAt(m domain.Market, now time.Time) domain.Phase {
	if m.InitializedAt == nil {
		return domain.PhaseUnknown
	}
	switch {
	case now.Before(m.TradingEndsAt()):
		return domain.PhaseTrading
	case now.Before(m.RedemptionEndsAt()):
		return domain.PhaseRedemption
	default:
		return domain.PhaseExpired
	}
}

// StateAt derives the full phase-clock observation of m at the given
// instant.
func StateAt(m domain.Market, now time.Time) PhaseState {
	phase := PhaseAt(m, now)
	st := PhaseState{Phase: phase}

	switch phase {
	case domain.PhaseUnknown:
		return st
	case domain.PhaseTrading:
		st.EndsAt = m.TradingEndsAt()
		st.SecondsRemaining = secondsUntil(st.EndsAt, now)
		st.PercentRemaining = percentRemaining(st.EndsAt, now, m.TradingDuration)
	case domain.PhaseRedemption:
		st.EndsAt = m.RedemptionEndsAt()
		st.SecondsRemaining = secondsUntil(st.EndsAt, now)
		st.PercentRemaining = percentRemaining(st.EndsAt, now, m.RedemptionDuration)
	case domain.PhaseExpired:
		st.EndsAt = m.RedemptionEndsAt()
	}
	return st
}

func secondsUntil(deadline, now time.Time) int64 {
	s := int64(deadline.Sub(now) / time.Second)
	if s < 0 {
		return 0
	}
	return s
}

func percentRemaining(deadline, now time.Time, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(deadline.Sub(now)) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
