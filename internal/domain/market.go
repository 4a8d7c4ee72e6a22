package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketKind controls whether redemption is permitted while the market is
// still in its Trading phase.
type MarketKind string

const (
	// MarketOpen allows redemption as soon as an item's price crosses its
	// threshold, even during Trading.
	MarketOpen MarketKind = "open"
	// MarketClosed forbids redemption during Trading regardless of price.
	MarketClosed MarketKind = "closed"
)

// Valid reports whether k is a known market kind.
func (k MarketKind) Valid() bool {
	return k == MarketOpen || k == MarketClosed
}

// Phase is the temporal lifecycle phase of a market. Phases are strictly
// ordered: Trading < Redemption < Expired. A market never moves backward.
type Phase int

const (
	// PhaseUnknown is reported when the market has not been initialized on
	// chain yet. Callers must not treat an uninitialized market as live.
	PhaseUnknown Phase = iota
	PhaseTrading
	PhaseRedemption
	PhaseExpired
)

// String returns the lowercase phase name used in logs and API payloads.
func (p Phase) String() string {
	switch p {
	case PhaseTrading:
		return "trading"
	case PhaseRedemption:
		return "redemption"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether p is the Expired phase, after which no further
// pricing or redemption action is meaningful.
func (p Phase) Terminal() bool { return p == PhaseExpired }

// Market is one bonding-curve instance for one creator store.
type Market struct {
	ID       string
	Creator  string // creator wallet address
	Contract string // curve contract address
	Name     string
	Kind     MarketKind

	// InitializedAt is set once when the curve is initialized on chain and
	// is nil before that. It is the phase-clock epoch.
	InitializedAt      *time.Time
	TradingDuration    time.Duration
	RedemptionDuration time.Duration

	// TotalLockedValue is the native-token balance held by the market
	// contract. It mutates with every trade and is refreshed from chain.
	TotalLockedValue decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TradingEndsAt returns the end of the Trading phase, or the zero time when
// the market is uninitialized.
func (m Market) TradingEndsAt() time.Time {
	if m.InitializedAt == nil {
		return time.Time{}
	}
	return m.InitializedAt.Add(m.TradingDuration)
}

// RedemptionEndsAt returns the end of the Redemption phase, or the zero time
// when the market is uninitialized.
func (m Market) RedemptionEndsAt() time.Time {
	if m.InitializedAt == nil {
		return time.Time{}
	}
	return m.TradingEndsAt().Add(m.RedemptionDuration)
}
