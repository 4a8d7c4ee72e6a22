package engine

import (
	"github.com/mintrail/phygmarket/internal/domain"
)

// Redeemable decides whether an item can be redeemed right now, from a fresh
// chain snapshot. It must be re-evaluated on every price read: any trade on
// the market moves the curve for every outstanding item, so eligibility is
// never cached across trades.
//
// Rules, in order:
//   - a consumed item is never redeemable again;
//   - an uninitialized market has no live items;
//   - after expiry, redemption requires the pool to still hold the item's
//     threshold plus the tracker's pool-level surcharge;
//   - a closed market never redeems during Trading, regardless of price;
//   - otherwise the item is redeemable once its price reaches its threshold.
func Redeemable(item domain.Item, market domain.Market, phase domain.Phase, snap domain.Snapshot) bool {
	if item.Redeemed {
		return false
	}
	switch {
	case phase == domain.PhaseUnknown:
		return false
	case phase == domain.PhaseExpired:
		required := item.RedemptionThreshold.Add(snap.PoolSurcharge)
		return snap.TotalLockedValue.GreaterThanOrEqual(required)
	case market.Kind == domain.MarketClosed && phase == domain.PhaseTrading:
		return false
	default:
		return ItemPrice(snap).GreaterThanOrEqual(item.RedemptionThreshold)
	}
}
