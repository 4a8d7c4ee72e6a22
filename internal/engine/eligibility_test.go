package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mintrail/phygmarket/internal/domain"
)

func testItem(threshold string) domain.Item {
	return domain.Item{
		ID:                  "item-1",
		MarketID:            "mkt-1",
		Weight:              dec("1"),
		RedemptionThreshold: dec(threshold),
	}
}

func snapAt(price string) domain.Snapshot {
	return domain.Snapshot{
		MarketID:     "mkt-1",
		CurrentPrice: dec(price),
		TakenAt:      time.Now().UTC(),
	}
}

func TestRedeemableAtThreshold(t *testing.T) {
	item := testItem("0.01")

	open := domain.Market{ID: "mkt-1", Kind: domain.MarketOpen}
	closed := domain.Market{ID: "mkt-1", Kind: domain.MarketClosed}

	// Price equals threshold: an open market redeems even during Trading,
	// a closed one never does.
	assert.True(t, Redeemable(item, open, domain.PhaseTrading, snapAt("0.01")))
	assert.False(t, Redeemable(item, closed, domain.PhaseTrading, snapAt("0.01")))

	// In Redemption phase the kind no longer matters.
	assert.True(t, Redeemable(item, closed, domain.PhaseRedemption, snapAt("0.01")))

	// Below threshold nothing redeems.
	assert.False(t, Redeemable(item, open, domain.PhaseTrading, snapAt("0.009999")))
	assert.False(t, Redeemable(item, open, domain.PhaseRedemption, snapAt("0.009999")))
}

func TestRedeemableClosedDuringTradingIgnoresPrice(t *testing.T) {
	item := testItem("0.01")
	closed := domain.Market{ID: "mkt-1", Kind: domain.MarketClosed}

	for _, price := range []string{"0.01", "1", "1000000"} {
		assert.False(t, Redeemable(item, closed, domain.PhaseTrading, snapAt(price)),
			"closed market redeemed during trading at price %s", price)
	}
}

func TestRedeemableExpiredRequiresPool(t *testing.T) {
	item := testItem("0.01")
	m := domain.Market{ID: "mkt-1", Kind: domain.MarketOpen}

	snap := snapAt("1") // price is irrelevant after expiry
	snap.PoolSurcharge = dec("0.005")

	snap.TotalLockedValue = dec("0.0149")
	assert.False(t, Redeemable(item, m, domain.PhaseExpired, snap))

	snap.TotalLockedValue = dec("0.015")
	assert.True(t, Redeemable(item, m, domain.PhaseExpired, snap))
}

func TestRedeemableGuards(t *testing.T) {
	m := domain.Market{ID: "mkt-1", Kind: domain.MarketOpen}

	redeemed := testItem("0.01")
	redeemed.Redeemed = true
	assert.False(t, Redeemable(redeemed, m, domain.PhaseRedemption, snapAt("1")))

	// Uninitialized market: nothing is live.
	assert.False(t, Redeemable(testItem("0.01"), m, domain.PhaseUnknown, snapAt("1")))
}

func TestItemPriceClampsNegative(t *testing.T) {
	snap := snapAt("-0.5")
	assert.True(t, ItemPrice(snap).Equal(decimal.Zero))

	price, fiat := PriceQuote(snapAt("0.25"), dec("4000"))
	assert.True(t, price.Equal(dec("0.25")))
	assert.True(t, fiat.Valid)
	assert.True(t, fiat.Amount.Equal(dec("1000")), "got %s", fiat.Amount)
}
