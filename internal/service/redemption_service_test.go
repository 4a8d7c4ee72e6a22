package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintrail/phygmarket/internal/domain"
)

type fakeMarketStore struct {
	markets map[string]domain.Market
}

func (f *fakeMarketStore) Upsert(ctx context.Context, m domain.Market) error {
	f.markets[m.ID] = m
	return nil
}

func (f *fakeMarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range f.markets {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMarketStore) ListLive(ctx context.Context, now time.Time) ([]domain.Market, error) {
	return nil, nil
}

func (f *fakeMarketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(f.markets)), nil
}

type fakeItemStore struct {
	items map[string]domain.Item
}

func (f *fakeItemStore) Upsert(ctx context.Context, it domain.Item) error {
	f.items[it.ID] = it
	return nil
}

func (f *fakeItemStore) Get(ctx context.Context, id string) (domain.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return domain.Item{}, domain.ErrNotFound
	}
	return it, nil
}

func (f *fakeItemStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Item, error) {
	var out []domain.Item
	for _, it := range f.items {
		if it.MarketID == marketID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeItemStore) MarkRedeemed(ctx context.Context, itemID string, at time.Time) error {
	it, ok := f.items[itemID]
	if !ok {
		return domain.ErrNotFound
	}
	if it.Redeemed {
		return domain.ErrAlreadyRedeemed
	}
	it.Redeemed = true
	it.RedeemedAt = &at
	f.items[itemID] = it
	return nil
}

type fakeRedemptionStore struct {
	redemptions map[string]domain.Redemption
}

func (f *fakeRedemptionStore) Insert(ctx context.Context, r domain.Redemption) error {
	f.redemptions[r.ID] = r
	return nil
}

func (f *fakeRedemptionStore) Get(ctx context.Context, id string) (domain.Redemption, error) {
	r, ok := f.redemptions[id]
	if !ok {
		return domain.Redemption{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRedemptionStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Redemption, error) {
	var out []domain.Redemption
	for _, r := range f.redemptions {
		if r.MarketID == marketID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRedemptionStore) UpdateStatus(ctx context.Context, id string, status domain.RedemptionStatus, txHash string, confirmedAt *time.Time) error {
	r, ok := f.redemptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	r.TxHash = txHash
	r.ConfirmedAt = confirmedAt
	f.redemptions[id] = r
	return nil
}

func (f *fakeRedemptionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Redemption, error) {
	var out []domain.Redemption
	for _, r := range f.redemptions {
		if r.Status == domain.RedemptionConfirmed && r.CreatedAt.Before(before) {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeChainReader serves fixed values; tests mutate fields between calls.
type fakeChainReader struct {
	price     decimal.Decimal
	tvl       decimal.Decimal
	surcharge decimal.Decimal
	rawLocked string
}

func (f *fakeChainReader) CurrentPrice(ctx context.Context, market string, weight decimal.Decimal) (decimal.Decimal, error) {
	return f.price, nil
}

func (f *fakeChainReader) TotalLockedValue(ctx context.Context, market string) (decimal.Decimal, error) {
	return f.tvl, nil
}

func (f *fakeChainReader) PoolSurcharge(ctx context.Context, market string, tokenID uint64) (decimal.Decimal, error) {
	return f.surcharge, nil
}

func (f *fakeChainReader) RawLockedValue(ctx context.Context, market string) (string, error) {
	return f.rawLocked, nil
}

func (f *fakeChainReader) Schedule(ctx context.Context, market string) (domain.MarketSchedule, error) {
	return domain.MarketSchedule{}, nil
}

type fakeLedger struct{}

func (fakeLedger) Entry(ctx context.Context, market string, tokenID uint64) (domain.LedgerEntry, error) {
	return domain.LedgerEntry{IsActive: true, Accrued: decimal.New(1, -3)}, nil
}

type noopSnapshotCache struct{}

func (noopSnapshotCache) Set(ctx context.Context, itemID string, snap domain.Snapshot) error {
	return nil
}

func (noopSnapshotCache) Get(ctx context.Context, itemID string) (domain.Snapshot, error) {
	return domain.Snapshot{}, domain.ErrNotFound
}

func (noopSnapshotCache) Invalidate(ctx context.Context, itemID string) error { return nil }

type noopLockManager struct{}

func (noopLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	return func() {}, nil
}

type noopBus struct{}

func (noopBus) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

func (noopBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (noopBus) StreamAppend(ctx context.Context, stream string, payload []byte) error { return nil }

func (noopBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fixedRate struct{ rate decimal.Decimal }

func (f fixedRate) NativeToFiat(ctx context.Context) (decimal.Decimal, error) {
	return f.rate, nil
}

type redemptionFixture struct {
	svc         *RedemptionService
	items       *fakeItemStore
	redemptions *fakeRedemptionStore
	reader      *fakeChainReader
}

func newRedemptionFixture(t *testing.T, kind domain.MarketKind, initAgo time.Duration) *redemptionFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	init := time.Now().UTC().Add(-initAgo)
	markets := &fakeMarketStore{markets: map[string]domain.Market{
		"m1": {
			ID:                 "m1",
			Contract:           "0xabc",
			Name:               "demo",
			Kind:               kind,
			InitializedAt:      &init,
			TradingDuration:    time.Hour,
			RedemptionDuration: time.Hour,
		},
	}}
	items := &fakeItemStore{items: map[string]domain.Item{
		"i1": {
			ID:                  "i1",
			MarketID:            "m1",
			TokenID:             7,
			Weight:              decimal.NewFromInt(1),
			RedemptionThreshold: decimal.RequireFromString("0.01"),
			Holder:              "0xholder",
		},
	}}
	redemptions := &fakeRedemptionStore{redemptions: map[string]domain.Redemption{}}
	reader := &fakeChainReader{
		price:     decimal.RequireFromString("0.02"),
		tvl:       decimal.RequireFromString("1.5"),
		surcharge: decimal.RequireFromString("0.005"),
		rawLocked: "2525",
	}

	marketSvc := NewMarketService(markets, items, reader, fakeLedger{}, noopSnapshotCache{}, fixedRate{decimal.NewFromInt(3000)}, noopBus{}, logger)
	svc := NewRedemptionService(markets, items, redemptions, reader, marketSvc, noopSnapshotCache{}, noopLockManager{}, noopBus{}, nil, time.Second, logger)

	return &redemptionFixture{svc: svc, items: items, redemptions: redemptions, reader: reader}
}

func TestRedeemEligibleTakesNoTopUp(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketOpen, 30*time.Minute)
	ctx := context.Background()

	r, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.True(t, r.TopUpPaid.IsZero())
	assert.Equal(t, domain.RedemptionPending, r.Status)
	assert.Equal(t, int64(51), r.AwardGranted) // 2% of 2525, floored at 50
	assert.False(t, r.AwardFallback)
}

func TestRedeemRequiresTopUpBelowThreshold(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketOpen, 30*time.Minute)
	fx.reader.price = decimal.RequireFromString("0.003")
	ctx := context.Background()

	// 0.007 short of the 0.01 threshold: underpaying is rejected.
	_, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.RequireFromString("0.005"))
	assert.ErrorIs(t, err, domain.ErrNotRedeemable)

	r, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.RequireFromString("0.007"))
	require.NoError(t, err)
	assert.True(t, r.TopUpPaid.Equal(decimal.RequireFromString("0.007")))
}

func TestRedeemClosedMarketDuringTrading(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketClosed, 30*time.Minute)
	ctx := context.Background()

	// Price is over the threshold but the market kind forbids redemption
	// before the trading phase ends, and a top-up cannot override that.
	_, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.RequireFromString("1"))
	assert.ErrorIs(t, err, domain.ErrNotRedeemable)
}

func TestRedeemExpiredPoolRule(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketOpen, 3*time.Hour)
	ctx := context.Background()

	// Pool too shallow: threshold 0.01 + surcharge 0.005 > tvl.
	fx.reader.tvl = decimal.RequireFromString("0.0149")
	_, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrMarketExpired)

	fx.reader.tvl = decimal.RequireFromString("0.015")
	r, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, r.TopUpPaid.IsZero())
}

func TestRedeemMalformedLockedValueFallsBack(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketOpen, 30*time.Minute)
	fx.reader.rawLocked = "12.5"
	ctx := context.Background()

	r, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(250), r.AwardGranted)
	assert.True(t, r.AwardFallback)
}

func TestConfirmIsWriteOnce(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketOpen, 30*time.Minute)
	ctx := context.Background()

	r, err := fx.svc.Redeem(ctx, "i1", "0xholder", decimal.Zero)
	require.NoError(t, err)

	confirmed, err := fx.svc.Confirm(ctx, r.ID, "0xtx")
	require.NoError(t, err)
	assert.Equal(t, domain.RedemptionConfirmed, confirmed.Status)
	assert.Equal(t, "0xtx", confirmed.TxHash)
	require.NotNil(t, confirmed.ConfirmedAt)

	// Confirming again is a no-op, not a second claim.
	again, err := fx.svc.Confirm(ctx, r.ID, "0xother")
	require.NoError(t, err)
	assert.Equal(t, "0xtx", again.TxHash)

	// A second redemption of the same item is rejected outright.
	_, err = fx.svc.Redeem(ctx, "i1", "0xholder", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrAlreadyRedeemed)
}

func TestQuoteItemIncludesDiscountWhenNotRedeemable(t *testing.T) {
	fx := newRedemptionFixture(t, domain.MarketOpen, 30*time.Minute)
	fx.reader.price = decimal.RequireFromString("0.003")
	ctx := context.Background()

	quote, err := fx.svc.marketSvc.QuoteItem(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "trading", quote.PhaseName)
	assert.False(t, quote.Redeemable)
	require.NotNil(t, quote.Discount)
	assert.Equal(t, 30, quote.Discount.Percent)
	assert.True(t, quote.Discount.TopUp.Equal(decimal.RequireFromString("0.007")))
	assert.True(t, quote.PriceFiat.Valid)
	assert.False(t, quote.Reward.Unavailable)
}
