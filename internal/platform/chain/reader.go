package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/shopspring/decimal"

	"github.com/mintrail/phygmarket/internal/domain"
)

// Reader implements domain.ChainReader and domain.RewardLedger against
// deployed curve and tracker contracts. Bound curve contracts are cached per
// market address; all calls are plain eth_call views.
type Reader struct {
	client  *Client
	tracker *bind.BoundContract

	mu     sync.Mutex
	curves map[string]*bind.BoundContract
}

// NewReader creates a Reader using the given client and tracker contract
// address.
func NewReader(client *Client, trackerAddr string) *Reader {
	return &Reader{
		client:  client,
		tracker: bindTracker(trackerAddr, client.Underlying()),
		curves:  make(map[string]*bind.BoundContract),
	}
}

func (r *Reader) curve(market string) *bind.BoundContract {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.curves[market]; ok {
		return c
	}
	c := bindCurve(market, r.client.Underlying())
	r.curves[market] = c
	return c
}

// callUint performs a single view call returning one uint256.
func (r *Reader) callUint(ctx context.Context, contract *bind.BoundContract, method string, args ...any) (*big.Int, error) {
	ctx, cancel := r.client.callCtx(ctx)
	defer cancel()

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected output arity %d", len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", out[0])
	}
	return v, nil
}

// CurrentPrice evaluates the curve's buy price for the given weight.
func (r *Reader) CurrentPrice(ctx context.Context, market string, weight decimal.Decimal) (decimal.Decimal, error) {
	v, err := r.callUint(ctx, r.curve(market), "getCurrentPrice", ToWei(weight))
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: current price %s: %w", market, err)
	}
	return FromWei(v), nil
}

// TotalLockedValue returns the native balance held by the market contract.
func (r *Reader) TotalLockedValue(ctx context.Context, market string) (decimal.Decimal, error) {
	v, err := r.callUint(ctx, r.curve(market), "totalLockedValue")
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: total locked value %s: %w", market, err)
	}
	return FromWei(v), nil
}

// PoolSurcharge returns the tracker's pool-level liquidity requirement for
// the item. This read is the canonical source for post-expiry eligibility.
func (r *Reader) PoolSurcharge(ctx context.Context, market string, tokenID uint64) (decimal.Decimal, error) {
	v, err := r.callUint(ctx, r.tracker, "getNFTLiquidityRequirement", toAddressArg(market), new(big.Int).SetUint64(tokenID))
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain: pool surcharge %s/%d: %w", market, tokenID, err)
	}
	return FromWei(v), nil
}

// RawLockedValue returns the tracker's locked-value read unparsed, in token
// units, for the award sizer's fallback path.
func (r *Reader) RawLockedValue(ctx context.Context, market string) (string, error) {
	v, err := r.callUint(ctx, r.tracker, "lockedValueOf", toAddressArg(market))
	if err != nil {
		return "", fmt.Errorf("chain: raw locked value %s: %w", market, err)
	}
	return v.String(), nil
}

// Schedule returns the curve initialization time and phase durations. An
// initializedAt of zero on chain means the curve has not been initialized;
// it is reported as a nil timestamp so the phase clock yields Unknown.
func (r *Reader) Schedule(ctx context.Context, market string) (domain.MarketSchedule, error) {
	curve := r.curve(market)

	initAt, err := r.callUint(ctx, curve, "initializedAt")
	if err != nil {
		return domain.MarketSchedule{}, fmt.Errorf("chain: initialized at %s: %w", market, err)
	}
	trading, err := r.callUint(ctx, curve, "tradingDuration")
	if err != nil {
		return domain.MarketSchedule{}, fmt.Errorf("chain: trading duration %s: %w", market, err)
	}
	redemption, err := r.callUint(ctx, curve, "redemptionDuration")
	if err != nil {
		return domain.MarketSchedule{}, fmt.Errorf("chain: redemption duration %s: %w", market, err)
	}

	sched := domain.MarketSchedule{
		TradingDuration:    time.Duration(trading.Int64()) * time.Second,
		RedemptionDuration: time.Duration(redemption.Int64()) * time.Second,
	}
	if initAt.Sign() > 0 {
		t := time.Unix(initAt.Int64(), 0).UTC()
		sched.InitializedAt = &t
	}
	return sched, nil
}

// Entry returns the reward ledger tuple for the item.
func (r *Reader) Entry(ctx context.Context, market string, tokenID uint64) (domain.LedgerEntry, error) {
	ctx, cancel := r.client.callCtx(ctx)
	defer cancel()

	var out []any
	err := r.tracker.Call(&bind.CallOpts{Context: ctx}, &out, "ledgerEntry", toAddressArg(market), new(big.Int).SetUint64(tokenID))
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("chain: ledger entry %s/%d: %w", market, tokenID, err)
	}
	if len(out) != 5 {
		return domain.LedgerEntry{}, fmt.Errorf("chain: ledger entry %s/%d: unexpected output arity %d", market, tokenID, len(out))
	}

	weight, _ := out[0].(*big.Int)
	price, _ := out[1].(*big.Int)
	purchased, _ := out[2].(*big.Int)
	active, _ := out[3].(bool)
	accrued, _ := out[4].(*big.Int)

	entry := domain.LedgerEntry{
		Weight:        FromWei(weight),
		PurchasePrice: FromWei(price),
		IsActive:      active,
		Accrued:       FromWei(accrued),
	}
	if purchased != nil && purchased.Sign() > 0 {
		entry.PurchaseTime = time.Unix(purchased.Int64(), 0).UTC()
	}
	return entry, nil
}

// Compile-time interface checks.
var (
	_ domain.ChainReader  = (*Reader)(nil)
	_ domain.RewardLedger = (*Reader)(nil)
)
