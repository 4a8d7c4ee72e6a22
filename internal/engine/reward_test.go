package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mintrail/phygmarket/internal/domain"
)

// fakeLedger returns a fixed entry or error.
type fakeLedger struct {
	entry domain.LedgerEntry
	err   error
}

func (f fakeLedger) Entry(ctx context.Context, market string, tokenID uint64) (domain.LedgerEntry, error) {
	return f.entry, f.err
}

func TestEstimateReward(t *testing.T) {
	ledger := fakeLedger{entry: domain.LedgerEntry{
		Weight:        dec("1"),
		PurchasePrice: dec("0.004"),
		PurchaseTime:  time.Now().Add(-48 * time.Hour),
		IsActive:      true,
		Accrued:       dec("0.0012"),
	}}

	q := EstimateReward(context.Background(), ledger, "0xmarket", 7, dec("3000"), discardLogger())
	assert.False(t, q.Unavailable)
	assert.True(t, q.Amount.Equal(dec("0.0012")))
	assert.True(t, q.Fiat.Valid)
	assert.True(t, q.Fiat.Amount.Equal(dec("3.6")), "got %s", q.Fiat.Amount)
}

// A failed ledger lookup must degrade to a flagged zero, never an error or a
// plausible-looking amount.
func TestEstimateRewardUnavailable(t *testing.T) {
	q := EstimateReward(context.Background(), fakeLedger{err: errors.New("contract unreachable")},
		"0xmarket", 7, dec("3000"), discardLogger())
	assert.True(t, q.Unavailable)
	assert.True(t, q.Amount.IsZero())
	assert.False(t, q.Fiat.Valid)
}

func TestEstimateRewardInactive(t *testing.T) {
	ledger := fakeLedger{entry: domain.LedgerEntry{IsActive: false, Accrued: dec("0.5")}}
	q := EstimateReward(context.Background(), ledger, "0xmarket", 7, dec("3000"), discardLogger())
	assert.True(t, q.Unavailable)
	assert.True(t, q.Amount.IsZero())
}

func TestEstimateRewardNoRate(t *testing.T) {
	ledger := fakeLedger{entry: domain.LedgerEntry{IsActive: true, Accrued: dec("0.0012")}}
	q := EstimateReward(context.Background(), ledger, "0xmarket", 7, decimal.Zero, discardLogger())
	assert.False(t, q.Unavailable)
	assert.False(t, q.Fiat.Valid)
}
