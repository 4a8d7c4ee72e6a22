package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTopUpQuote(t *testing.T) {
	cases := []struct {
		name           string
		price          string
		threshold      string
		wantTopUp      string
		wantDiscount   string
		wantPercent    int
		wantDisplay    int
		wantFullyCovered bool
	}{
		{
			name:  "thirty percent covered",
			price: "0.003", threshold: "0.01",
			wantTopUp: "0.007", wantDiscount: "0.003",
			wantPercent: 30, wantDisplay: 30,
		},
		{
			name:  "nothing covered",
			price: "0", threshold: "0.01",
			wantTopUp: "0.01", wantDiscount: "0",
			wantPercent: 0, wantDisplay: 0,
		},
		{
			name:  "high coverage capped for display",
			price: "0.0099", threshold: "0.01",
			wantTopUp: "0.0001", wantDiscount: "0.0099",
			wantPercent: 99, wantDisplay: MaxDisplayDiscountPercent,
		},
		{
			name:  "exactly covered routes to plain redemption",
			price: "0.01", threshold: "0.01",
			wantTopUp: "0", wantDiscount: "0.01",
			wantPercent: 100, wantDisplay: MaxDisplayDiscountPercent,
			wantFullyCovered: true,
		},
		{
			name:  "overshoot clamps the same way",
			price: "0.02", threshold: "0.01",
			wantTopUp: "0", wantDiscount: "0.01",
			wantPercent: 100, wantDisplay: MaxDisplayDiscountPercent,
			wantFullyCovered: true,
		},
		{
			name:  "negative price treated as zero",
			price: "-1", threshold: "0.01",
			wantTopUp: "0.01", wantDiscount: "0",
			wantPercent: 0, wantDisplay: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := TopUpQuote(dec(tc.price), dec(tc.threshold))
			assert.True(t, q.TopUp.Equal(dec(tc.wantTopUp)), "top-up: got %s", q.TopUp)
			assert.True(t, q.DiscountAmount.Equal(dec(tc.wantDiscount)), "discount: got %s", q.DiscountAmount)
			assert.Equal(t, tc.wantPercent, q.Percent)
			assert.Equal(t, tc.wantDisplay, q.DisplayPercent)
			assert.Equal(t, tc.wantFullyCovered, q.FullyCovered)
		})
	}
}

// additionalPaymentNeeded + discountAmount must reconstruct the threshold
// whenever the price does not exceed it, and the percent stays in [0,100]
// with display capped at 97.
func TestTopUpQuoteBounds(t *testing.T) {
	threshold := dec("0.01")
	for i := 0; i <= 100; i++ {
		price := threshold.Mul(decimal.NewFromInt(int64(i))).Div(decimal.NewFromInt(100))
		q := TopUpQuote(price, threshold)

		require.GreaterOrEqual(t, q.Percent, 0)
		require.LessOrEqual(t, q.Percent, 100)
		require.LessOrEqual(t, q.DisplayPercent, MaxDisplayDiscountPercent)

		if !q.FullyCovered {
			// Duality: the floored TopUp may exceed the raw remainder only
			// within the dust floor.
			sum := q.TopUp.Add(q.DiscountAmount)
			diff := sum.Sub(threshold).Abs()
			require.True(t, diff.LessThanOrEqual(MinTopUp),
				"price=%s: top_up %s + discount %s != threshold %s", price, q.TopUp, q.DiscountAmount, threshold)
		}
	}
}

func TestTopUpQuoteDustFloor(t *testing.T) {
	threshold := dec("0.01")
	// A remainder below the dust floor still yields a payable, nonzero
	// top-up.
	price := threshold.Sub(dec("0.0000000001"))
	q := TopUpQuote(price, threshold)
	assert.False(t, q.FullyCovered)
	assert.True(t, q.TopUp.Equal(MinTopUp), "got %s", q.TopUp)
}

func TestTopUpQuoteInvalidThreshold(t *testing.T) {
	q := TopUpQuote(dec("0.01"), decimal.Zero)
	assert.Equal(t, 0, q.Percent)
	assert.True(t, q.TopUp.IsZero())
	assert.False(t, q.FullyCovered)
}
