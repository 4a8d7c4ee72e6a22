package chain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromWei(t *testing.T) {
	one := new(big.Int)
	one.SetString("1000000000000000000", 10)
	assert.True(t, FromWei(one).Equal(decimal.NewFromInt(1)))

	small := big.NewInt(3_000_000_000_000_000) // 0.003 ether
	assert.True(t, FromWei(small).Equal(decimal.RequireFromString("0.003")))

	assert.True(t, FromWei(nil).IsZero())
}

func TestToWeiRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.003", "1", "12.5", "0.000001"} {
		d := decimal.RequireFromString(s)
		assert.True(t, FromWei(ToWei(d)).Equal(d), "round trip %s", s)
	}

	// Sub-wei fractions truncate.
	tiny := decimal.RequireFromString("0.0000000000000000005")
	assert.Equal(t, int64(0), ToWei(tiny).Int64())
}
