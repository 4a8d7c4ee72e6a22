package engine

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToFiat(t *testing.T) {
	out := ToFiat(dec("0.5"), dec("3200"))
	assert.True(t, out.Valid)
	assert.True(t, out.Amount.Equal(dec("1600")), "got %s", out.Amount)

	out = ToFiat(dec("0.003"), dec("3151.37"))
	assert.True(t, out.Valid)
	assert.True(t, out.Amount.Equal(dec("9.45")), "got %s", out.Amount)
}

// A zero or missing rate must degrade to native-only display, never to
// $0.00, NaN, or infinity.
func TestToFiatNoRate(t *testing.T) {
	for _, rate := range []decimal.Decimal{decimal.Zero, dec("-1")} {
		out := ToFiat(dec("0.5"), rate)
		assert.False(t, out.Valid)
		assert.True(t, out.Amount.IsZero())

		f, _ := out.Amount.Float64()
		assert.False(t, math.IsNaN(f))
		assert.False(t, math.IsInf(f, 0))
	}
}
