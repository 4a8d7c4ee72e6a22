package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// nativeDecimals is the wei scale of the native token.
const nativeDecimals = 18

// FromWei converts a wei amount from a contract read into decimal
// native-token units. Nil is treated as zero.
func FromWei(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -nativeDecimals)
}

// ToWei converts decimal native-token units into wei for a contract call
// argument. Fractional wei is truncated.
func ToWei(d decimal.Decimal) *big.Int {
	return d.Shift(nativeDecimals).Truncate(0).BigInt()
}
