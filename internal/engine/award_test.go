package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeAward(t *testing.T) {
	cases := []struct {
		raw          string
		wantGrant    int64
		wantFallback bool
	}{
		{"100000", 2000, false},
		{"12500", 250, false},
		{"2500", MinGrant, false}, // 2% would be 50 exactly
		{"2525", 51, false},       // 50.5 rounds up
		{"1000", MinGrant, false}, // 2% below the floor
		{"0", MinGrant, false},
		{"12.5", FallbackGrant, true}, // non-integer string from upstream
		{"", FallbackGrant, true},
		{"not-a-number", FallbackGrant, true},
		{"-10", FallbackGrant, true},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("tvl=%q", tc.raw), func(t *testing.T) {
			grant, fallback := SizeAward(tc.raw, discardLogger())
			assert.Equal(t, tc.wantGrant, grant)
			assert.Equal(t, tc.wantFallback, fallback)
		})
	}
}

// The grant never dips below the floor, whatever the read looked like.
func TestSizeAwardFloor(t *testing.T) {
	for _, raw := range []string{"0", "1", "49", "2499", "garbage", "9999999999"} {
		grant, _ := SizeAward(raw, discardLogger())
		assert.GreaterOrEqual(t, grant, MinGrant, "raw=%q", raw)
	}
}
