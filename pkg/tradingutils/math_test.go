package tradingutils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestRoundPrice(t *testing.T) {
	assert.True(t, d(187.25).Equal(RoundPrice(d(187.2468), 2)))
	assert.True(t, d(187.0).Equal(RoundPrice(d(187.2468), 0)))
}

func TestPercentChange(t *testing.T) {
	assert.True(t, d(10).Equal(PercentChange(d(100), d(110))))
	assert.True(t, d(-50).Equal(PercentChange(d(100), d(50))))
	assert.True(t, decimal.Zero.Equal(PercentChange(decimal.Zero, d(50))))
}

func TestSMA(t *testing.T) {
	values := []decimal.Decimal{d(1), d(2), d(3), d(4), d(5)}

	avg, ok := SMA(values, 3, 4)
	require.True(t, ok)
	assert.True(t, d(4).Equal(avg))

	avg, ok = SMA(values, 5, 4)
	require.True(t, ok)
	assert.True(t, d(3).Equal(avg))

	_, ok = SMA(values, 3, 1)
	assert.False(t, ok, "not enough values before the offset")
	_, ok = SMA(values, 0, 4)
	assert.False(t, ok)
	_, ok = SMA(values, 3, 9)
	assert.False(t, ok)
}

func TestNetProfit(t *testing.T) {
	// Buy at 100, sell at 110, 0.1% fee each side.
	profit := NetProfit(d(100), d(110), d(0.001), d(0.001))
	assert.True(t, d(9.79).Equal(profit))
}
