package tradingutils

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundPrice rounds a price to the specified decimals
func RoundPrice(price decimal.Decimal, priceDecimals int) decimal.Decimal {
	return price.Round(int32(priceDecimals))
}

// PercentChange computes the percentage move from one price to another.
// A zero base yields zero rather than dividing by it.
func PercentChange(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred)
}

// SMA computes the simple moving average of the n values ending at
// offset (inclusive). It returns false when fewer than n values precede
// the offset.
func SMA(values []decimal.Decimal, n, offset int) (decimal.Decimal, bool) {
	if n <= 0 || offset >= len(values) || offset-n+1 < 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for i := offset - n + 1; i <= offset; i++ {
		sum = sum.Add(values[i])
	}
	return sum.Div(decimal.NewFromInt(int64(n))), true
}

// NetProfit computes profit on a round trip after per-side fees.
func NetProfit(buyPrice, sellPrice, buyFeeRate, sellFeeRate decimal.Decimal) decimal.Decimal {
	grossProfit := sellPrice.Sub(buyPrice)
	buyFee := buyPrice.Mul(buyFeeRate)
	sellFee := sellPrice.Mul(sellFeeRate)
	return grossProfit.Sub(buyFee).Sub(sellFee)
}
