package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a display price to the processor's integer minor
// currency unit, rounding half away from zero.
func ToMinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(amount int64) float64 {
	return decimal.New(amount, -2).InexactFloat64()
}

// CartTotal sums price*quantity over the snapshot without float drift.
func CartTotal(items []CartItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.InexactFloat64()
}
