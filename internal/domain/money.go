package domain

import "github.com/shopspring/decimal"

// Round2 rounds f to two decimal places, half away from zero, working on the
// shortest decimal representation of f so 2.675 becomes 2.68.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// Revenue returns price × quantity rounded to two decimal places.
func Revenue(price float64, quantity int64) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(quantity)).Round(2).InexactFloat64()
}
