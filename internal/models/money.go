package models

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimal places for every monetary amount.
const MoneyPlaces = 2

// LineTotal returns price*quantity rounded to two decimals.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(MoneyPlaces)
}

// ValidPrice reports whether p is positive and has at most two decimals.
func ValidPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.Equal(p.Round(MoneyPlaces))
}
