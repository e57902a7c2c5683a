package costing

import "github.com/shopspring/decimal"

// Money rounds a cost or price to cents for presentation. Stored values keep full precision.
func Money(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}

// FormatMoney renders a value with exactly two decimals.
func FormatMoney(value float64) string {
	return Money(value).StringFixed(2)
}

// FormatPercent renders a margin with two decimals and a percent sign.
func FormatPercent(value float64) string {
	return Money(value).StringFixed(2) + "%"
}
