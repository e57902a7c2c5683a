package costing

// Margin returns the percentage of price left after cost. A non-positive price yields zero.
func Margin(price, cost float64) float64 {
	if price <= 0 {
		return 0
	}
	return (price - cost) / price * 100
}
