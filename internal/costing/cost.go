package costing

import "math"

// EffectiveUnitCost returns the cheapest per-base-unit cost across viable supplier offers.
// The second result is false when no offer is viable.
func EffectiveUnitCost(offers []SupplierOffer) (float64, bool) {
	best := math.Inf(1)
	for _, offer := range offers {
		if offer.PackSize <= 0 || offer.UnitCost < 0 {
			continue
		}
		if perUnit := offer.UnitCost / offer.PackSize; perUnit < best {
			best = perUnit
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// EffectivePortions clamps a portion count to at least one.
func EffectivePortions(count int) int {
	if count < 1 {
		return 1
	}
	return count
}

// RecomputeLine derives total_cost from quantity, factor and unit cost.
func RecomputeLine(line *Line) {
	if line == nil {
		return
	}
	line.TotalCost = line.Quantity * line.ConversionFactor * line.UnitCost
}

// RecomputeComposite recomputes every line and the composite's portion cost.
func RecomputeComposite(composite *Composite) {
	if composite == nil {
		return
	}
	sum := 0.0
	for i := range composite.Lines {
		RecomputeLine(&composite.Lines[i])
		sum += composite.Lines[i].TotalCost
	}
	composite.PortionCost = sum / float64(EffectivePortions(composite.PortionCount))
}

// TotalCost returns the sum of line totals of the composite as currently recorded.
func TotalCost(composite Composite) float64 {
	sum := 0.0
	for _, line := range composite.Lines {
		sum += line.TotalCost
	}
	return sum
}
