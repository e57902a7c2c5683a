package catalog

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"larder/internal/costing"
)

// Fingerprint hashes everything that determines a composite's cost. A stored composite's
// version is bumped only when its fingerprint changes.
func Fingerprint(c costing.Composite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s|%s\n", c.Kind, strings.TrimSpace(c.Name), costing.EffectivePortions(c.PortionCount), formatFloat(c.PortionPrice), c.Unit)
	for _, line := range c.Lines {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s|%d\n",
			line.Reference,
			formatFloat(line.Quantity),
			line.RecipeUnit,
			line.BaseUnit,
			formatFloat(line.ConversionFactor),
			line.FactorStatus,
			formatFloat(line.UnitCost),
			line.ReferenceVersion,
		)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
