package costing

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies what a composition line points at.
type Kind string

const (
	KindIngredient  Kind = "ingredient"
	KindPreparation Kind = "preparation"
)

// ParseKind normalises user input into a Kind.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindIngredient:
		return KindIngredient, nil
	case KindPreparation:
		return KindPreparation, nil
	default:
		return "", fmt.Errorf("unknown reference kind %q", value)
	}
}

// Reference is the tagged variant held by a line: an Ingredient or a Preparation.
type Reference struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// IsZero reports whether no reference has been selected.
func (r Reference) IsZero() bool {
	return r.Kind == "" || r.ID == uuid.Nil
}

func (r Reference) String() string {
	if r.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// CompositeKind distinguishes the three composite types sharing the engine.
type CompositeKind string

const (
	CompositePreparation CompositeKind = "preparation"
	CompositeModifier    CompositeKind = "modifier"
	CompositeProduct     CompositeKind = "product"
)

// ParseCompositeKind normalises user input into a CompositeKind.
func ParseCompositeKind(value string) (CompositeKind, error) {
	switch CompositeKind(strings.ToLower(strings.TrimSpace(value))) {
	case CompositePreparation:
		return CompositePreparation, nil
	case CompositeModifier:
		return CompositeModifier, nil
	case CompositeProduct:
		return CompositeProduct, nil
	default:
		return "", fmt.Errorf("unknown composite kind %q", value)
	}
}

// Priced reports whether the composite is sold and therefore carries a price and margin.
// Modifiers and products are terminal: nothing references them.
func (k CompositeKind) Priced() bool {
	return k == CompositeModifier || k == CompositeProduct
}

// FactorStatus tracks where a line's conversion factor came from.
type FactorStatus string

const (
	FactorUnresolved FactorStatus = "unresolved"
	FactorResolved   FactorStatus = "resolved"
	FactorUnverified FactorStatus = "unverified"
	FactorManual     FactorStatus = "manual"
)

// Unit is a global unit identity. It carries no conversion semantics.
type Unit struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// SupplierOffer is one supplier's price for a pack of an ingredient.
type SupplierOffer struct {
	Supplier string  `json:"supplier"`
	UnitCost float64 `json:"unit_cost"`
	PackSize float64 `json:"pack_size"`
}

// Ingredient is a leaf reference.
type Ingredient struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	BaseUnit uuid.UUID       `json:"base_unit"`
	Offers   []SupplierOffer `json:"supplier_offers"`
}

// Preparation is the catalog view of a stored preparation. Lines are needed for cycle walking.
type Preparation struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PortionCount int       `json:"portion_count"`
	PortionCost  float64   `json:"portion_cost"`
	Unit         uuid.UUID `json:"unit"`
	Version      int       `json:"version"`
	Lines        []Line    `json:"lines"`
}

// Line is one row of a composite.
type Line struct {
	Key              uuid.UUID    `json:"key"`
	Reference        Reference    `json:"reference"`
	Name             string       `json:"name,omitempty"`
	Quantity         float64      `json:"quantity"`
	RecipeUnit       uuid.UUID    `json:"recipe_unit"`
	BaseUnit         uuid.UUID    `json:"base_unit"`
	ConversionFactor float64      `json:"conversion_factor"`
	FactorStatus     FactorStatus `json:"factor_status"`
	UnitCost         float64      `json:"unit_cost"`
	ReferenceVersion int          `json:"reference_version,omitempty"`
	TotalCost        float64      `json:"total_cost"`
}

// NewLine returns an empty line: no reference, quantity 0 and an unresolved factor of 1.
func NewLine() Line {
	return Line{
		Key:              uuid.New(),
		ConversionFactor: 1,
		FactorStatus:     FactorUnresolved,
	}
}

// NeedsResolution reports whether the resolver should be asked for this line's factor.
func (l Line) NeedsResolution() bool {
	if l.Reference.IsZero() || l.RecipeUnit == uuid.Nil {
		return false
	}
	return l.FactorStatus == FactorUnresolved
}

// Composite is a Preparation, Modifier or Product under edit.
type Composite struct {
	ID           uuid.UUID     `json:"id"`
	Kind         CompositeKind `json:"kind"`
	Name         string        `json:"name"`
	PortionCount int           `json:"portion_count"`
	PortionPrice float64       `json:"portion_price"`
	Unit         uuid.UUID     `json:"unit,omitempty"`
	Version      int           `json:"version"`
	Lines        []Line        `json:"lines"`
	PortionCost  float64       `json:"portion_cost"`
}

// Margin returns the composite's display margin. Preparations are not sold and report zero.
func (c Composite) Margin() float64 {
	if !c.Kind.Priced() {
		return 0
	}
	return Margin(c.PortionPrice, c.PortionCost)
}

// Clone returns a deep copy safe to hand out of a session.
func (c Composite) Clone() Composite {
	out := c
	out.Lines = append([]Line(nil), c.Lines...)
	return out
}
