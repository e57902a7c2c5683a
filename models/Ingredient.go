package models

import "github.com/google/uuid"

type Ingredient struct {
	Model
	Name       string          `gorm:"uniqueIndex;not null" json:"name"`
	BaseUnitID uuid.UUID       `gorm:"type:uuid;not null" json:"base_unit_id"`
	BaseUnit   *Unit           `gorm:"foreignKey:BaseUnitID" json:"base_unit,omitempty"`
	Offers     []SupplierOffer `gorm:"foreignKey:IngredientID" json:"supplier_offers"`
}

// SupplierOffer holds one supplier's price for a pack of an ingredient.
type SupplierOffer struct {
	Model
	IngredientID uuid.UUID `gorm:"type:uuid;index;not null" json:"ingredient_id"`
	Supplier     string    `json:"supplier"`
	UnitCost     float64   `gorm:"not null" json:"unit_cost"`
	PackSize     float64   `gorm:"not null;default:1" json:"pack_size"`
}
