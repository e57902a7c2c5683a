package models

import "github.com/google/uuid"

const (
	OwnerPreparation = "preparation"
	OwnerMenuItem    = "menu_item"
)

type CompositionLine struct {
	Model
	OwnerType string    `gorm:"type:varchar(16);index:idx_line_owner;not null" json:"owner_type"`
	OwnerID   uuid.UUID `gorm:"type:uuid;index:idx_line_owner;not null" json:"owner_id"`
	Position  int       `gorm:"not null" json:"position"`

	// --- Reference ---
	// Exactly one of these is set.
	IngredientID  *uuid.UUID `gorm:"type:uuid;index" json:"ingredient_id,omitempty"`
	PreparationID *uuid.UUID `gorm:"type:uuid;index" json:"preparation_id,omitempty"`

	Quantity         float64   `gorm:"not null" json:"quantity"`
	RecipeUnitID     uuid.UUID `gorm:"type:uuid" json:"recipe_unit_id"`
	ConversionFactor float64   `gorm:"not null;default:1" json:"conversion_factor"`
	FactorStatus     string    `gorm:"type:varchar(16)" json:"factor_status"`

	// --- Snapshots taken at selection time ---
	Name             string    `json:"name"`
	BaseUnitID       uuid.UUID `gorm:"type:uuid" json:"base_unit_id"`
	UnitCost         float64   `gorm:"not null;default:0" json:"unit_cost"`
	ReferenceVersion int       `gorm:"not null;default:0" json:"reference_version"`
	TotalCost        float64   `gorm:"not null;default:0" json:"total_cost"`
}
