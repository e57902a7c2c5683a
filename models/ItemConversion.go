package models

import "github.com/google/uuid"

// ItemConversion is an item-specific factor: one FromUnit of the item equals Factor ToUnits.
// "1 portion of Sauce = 150 g" holds only for that sauce.
type ItemConversion struct {
	Model
	ItemKind   string    `gorm:"type:varchar(16);uniqueIndex:idx_item_conversion;not null" json:"item_kind"`
	ItemID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_item_conversion;not null" json:"item_id"`
	FromUnitID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_item_conversion;not null" json:"from_unit_id"`
	ToUnitID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_item_conversion;not null" json:"to_unit_id"`
	Factor     float64   `gorm:"not null" json:"factor"`
}
