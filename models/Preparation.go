package models

import "github.com/google/uuid"

type Preparation struct {
	Model
	Name         string    `gorm:"not null" json:"name"`
	PortionCount int       `gorm:"not null;default:1" json:"portion_count"`
	UnitID       uuid.UUID `gorm:"type:uuid" json:"unit_id"`
	Unit         *Unit     `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	PortionCost  float64   `gorm:"not null;default:0" json:"portion_cost"`
	Version      int       `gorm:"not null;default:1" json:"version"`
	Fingerprint  string    `gorm:"type:varchar(64)" json:"fingerprint"`
}
