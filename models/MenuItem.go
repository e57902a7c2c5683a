package models

const (
	MenuItemModifier = "modifier"
	MenuItemProduct  = "product"
)

// MenuItem is a sold composite: a modifier or a product. Nothing references it.
type MenuItem struct {
	Model
	Kind         string  `gorm:"type:varchar(16);index;not null" json:"kind"`
	Name         string  `gorm:"not null" json:"name"`
	PortionCount int     `gorm:"not null;default:1" json:"portion_count"`
	PortionPrice float64 `gorm:"not null;default:0" json:"portion_price"`
	PortionCost  float64 `gorm:"not null;default:0" json:"portion_cost"`
	Margin       float64 `gorm:"not null;default:0" json:"margin"`
	Version      int     `gorm:"not null;default:1" json:"version"`
	Fingerprint  string  `gorm:"type:varchar(64)" json:"fingerprint"`
}
