package models

// Unit is a global unit identity such as "kg", "portion" or "bottle".
type Unit struct {
	Model
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}
