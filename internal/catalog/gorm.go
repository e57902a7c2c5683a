package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"larder/internal/costing"
	"larder/models"
)

// GormCatalog reads the reference catalog from the application database.
type GormCatalog struct {
	db *gorm.DB
}

// NewGormCatalog wraps a gorm handle.
func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func notFound(what string, id uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, costing.ErrNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

func (c *GormCatalog) Ingredient(ctx context.Context, id uuid.UUID) (costing.Ingredient, error) {
	if c.db == nil {
		return costing.Ingredient{}, gorm.ErrInvalidDB
	}
	var record models.Ingredient
	if err := c.db.WithContext(ctx).Preload("Offers").First(&record, "id = ?", id).Error; err != nil {
		return costing.Ingredient{}, notFound("ingredient", id, err)
	}
	return ingredientFromModel(record), nil
}

func (c *GormCatalog) Preparation(ctx context.Context, id uuid.UUID) (costing.Preparation, error) {
	if c.db == nil {
		return costing.Preparation{}, gorm.ErrInvalidDB
	}
	var record models.Preparation
	if err := c.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return costing.Preparation{}, notFound("preparation", id, err)
	}
	lines, err := loadLines(ctx, c.db, models.OwnerPreparation, id)
	if err != nil {
		return costing.Preparation{}, err
	}
	return costing.Preparation{
		ID:           record.ID,
		Name:         record.Name,
		PortionCount: record.PortionCount,
		PortionCost:  record.PortionCost,
		Unit:         record.UnitID,
		Version:      record.Version,
		Lines:        lines,
	}, nil
}

func (c *GormCatalog) Units(ctx context.Context) ([]costing.Unit, error) {
	if c.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var records []models.Unit
	if err := c.db.WithContext(ctx).Order("name asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	units := make([]costing.Unit, 0, len(records))
	for _, record := range records {
		units = append(units, costing.Unit{ID: record.ID, Name: record.Name})
	}
	return units, nil
}

// ConversionFactor looks up the item-specific factor from one unit to another. A stored factor
// for the opposite direction is inverted.
func (c *GormCatalog) ConversionFactor(ctx context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error) {
	if c.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	var record models.ItemConversion
	err := c.db.WithContext(ctx).
		Where("item_kind = ? AND item_id = ? AND from_unit_id = ? AND to_unit_id = ?", string(kind), item, from, to).
		First(&record).Error
	if err == nil {
		return record.Factor, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("load conversion: %w", err)
	}

	err = c.db.WithContext(ctx).
		Where("item_kind = ? AND item_id = ? AND from_unit_id = ? AND to_unit_id = ?", string(kind), item, to, from).
		First(&record).Error
	if err == nil && record.Factor != 0 {
		return 1 / record.Factor, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("load inverse conversion: %w", err)
	}
	return 0, &costing.ConversionNotFoundError{Kind: kind, Item: item, From: from, To: to}
}

func loadLines(ctx context.Context, db *gorm.DB, ownerType string, ownerID uuid.UUID) ([]costing.Line, error) {
	var records []models.CompositionLine
	if err := db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("position asc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load lines of %s %s: %w", ownerType, ownerID, err)
	}
	return linesFromModels(records), nil
}
