package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"larder/internal/costing"
	applog "larder/internal/log"
	"larder/models"
)

// Store persists submitted composites.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save writes the composite and its lines in one transaction and returns its id. The stored
// version is bumped only when the composite's fingerprint differs from the stored one.
func (s *Store) Save(ctx context.Context, composite costing.Composite) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, gorm.ErrInvalidDB
	}
	if composite.Kind == "" {
		return uuid.Nil, errors.New("save composite: kind is required")
	}

	fingerprint := Fingerprint(composite)
	var id uuid.UUID
	var version int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		switch composite.Kind {
		case costing.CompositePreparation:
			id, version, err = savePreparation(tx, composite, fingerprint)
		case costing.CompositeModifier, costing.CompositeProduct:
			id, version, err = saveMenuItem(tx, composite, fingerprint)
		default:
			err = fmt.Errorf("unsupported composite kind %q", composite.Kind)
		}
		if err != nil {
			return err
		}
		return replaceLines(tx, ownerType(composite.Kind), id, composite.Lines)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("save %s %q: %w", composite.Kind, composite.Name, err)
	}

	applog.Debug(ctx, "composite saved", "kind", composite.Kind, "id", id, "version", version)
	return id, nil
}

func ownerType(kind costing.CompositeKind) string {
	if kind == costing.CompositePreparation {
		return models.OwnerPreparation
	}
	return models.OwnerMenuItem
}

func savePreparation(tx *gorm.DB, composite costing.Composite, fingerprint string) (uuid.UUID, int, error) {
	record := models.Preparation{}
	found := false
	if composite.ID != uuid.Nil {
		err := tx.First(&record, "id = ?", composite.ID).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return uuid.Nil, 0, err
		}
	}

	record.Name = composite.Name
	record.PortionCount = costing.EffectivePortions(composite.PortionCount)
	record.UnitID = composite.Unit
	record.PortionCost = composite.PortionCost

	if !found {
		record.ID = composite.ID
		record.Version = 1
		record.Fingerprint = fingerprint
		if err := tx.Create(&record).Error; err != nil {
			return uuid.Nil, 0, err
		}
		return record.ID, record.Version, nil
	}

	if record.Fingerprint != fingerprint {
		record.Version++
		record.Fingerprint = fingerprint
	}
	if err := tx.Save(&record).Error; err != nil {
		return uuid.Nil, 0, err
	}
	return record.ID, record.Version, nil
}

func saveMenuItem(tx *gorm.DB, composite costing.Composite, fingerprint string) (uuid.UUID, int, error) {
	record := models.MenuItem{}
	found := false
	if composite.ID != uuid.Nil {
		err := tx.First(&record, "id = ?", composite.ID).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return uuid.Nil, 0, err
		}
	}

	record.Kind = string(composite.Kind)
	record.Name = composite.Name
	record.PortionCount = costing.EffectivePortions(composite.PortionCount)
	record.PortionPrice = composite.PortionPrice
	record.PortionCost = composite.PortionCost
	record.Margin = composite.Margin()

	if !found {
		record.ID = composite.ID
		record.Version = 1
		record.Fingerprint = fingerprint
		if err := tx.Create(&record).Error; err != nil {
			return uuid.Nil, 0, err
		}
		return record.ID, record.Version, nil
	}

	if record.Fingerprint != fingerprint {
		record.Version++
		record.Fingerprint = fingerprint
	}
	if err := tx.Save(&record).Error; err != nil {
		return uuid.Nil, 0, err
	}
	return record.ID, record.Version, nil
}

func replaceLines(tx *gorm.DB, owner string, ownerID uuid.UUID, lines []costing.Line) error {
	if err := tx.Unscoped().
		Where("owner_type = ? AND owner_id = ?", owner, ownerID).
		Delete(&models.CompositionLine{}).Error; err != nil {
		return fmt.Errorf("clear lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}

	records := make([]models.CompositionLine, 0, len(lines))
	for i, line := range lines {
		if line.Key == uuid.Nil {
			line.Key = uuid.New()
		}
		records = append(records, lineToModel(owner, ownerID, i, line))
	}
	if err := tx.Create(&records).Error; err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// Load reads a stored composite with its lines in position order.
func (s *Store) Load(ctx context.Context, kind costing.CompositeKind, id uuid.UUID) (costing.Composite, error) {
	if s == nil || s.db == nil {
		return costing.Composite{}, gorm.ErrInvalidDB
	}
	db := s.db.WithContext(ctx)

	var composite costing.Composite
	switch kind {
	case costing.CompositePreparation:
		var record models.Preparation
		if err := db.First(&record, "id = ?", id).Error; err != nil {
			return costing.Composite{}, notFound("preparation", id, err)
		}
		composite = costing.Composite{
			ID:           record.ID,
			Kind:         kind,
			Name:         record.Name,
			PortionCount: record.PortionCount,
			Unit:         record.UnitID,
			Version:      record.Version,
			PortionCost:  record.PortionCost,
		}
	case costing.CompositeModifier, costing.CompositeProduct:
		var record models.MenuItem
		if err := db.First(&record, "id = ? AND kind = ?", id, string(kind)).Error; err != nil {
			return costing.Composite{}, notFound(string(kind), id, err)
		}
		composite = costing.Composite{
			ID:           record.ID,
			Kind:         kind,
			Name:         record.Name,
			PortionCount: record.PortionCount,
			PortionPrice: record.PortionPrice,
			Version:      record.Version,
			PortionCost:  record.PortionCost,
		}
	default:
		return costing.Composite{}, fmt.Errorf("unsupported composite kind %q", kind)
	}

	lines, err := loadLines(ctx, s.db, ownerType(kind), id)
	if err != nil {
		return costing.Composite{}, err
	}
	composite.Lines = lines
	return composite, nil
}

// IDs lists the stored composites of one kind, oldest first.
func (s *Store) IDs(ctx context.Context, kind costing.CompositeKind) ([]uuid.UUID, error) {
	if s == nil || s.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	var ids []uuid.UUID
	var err error
	switch kind {
	case costing.CompositePreparation:
		err = s.db.WithContext(ctx).Model(&models.Preparation{}).Order("created_at asc").Pluck("id", &ids).Error
	case costing.CompositeModifier, costing.CompositeProduct:
		err = s.db.WithContext(ctx).Model(&models.MenuItem{}).Where("kind = ?", string(kind)).Order("created_at asc").Pluck("id", &ids).Error
	default:
		return nil, fmt.Errorf("unsupported composite kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", kind, err)
	}
	return ids, nil
}
