// Package catalog is the reference catalog and persistence collaborator of the costing engine.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"larder/internal/costing"
)

// Reader is the read-only reference catalog consumed by editing sessions.
type Reader interface {
	Ingredient(ctx context.Context, id uuid.UUID) (costing.Ingredient, error)
	Preparation(ctx context.Context, id uuid.UUID) (costing.Preparation, error)
	Units(ctx context.Context) ([]costing.Unit, error)
	ConversionFactor(ctx context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error)
}
