package main

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"larder/internal/catalog"
	"larder/internal/costing"
	"larder/internal/db/mock"
	"larder/models"
)

func TestRecostPropagatesOfferChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := mock.New(ctx)
	if err != nil {
		t.Fatalf("mock.New() error = %v", err)
	}

	if err := database.Model(&models.SupplierOffer{}).
		Where("supplier = ?", "Valle Farms").
		Update("unit_cost", 8).Error; err != nil {
		t.Fatalf("update offer: %v", err)
	}

	report, err := newRecoster(database, 16).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Preparations != 1 || report.MenuItems != 1 || report.Changed != 2 || report.StaleLines != 0 {
		t.Fatalf("report = %+v", report)
	}

	var sauce models.Preparation
	if err := database.First(&sauce, "name = ?", "Tomato Sauce").Error; err != nil {
		t.Fatalf("query sauce: %v", err)
	}
	if math.Abs(sauce.PortionCost-2.625) > 1e-9 || sauce.Version != 2 {
		t.Fatalf("sauce = cost %v version %d, want 2.625 version 2", sauce.PortionCost, sauce.Version)
	}

	var burgerRecord models.MenuItem
	if err := database.First(&burgerRecord, "name = ?", "Burger").Error; err != nil {
		t.Fatalf("query burger: %v", err)
	}
	if math.Abs(burgerRecord.PortionCost-0.93125) > 1e-9 || burgerRecord.Version != 2 {
		t.Fatalf("burger = cost %v version %d, want 0.93125 version 2", burgerRecord.PortionCost, burgerRecord.Version)
	}

	burger, err := catalog.NewStore(database).Load(ctx, costing.CompositeProduct, burgerRecord.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := burger.Lines[0].ReferenceVersion; got != 2 {
		t.Fatalf("sauce line reference version = %d, want 2", got)
	}

	again, err := newRecoster(database, 16).Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if again.Changed != 0 {
		t.Fatalf("second run changed %d composites, want 0", again.Changed)
	}
}

func TestRecostCountsStaleLines(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := mock.New(ctx)
	if err != nil {
		t.Fatalf("mock.New() error = %v", err)
	}

	if err := database.Where("name = ?", "Bun").Delete(&models.Ingredient{}).Error; err != nil {
		t.Fatalf("delete bun: %v", err)
	}

	report, err := newRecoster(database, 16).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.StaleLines != 1 {
		t.Fatalf("stale lines = %d, want 1", report.StaleLines)
	}
}

func TestRecostConfirmsUnresolvedFactors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := mock.New(ctx)
	if err != nil {
		t.Fatalf("mock.New() error = %v", err)
	}

	var sauceRecord models.Preparation
	if err := database.First(&sauceRecord, "name = ?", "Tomato Sauce").Error; err != nil {
		t.Fatalf("query sauce: %v", err)
	}
	store := catalog.NewStore(database)
	sauce, err := store.Load(ctx, costing.CompositePreparation, sauceRecord.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sauce.Lines[0].FactorStatus = costing.FactorUnresolved
	if _, err := store.Save(ctx, sauce); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := newRecoster(database, 16).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	reloaded, err := store.Load(ctx, costing.CompositePreparation, sauceRecord.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	line := reloaded.Lines[0]
	if line.FactorStatus != costing.FactorResolved || line.ConversionFactor != 1 {
		t.Fatalf("tomato line = %s factor %v, want resolved factor 1", line.FactorStatus, line.ConversionFactor)
	}
}

func prepWithChildren(id uuid.UUID, children ...uuid.UUID) costing.Composite {
	composite := costing.Composite{ID: id, Kind: costing.CompositePreparation}
	for _, child := range children {
		line := costing.NewLine()
		line.Reference = costing.Reference{Kind: costing.KindPreparation, ID: child}
		composite.Lines = append(composite.Lines, line)
	}
	return composite
}

func TestBottomUpOrdersChildrenFirst(t *testing.T) {
	t.Parallel()

	base, middle, top := uuid.New(), uuid.New(), uuid.New()
	preparations := map[uuid.UUID]costing.Composite{
		top:    prepWithChildren(top, middle, base),
		middle: prepWithChildren(middle, base, base),
		base:   prepWithChildren(base),
	}

	order, err := bottomUp(preparations)
	if err != nil {
		t.Fatalf("bottomUp() error = %v", err)
	}
	position := make(map[uuid.UUID]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	if len(order) != 3 || position[base] > position[middle] || position[middle] > position[top] {
		t.Fatalf("order = %v, want base, middle, top", order)
	}
}

func TestBottomUpRejectsCycle(t *testing.T) {
	t.Parallel()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	preparations := map[uuid.UUID]costing.Composite{
		a: prepWithChildren(a, b),
		b: prepWithChildren(b, a),
		c: prepWithChildren(c),
	}

	if _, err := bottomUp(preparations); !errors.Is(err, errCircularReference) {
		t.Fatalf("bottomUp() error = %v, want errCircularReference", err)
	}
}
