package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"larder/internal/costing"
	"larder/models"
)

func sampleSauce(kg, tomatoID uuid.UUID) costing.Composite {
	line := costing.NewLine()
	line.Reference = costing.Reference{Kind: costing.KindIngredient, ID: tomatoID}
	line.Name = "Tomato"
	line.Quantity = 0.5
	line.RecipeUnit = kg
	line.BaseUnit = kg
	line.FactorStatus = costing.FactorResolved
	line.UnitCost = 2.9

	composite := costing.Composite{
		Kind:         costing.CompositePreparation,
		Name:         "Tomato Sauce",
		PortionCount: 1,
		Unit:         kg,
		Lines:        []costing.Line{line},
	}
	costing.RecomputeComposite(&composite)
	return composite
}

func TestStoreSaveAndLoadPreparation(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	kg := uuid.New()
	tomato := uuid.New()

	composite := sampleSauce(kg, tomato)
	id, err := store.Save(ctx, composite)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Save returned nil id")
	}

	loaded, err := store.Load(ctx, costing.CompositePreparation, id)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Version != 1 {
		t.Fatalf("Version = %d, want 1", loaded.Version)
	}
	if math.Abs(loaded.PortionCost-1.45) > 1e-9 {
		t.Fatalf("PortionCost = %v, want 1.45", loaded.PortionCost)
	}
	if len(loaded.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(loaded.Lines))
	}
	got := loaded.Lines[0]
	if got.Key != composite.Lines[0].Key {
		t.Fatalf("line key = %s, want %s", got.Key, composite.Lines[0].Key)
	}
	if got.Reference.ID != tomato || got.FactorStatus != costing.FactorResolved || got.TotalCost != composite.Lines[0].TotalCost {
		t.Fatalf("unexpected line: %+v", got)
	}

	// the saved preparation is visible to the catalog reader
	prep, err := NewGormCatalog(db).Preparation(ctx, id)
	if err != nil {
		t.Fatalf("Preparation returned error: %v", err)
	}
	if prep.Name != "Tomato Sauce" || len(prep.Lines) != 1 {
		t.Fatalf("unexpected catalog view: %+v", prep)
	}
}

func TestStoreVersionBumpsOnlyOnChange(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t))
	ctx := context.Background()

	composite := sampleSauce(uuid.New(), uuid.New())
	id, err := store.Save(ctx, composite)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	composite.ID = id

	if _, err := store.Save(ctx, composite); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}
	loaded, err := store.Load(ctx, costing.CompositePreparation, id)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Version != 1 {
		t.Fatalf("Version after unchanged save = %d, want 1", loaded.Version)
	}

	composite.Lines[0].Quantity = 1
	costing.RecomputeComposite(&composite)
	if _, err := store.Save(ctx, composite); err != nil {
		t.Fatalf("third Save returned error: %v", err)
	}
	loaded, err = store.Load(ctx, costing.CompositePreparation, id)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Version != 2 {
		t.Fatalf("Version after change = %d, want 2", loaded.Version)
	}
	if len(loaded.Lines) != 1 || loaded.Lines[0].Quantity != 1 {
		t.Fatalf("lines were not replaced: %+v", loaded.Lines)
	}
}

func TestStoreSavesFactorStatusChange(t *testing.T) {
	t.Parallel()

	store := NewStore(openTestDB(t))
	ctx := context.Background()

	composite := sampleSauce(uuid.New(), uuid.New())
	composite.Lines[0].FactorStatus = costing.FactorUnresolved
	id, err := store.Save(ctx, composite)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	composite.ID = id

	// confirming a factor of 1 leaves every cost unchanged
	composite.Lines[0].FactorStatus = costing.FactorResolved
	if _, err := store.Save(ctx, composite); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}
	loaded, err := store.Load(ctx, costing.CompositePreparation, id)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Version != 2 {
		t.Fatalf("Version = %d, want 2", loaded.Version)
	}
	if got := loaded.Lines[0].FactorStatus; got != costing.FactorResolved {
		t.Fatalf("FactorStatus = %s, want %s", got, costing.FactorResolved)
	}
}

func TestStoreSaveMenuItemRecordsMargin(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	composite := sampleSauce(uuid.New(), uuid.New())
	composite.Kind = costing.CompositeProduct
	composite.Name = "Burger"
	composite.PortionPrice = 12

	id, err := store.Save(ctx, composite)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	var record models.MenuItem
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		t.Fatalf("query menu item: %v", err)
	}
	want := costing.Margin(12, composite.PortionCost)
	if math.Abs(record.Margin-want) > 1e-9 {
		t.Fatalf("Margin = %v, want %v", record.Margin, want)
	}

	if _, err := store.Load(ctx, costing.CompositeModifier, id); !errors.Is(err, costing.ErrNotFound) {
		t.Fatalf("Load as modifier error = %v, want ErrNotFound", err)
	}

	ids, err := store.IDs(ctx, costing.CompositeProduct)
	if err != nil {
		t.Fatalf("IDs returned error: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("IDs = %v, want [%s]", ids, id)
	}
}

func TestStoreRejectsMissingKind(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(openTestDB(t)).Save(context.Background(), costing.Composite{Name: "x"}); err == nil {
		t.Fatal("expected error for composite without kind")
	}
}

func TestFingerprintTracksCostInputs(t *testing.T) {
	t.Parallel()

	composite := sampleSauce(uuid.New(), uuid.New())
	base := Fingerprint(composite)
	if len(base) != 64 {
		t.Fatalf("len(Fingerprint) = %d, want 64", len(base))
	}
	if again := Fingerprint(composite.Clone()); again != base {
		t.Fatalf("Fingerprint is not stable: %s != %s", again, base)
	}

	changed := composite.Clone()
	changed.Lines[0].UnitCost = 3
	if Fingerprint(changed) == base {
		t.Fatal("Fingerprint ignored unit cost change")
	}

	confirmed := composite.Clone()
	confirmed.Lines[0].FactorStatus = costing.FactorManual
	if Fingerprint(confirmed) == base {
		t.Fatal("Fingerprint ignored factor status change")
	}

	renamed := composite.Clone()
	renamed.Lines[0].Name = "Roma tomato"
	if Fingerprint(renamed) != base {
		t.Fatal("Fingerprint should ignore snapshot display names")
	}
}
