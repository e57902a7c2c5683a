package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"larder/internal/catalog"
	"larder/internal/costing"
	"larder/internal/db"
	applog "larder/internal/log"
	"larder/models"
)

// New returns an in-memory sqlite database seeded with a small kitchen: a tomato sauce
// preparation and a burger that uses it.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	dsn := fmt.Sprintf("file:larder-mock-%s?mode=memory&cache=shared", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")
	tx := database.WithContext(ctx)

	kg := models.Unit{Name: "kg"}
	g := models.Unit{Name: "g"}
	portion := models.Unit{Name: "portion"}
	for _, unit := range []*models.Unit{&kg, &g, &portion} {
		if err := tx.Create(unit).Error; err != nil {
			return err
		}
	}

	tomato := models.Ingredient{
		Name:       "Tomato",
		BaseUnitID: kg.ID,
		Offers: []models.SupplierOffer{
			{Supplier: "Valle Farms", UnitCost: 4.99, PackSize: 1},
			{Supplier: "City Market", UnitCost: 10.5, PackSize: 2},
		},
	}
	bun := models.Ingredient{
		Name:       "Bun",
		BaseUnitID: portion.ID,
		Offers:     []models.SupplierOffer{{Supplier: "Corner Bakery", UnitCost: 9.6, PackSize: 12}},
	}
	cheddar := models.Ingredient{
		Name:       "Cheddar Slice",
		BaseUnitID: portion.ID,
	}
	for _, ingredient := range []*models.Ingredient{&tomato, &bun, &cheddar} {
		if err := tx.Create(ingredient).Error; err != nil {
			return err
		}
	}

	store := catalog.NewStore(database)

	tomatoLine := costing.NewLine()
	tomatoLine.Reference = costing.Reference{Kind: costing.KindIngredient, ID: tomato.ID}
	tomatoLine.Name = tomato.Name
	tomatoLine.Quantity = 2
	tomatoLine.RecipeUnit = kg.ID
	tomatoLine.BaseUnit = kg.ID
	tomatoLine.FactorStatus = costing.FactorResolved
	tomatoLine.UnitCost = 4.99

	sauce := costing.Composite{
		Kind:         costing.CompositePreparation,
		Name:         "Tomato Sauce",
		PortionCount: 4,
		Unit:         portion.ID,
		Lines:        []costing.Line{tomatoLine},
	}
	costing.RecomputeComposite(&sauce)
	sauceID, err := store.Save(ctx, sauce)
	if err != nil {
		return err
	}

	conversions := []models.ItemConversion{
		{ItemKind: string(costing.KindIngredient), ItemID: tomato.ID, FromUnitID: g.ID, ToUnitID: kg.ID, Factor: 0.001},
		{ItemKind: string(costing.KindPreparation), ItemID: sauceID, FromUnitID: g.ID, ToUnitID: portion.ID, Factor: 1.0 / 150},
	}
	for i := range conversions {
		if err := tx.Create(&conversions[i]).Error; err != nil {
			return err
		}
	}

	sauceLine := costing.NewLine()
	sauceLine.Reference = costing.Reference{Kind: costing.KindPreparation, ID: sauceID}
	sauceLine.Name = sauce.Name
	sauceLine.Quantity = 0.05
	sauceLine.RecipeUnit = portion.ID
	sauceLine.BaseUnit = portion.ID
	sauceLine.FactorStatus = costing.FactorResolved
	sauceLine.UnitCost = sauce.PortionCost
	sauceLine.ReferenceVersion = 1

	bunLine := costing.NewLine()
	bunLine.Reference = costing.Reference{Kind: costing.KindIngredient, ID: bun.ID}
	bunLine.Name = bun.Name
	bunLine.Quantity = 1
	bunLine.RecipeUnit = portion.ID
	bunLine.BaseUnit = portion.ID
	bunLine.FactorStatus = costing.FactorResolved
	bunLine.UnitCost = 0.8

	burger := costing.Composite{
		Kind:         costing.CompositeProduct,
		Name:         "Burger",
		PortionCount: 1,
		PortionPrice: 12,
		Lines:        []costing.Line{sauceLine, bunLine},
	}
	costing.RecomputeComposite(&burger)
	if _, err := store.Save(ctx, burger); err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
