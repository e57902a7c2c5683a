package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"larder/internal/catalog"
	"larder/internal/conversion"
	"larder/internal/costing"
	applog "larder/internal/log"
)

var errCircularReference = errors.New("preparations reference each other in a cycle")

// Report summarises one batch run.
type Report struct {
	Preparations int
	MenuItems    int
	Changed      int
	StaleLines   int
}

type recoster struct {
	store    *catalog.Store
	reader   *catalog.GormCatalog
	resolver *conversion.Resolver
}

func newRecoster(database *gorm.DB, cacheSize int) *recoster {
	reader := catalog.NewGormCatalog(database)
	return &recoster{
		store:    catalog.NewStore(database),
		reader:   reader,
		resolver: conversion.NewResolver(reader, conversion.Options{CacheSize: cacheSize}),
	}
}

// Run recomputes every preparation after the preparations it uses, then every menu item,
// refreshing line snapshots on the way.
func (r *recoster) Run(ctx context.Context) (Report, error) {
	var report Report

	ids, err := r.store.IDs(ctx, costing.CompositePreparation)
	if err != nil {
		return report, err
	}
	preparations := make(map[uuid.UUID]costing.Composite, len(ids))
	for _, id := range ids {
		composite, err := r.store.Load(ctx, costing.CompositePreparation, id)
		if err != nil {
			return report, err
		}
		preparations[id] = composite
	}

	order, err := bottomUp(preparations)
	if err != nil {
		return report, err
	}

	for _, id := range order {
		changed, stale, err := r.recost(ctx, preparations[id])
		if err != nil {
			return report, err
		}
		report.Preparations++
		report.StaleLines += stale
		if changed {
			report.Changed++
		}
	}

	for _, kind := range []costing.CompositeKind{costing.CompositeModifier, costing.CompositeProduct} {
		ids, err := r.store.IDs(ctx, kind)
		if err != nil {
			return report, err
		}
		for _, id := range ids {
			composite, err := r.store.Load(ctx, kind, id)
			if err != nil {
				return report, err
			}
			changed, stale, err := r.recost(ctx, composite)
			if err != nil {
				return report, err
			}
			report.MenuItems++
			report.StaleLines += stale
			if changed {
				report.Changed++
			}
		}
	}

	applog.Info(ctx, "recost finished",
		"preparations", report.Preparations,
		"menuItems", report.MenuItems,
		"changed", report.Changed,
		"staleLines", report.StaleLines,
	)
	return report, nil
}

// recost refreshes the composite's snapshots from the catalog and saves it. Lines whose
// reference is gone keep their last snapshot and are counted as stale.
func (r *recoster) recost(ctx context.Context, composite costing.Composite) (bool, int, error) {
	before := catalog.Fingerprint(composite)
	stale := 0

	for i := range composite.Lines {
		line := &composite.Lines[i]
		if line.Reference.IsZero() {
			continue
		}
		switch line.Reference.Kind {
		case costing.KindIngredient:
			ingredient, err := r.reader.Ingredient(ctx, line.Reference.ID)
			if errors.Is(err, costing.ErrNotFound) {
				stale++
				continue
			}
			if err != nil {
				return false, stale, err
			}
			cost, _ := costing.EffectiveUnitCost(ingredient.Offers)
			line.Name = ingredient.Name
			line.UnitCost = cost
			rebase(line, ingredient.BaseUnit)
		case costing.KindPreparation:
			prep, err := r.reader.Preparation(ctx, line.Reference.ID)
			if errors.Is(err, costing.ErrNotFound) {
				stale++
				continue
			}
			if err != nil {
				return false, stale, err
			}
			line.Name = prep.Name
			line.UnitCost = prep.PortionCost
			line.ReferenceVersion = prep.Version
			rebase(line, prep.Unit)
		}

		if line.NeedsResolution() {
			factor, err := r.resolver.Resolve(ctx, line.Reference.Kind, line.Reference.ID, line.RecipeUnit, line.BaseUnit)
			var missing *costing.ConversionNotFoundError
			switch {
			case err == nil:
				line.ConversionFactor = factor
				line.FactorStatus = costing.FactorResolved
			case errors.As(err, &missing):
				line.FactorStatus = costing.FactorUnverified
			default:
				return false, stale, err
			}
		}
	}

	costing.RecomputeComposite(&composite)
	if catalog.Fingerprint(composite) == before {
		return false, stale, nil
	}
	if _, err := r.store.Save(ctx, composite); err != nil {
		return false, stale, err
	}
	applog.Debug(ctx, "composite recosted", "kind", composite.Kind, "name", composite.Name, "portionCost", composite.PortionCost)
	return true, stale, nil
}

// rebase moves the line onto the reference's current base unit. A manual factor is kept.
func rebase(line *costing.Line, base uuid.UUID) {
	if line.BaseUnit == base {
		return
	}
	line.BaseUnit = base
	if line.FactorStatus != costing.FactorManual {
		line.ConversionFactor = 1
		line.FactorStatus = costing.FactorUnresolved
	}
}

// bottomUp orders preparations so each one comes after every preparation it uses.
func bottomUp(preparations map[uuid.UUID]costing.Composite) ([]uuid.UUID, error) {
	pending := make(map[uuid.UUID]int, len(preparations))
	users := make(map[uuid.UUID][]uuid.UUID)
	for id, composite := range preparations {
		seen := make(map[uuid.UUID]bool)
		for _, line := range composite.Lines {
			child := line.Reference.ID
			if line.Reference.Kind != costing.KindPreparation || seen[child] {
				continue
			}
			if _, ok := preparations[child]; !ok {
				continue
			}
			seen[child] = true
			pending[id]++
			users[child] = append(users[child], id)
		}
	}

	var ready []uuid.UUID
	for id := range preparations {
		if pending[id] == 0 {
			ready = append(ready, id)
		}
	}
	sortIDs(ready)

	order := make([]uuid.UUID, 0, len(preparations))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := users[id]
		sortIDs(next)
		for _, user := range next {
			pending[user]--
			if pending[user] == 0 {
				ready = append(ready, user)
			}
		}
	}

	if len(order) != len(preparations) {
		return nil, fmt.Errorf("%w: %d of %d preparations could not be ordered", errCircularReference, len(preparations)-len(order), len(preparations))
	}
	return order, nil
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
