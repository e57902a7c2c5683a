package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"larder/internal/costing"
)

type conversionKey struct {
	item, from, to uuid.UUID
}

type fakeCatalog struct {
	mu           sync.Mutex
	ingredients  map[uuid.UUID]costing.Ingredient
	preparations map[uuid.UUID]costing.Preparation
	conversions  map[conversionKey]float64
	failNext     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		ingredients:  make(map[uuid.UUID]costing.Ingredient),
		preparations: make(map[uuid.UUID]costing.Preparation),
		conversions:  make(map[conversionKey]float64),
	}
}

func (f *fakeCatalog) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeCatalog) Ingredient(_ context.Context, id uuid.UUID) (costing.Ingredient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return costing.Ingredient{}, err
	}
	ingredient, ok := f.ingredients[id]
	if !ok {
		return costing.Ingredient{}, fmt.Errorf("ingredient %s: %w", id, costing.ErrNotFound)
	}
	return ingredient, nil
}

func (f *fakeCatalog) Preparation(_ context.Context, id uuid.UUID) (costing.Preparation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return costing.Preparation{}, err
	}
	prep, ok := f.preparations[id]
	if !ok {
		return costing.Preparation{}, fmt.Errorf("preparation %s: %w", id, costing.ErrNotFound)
	}
	return prep, nil
}

func (f *fakeCatalog) Units(context.Context) ([]costing.Unit, error) {
	return nil, nil
}

func (f *fakeCatalog) ConversionFactor(_ context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	factor, ok := f.conversions[conversionKey{item: item, from: from, to: to}]
	if !ok {
		return 0, &costing.ConversionNotFoundError{Kind: kind, Item: item, From: from, To: to}
	}
	return factor, nil
}

// gatedResolver blocks every lookup until release is closed.
type gatedResolver struct {
	factor  float64
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedResolver(factor float64) *gatedResolver {
	return &gatedResolver{factor: factor, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedResolver) Resolve(ctx context.Context, _ costing.Kind, _, _, _ uuid.UUID) (float64, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return g.factor, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []costing.Composite
	stored  map[uuid.UUID]costing.Composite
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: make(map[uuid.UUID]costing.Composite)}
}

func (f *fakeStore) Save(_ context.Context, composite costing.Composite) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	if composite.ID == uuid.Nil {
		composite.ID = uuid.New()
	}
	f.saved = append(f.saved, composite)
	f.stored[composite.ID] = composite
	return composite.ID, nil
}

func (f *fakeStore) Load(_ context.Context, kind costing.CompositeKind, id uuid.UUID) (costing.Composite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	composite, ok := f.stored[id]
	if !ok || composite.Kind != kind {
		return costing.Composite{}, fmt.Errorf("%s %s: %w", kind, id, costing.ErrNotFound)
	}
	return composite.Clone(), nil
}

var errDatabaseDown = errors.New("database unavailable")
