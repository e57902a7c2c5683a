// Package editor holds the editing sessions in which composites are built line by line.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"larder/internal/costing"
	applog "larder/internal/log"
	"larder/internal/metrics"
)

// Catalog is the read side of the reference catalog used while editing.
type Catalog interface {
	Ingredient(ctx context.Context, id uuid.UUID) (costing.Ingredient, error)
	Preparation(ctx context.Context, id uuid.UUID) (costing.Preparation, error)
}

// Resolver returns item-specific conversion factors.
type Resolver interface {
	Resolve(ctx context.Context, kind costing.Kind, item, from, to uuid.UUID) (float64, error)
}

// Persister stores a submitted composite and returns its id.
type Persister interface {
	Save(ctx context.Context, composite costing.Composite) (uuid.UUID, error)
}

// Session owns one composite under edit. All methods are safe for concurrent use; catalog
// and resolver calls run without holding the session lock.
type Session struct {
	id       uuid.UUID
	catalog  Catalog
	resolver Resolver
	metrics  *metrics.Collector

	mu         sync.Mutex
	composite  costing.Composite
	tokens     map[uuid.UUID]uint64
	selections map[uuid.UUID]uint64
	warnings   map[uuid.UUID][]Warning
	closed     bool
	pending    sync.WaitGroup
}

func newSession(composite costing.Composite, catalog Catalog, resolver Resolver, collector *metrics.Collector) *Session {
	if composite.ID == uuid.Nil {
		composite.ID = uuid.New()
	}
	if composite.Version == 0 {
		composite.Version = 1
	}
	composite.PortionCount = costing.EffectivePortions(composite.PortionCount)
	composite.Lines = append([]costing.Line(nil), composite.Lines...)
	for i := range composite.Lines {
		if composite.Lines[i].Key == uuid.Nil {
			composite.Lines[i].Key = uuid.New()
		}
	}
	costing.RecomputeComposite(&composite)

	return &Session{
		id:        uuid.New(),
		catalog:   catalog,
		resolver:  resolver,
		metrics:   collector,
		composite:  composite,
		tokens:     make(map[uuid.UUID]uint64),
		selections: make(map[uuid.UUID]uint64),
		warnings:   make(map[uuid.UUID][]Warning),
	}
}

// NewSession starts editing composite without a workspace.
func NewSession(composite costing.Composite, catalog Catalog, resolver Resolver, collector *metrics.Collector) *Session {
	return newSession(composite, catalog, resolver, collector)
}

// ID identifies the session, not the composite.
func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) logContext(ctx context.Context) context.Context {
	return applog.WithAttrs(ctx, "session", s.id, "composite", s.composite.ID)
}

// lineAt must be called with s.mu held.
func (s *Session) lineAt(index int) (*costing.Line, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if index < 0 || index >= len(s.composite.Lines) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrLineNotFound, index, len(s.composite.Lines))
	}
	return &s.composite.Lines[index], nil
}

// lineByKey must be called with s.mu held.
func (s *Session) lineByKey(key uuid.UUID) (int, *costing.Line) {
	for i := range s.composite.Lines {
		if s.composite.Lines[i].Key == key {
			return i, &s.composite.Lines[i]
		}
	}
	return -1, nil
}

// invalidate moves the line's token forward so in-flight lookups for it are discarded.
func (s *Session) invalidate(key uuid.UUID) uint64 {
	s.tokens[key]++
	return s.tokens[key]
}

func (s *Session) setWarning(key uuid.UUID, kind WarningKind, message string) {
	s.clearWarnings(key, kind)
	s.warnings[key] = append(s.warnings[key], Warning{Kind: kind, Message: message})
}

func (s *Session) clearWarnings(key uuid.UUID, kinds ...WarningKind) {
	existing := s.warnings[key]
	if len(existing) == 0 {
		return
	}
	if len(kinds) == 0 {
		delete(s.warnings, key)
		return
	}
	kept := existing[:0]
	for _, w := range existing {
		drop := false
		for _, kind := range kinds {
			if w.Kind == kind {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		delete(s.warnings, key)
		return
	}
	s.warnings[key] = kept
}

// AddLine appends an empty line and returns its index.
func (s *Session) AddLine() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return -1, ErrSessionClosed
	}
	s.composite.Lines = append(s.composite.Lines, costing.NewLine())
	costing.RecomputeComposite(&s.composite)
	return len(s.composite.Lines) - 1, nil
}

// SelectReference points line index at an ingredient or preparation and snapshots its base
// unit, unit cost and version. The line is left untouched when the reference does not resolve
// or would make the composite contain itself. Only an accepted selection supersedes a pending
// resolution of the line; a later selection of the same line supersedes an earlier one.
func (s *Session) SelectReference(ctx context.Context, index int, ref costing.Reference) error {
	if ref.IsZero() {
		return fmt.Errorf("select reference: %w", errors.New("reference kind and id are required"))
	}

	s.mu.Lock()
	line, err := s.lineAt(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	key := line.Key
	token := s.tokens[key]
	s.selections[key]++
	selection := s.selections[key]
	parent := s.composite.ID
	ctx = s.logContext(ctx)
	s.mu.Unlock()

	snapshot, err := s.lookupReference(ctx, parent, ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	current, line := s.lineByKey(key)
	if line == nil {
		return fmt.Errorf("%w: line removed during selection", ErrLineNotFound)
	}
	if s.tokens[key] != token || s.selections[key] != selection {
		s.metrics.StaleResolution()
		return ErrSuperseded
	}

	if err != nil {
		var cycle *costing.CompositionCycleError
		switch {
		case errors.As(err, &cycle):
			s.metrics.CycleRejected()
			applog.Debug(ctx, "reference rejected", "line", current, "reference", ref.String(), "error", err)
			return err
		case errors.Is(err, costing.ErrNotFound):
			stale := &costing.StaleReferenceError{Line: current, Reference: ref, Err: err}
			applog.Warn(ctx, "reference no longer resolves", "line", current, "reference", ref.String())
			return stale
		default:
			s.setWarning(key, WarningLookupFailed, fmt.Sprintf("could not load %s: %v", ref, err))
			applog.Warn(ctx, "catalog lookup failed", "line", current, "reference", ref.String(), "error", err)
			return err
		}
	}

	s.invalidate(key)
	line.Reference = ref
	line.Name = snapshot.name
	line.BaseUnit = snapshot.baseUnit
	line.UnitCost = snapshot.unitCost
	line.ReferenceVersion = snapshot.version
	line.ConversionFactor = 1
	line.FactorStatus = costing.FactorUnresolved
	s.clearWarnings(key)
	if !snapshot.costVerified {
		s.setWarning(key, WarningUnverifiedCost, fmt.Sprintf("%s has no usable supplier offer", snapshot.name))
	}
	costing.RecomputeComposite(&s.composite)

	applog.Debug(ctx, "reference selected", "line", current, "reference", ref.String(), "unit_cost", snapshot.unitCost)
	return nil
}

type referenceSnapshot struct {
	name         string
	baseUnit     uuid.UUID
	unitCost     float64
	version      int
	costVerified bool
}

func (s *Session) lookupReference(ctx context.Context, parent uuid.UUID, ref costing.Reference) (referenceSnapshot, error) {
	if s.catalog == nil {
		return referenceSnapshot{}, errors.New("editor: no catalog configured")
	}

	switch ref.Kind {
	case costing.KindIngredient:
		ingredient, err := s.catalog.Ingredient(ctx, ref.ID)
		if err != nil {
			return referenceSnapshot{}, err
		}
		cost, ok := costing.EffectiveUnitCost(ingredient.Offers)
		return referenceSnapshot{
			name:         ingredient.Name,
			baseUnit:     ingredient.BaseUnit,
			unitCost:     cost,
			costVerified: ok,
		}, nil
	case costing.KindPreparation:
		if err := costing.GuardReference(ctx, s.catalog, parent, ref.ID); err != nil {
			return referenceSnapshot{}, err
		}
		prep, err := s.catalog.Preparation(ctx, ref.ID)
		if err != nil {
			return referenceSnapshot{}, err
		}
		return referenceSnapshot{
			name:         prep.Name,
			baseUnit:     prep.Unit,
			unitCost:     prep.PortionCost,
			version:      prep.Version,
			costVerified: true,
		}, nil
	default:
		return referenceSnapshot{}, fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
}

// UpdateQuantity sets the line quantity in recipe units.
func (s *Session) UpdateQuantity(index int, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.lineAt(index)
	if err != nil {
		return err
	}
	line.Quantity = quantity
	costing.RecomputeComposite(&s.composite)
	return nil
}

// UpdateRecipeUnit changes the unit the quantity is expressed in. The factor goes back to an
// unresolved 1 until ResolveLine confirms it.
func (s *Session) UpdateRecipeUnit(index int, unit uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.lineAt(index)
	if err != nil {
		return err
	}
	line.RecipeUnit = unit
	line.ConversionFactor = 1
	line.FactorStatus = costing.FactorUnresolved
	s.invalidate(line.Key)
	s.clearWarnings(line.Key, WarningConversionMissing, WarningLookupFailed)
	costing.RecomputeComposite(&s.composite)
	return nil
}

// UpdateConversionFactor overrides the factor by hand. Pending lookups for the line are discarded.
func (s *Session) UpdateConversionFactor(index int, factor float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.lineAt(index)
	if err != nil {
		return err
	}
	line.ConversionFactor = factor
	line.FactorStatus = costing.FactorManual
	s.invalidate(line.Key)
	s.clearWarnings(line.Key, WarningConversionMissing, WarningLookupFailed)
	costing.RecomputeComposite(&s.composite)
	return nil
}

// RemoveLine deletes the line at index; later lines shift down.
func (s *Session) RemoveLine(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.lineAt(index)
	if err != nil {
		return err
	}
	key := line.Key
	s.composite.Lines = append(s.composite.Lines[:index], s.composite.Lines[index+1:]...)
	delete(s.tokens, key)
	delete(s.selections, key)
	delete(s.warnings, key)
	costing.RecomputeComposite(&s.composite)
	return nil
}

// SetPortionCount changes how many portions the lines yield. Values below one count as one.
func (s *Session) SetPortionCount(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.composite.PortionCount = count
	costing.RecomputeComposite(&s.composite)
	return nil
}

// SetPortionPrice sets the sale price of one portion.
func (s *Session) SetPortionPrice(price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if price < 0 {
		return fmt.Errorf("portion price must not be negative, got %v", price)
	}
	s.composite.PortionPrice = price
	return nil
}

// SetName renames the composite.
func (s *Session) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.composite.Name = name
	return nil
}

// SetUnit sets the unit one portion of a preparation is measured in.
func (s *Session) SetUnit(unit uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.composite.Unit = unit
	return nil
}

// ResolveLine asks the resolver for the line's conversion factor and applies it unless the
// line was edited in the meantime, in which case ErrSuperseded is returned. A missing
// conversion leaves the factor unchanged and flags the line unverified.
func (s *Session) ResolveLine(ctx context.Context, index int) error {
	s.mu.Lock()
	line, err := s.lineAt(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !line.NeedsResolution() {
		s.mu.Unlock()
		return nil
	}
	key := line.Key
	token := s.tokens[key]
	kind, item := line.Reference.Kind, line.Reference.ID
	from, to := line.RecipeUnit, line.BaseUnit
	ctx = s.logContext(ctx)
	s.mu.Unlock()

	if s.resolver == nil {
		return errors.New("editor: no resolver configured")
	}
	factor, lookupErr := s.resolver.Resolve(ctx, kind, item, from, to)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, line := s.lineByKey(key)
	if s.closed || line == nil || s.tokens[key] != token {
		s.metrics.StaleResolution()
		applog.Debug(ctx, "discarding superseded conversion", "line", current, "item", item)
		return ErrSuperseded
	}

	var missing *costing.ConversionNotFoundError
	switch {
	case lookupErr == nil:
		line.ConversionFactor = factor
		line.FactorStatus = costing.FactorResolved
		s.clearWarnings(key, WarningConversionMissing, WarningLookupFailed)
	case errors.As(lookupErr, &missing):
		line.FactorStatus = costing.FactorUnverified
		s.clearWarnings(key, WarningLookupFailed)
		s.setWarning(key, WarningConversionMissing, lookupErr.Error())
		applog.Warn(ctx, "no conversion for line", "line", current, "error", lookupErr)
	default:
		s.setWarning(key, WarningLookupFailed, fmt.Sprintf("conversion lookup failed: %v", lookupErr))
		applog.Warn(ctx, "conversion lookup failed", "line", current, "error", lookupErr)
		return lookupErr
	}
	costing.RecomputeComposite(&s.composite)
	return lookupErr
}

// ResolveLineAsync runs ResolveLine in its own goroutine. The returned channel receives the
// result once. Wait blocks until every pending resolution has finished.
func (s *Session) ResolveLineAsync(ctx context.Context, index int) <-chan error {
	done := make(chan error, 1)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		done <- s.ResolveLine(ctx, index)
		close(done)
	}()
	return done
}

// ResolvePending resolves every line still waiting for a factor, in line order.
func (s *Session) ResolvePending(ctx context.Context) error {
	s.mu.Lock()
	var indices []int
	for i, line := range s.composite.Lines {
		if line.NeedsResolution() {
			indices = append(indices, i)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, index := range indices {
		err := s.ResolveLine(ctx, index)
		if err != nil && !errors.Is(err, ErrSuperseded) {
			var missing *costing.ConversionNotFoundError
			if !errors.As(err, &missing) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until all ResolveLineAsync calls have returned.
func (s *Session) Wait() {
	s.pending.Wait()
}

// State returns a copy of the session's composite with derived values.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	c := s.composite.Clone()
	state := State{
		SessionID:        s.id,
		ID:               c.ID,
		Kind:             c.Kind,
		Name:             c.Name,
		Version:          c.Version,
		PortionCount:     c.PortionCount,
		PortionPrice:     c.PortionPrice,
		Unit:             c.Unit,
		Lines:            c.Lines,
		PortionCost:      c.PortionCost,
		Margin:           c.Margin(),
		ValidationErrors: costing.Validate(c),
		Closed:           s.closed,
	}
	for _, w := range s.warnings[uuid.Nil] {
		w.Line = -1
		state.Warnings = append(state.Warnings, w)
	}
	for i, line := range c.Lines {
		for _, w := range s.warnings[line.Key] {
			w.Line = i
			state.Warnings = append(state.Warnings, w)
		}
	}
	return state
}

// Submit hands the composite to persister. Validation errors block submission and leave the
// session open, as do persister failures. After a successful submit the session is closed.
func (s *Session) Submit(ctx context.Context, persister Persister) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return uuid.Nil, ErrSessionClosed
	}
	ctx = s.logContext(ctx)

	costing.RecomputeComposite(&s.composite)
	if errs := costing.Validate(s.composite); len(errs) > 0 {
		s.metrics.Submission("invalid")
		applog.Debug(ctx, "submission blocked", "lines", errs.Lines())
		return uuid.Nil, errs
	}
	if persister == nil {
		return uuid.Nil, errors.New("editor: no persister configured")
	}

	id, err := persister.Save(ctx, s.composite.Clone())
	if err != nil {
		s.metrics.Submission("error")
		applog.Error(ctx, "submission failed", "error", err)
		return uuid.Nil, fmt.Errorf("submit composite: %w", err)
	}

	s.composite.ID = id
	s.closed = true
	s.metrics.Submission("ok")
	applog.Info(ctx, "composite submitted", "kind", s.composite.Kind, "name", s.composite.Name)
	return id, nil
}

// Close discards the session without saving.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) addLineWarning(index int, kind WarningKind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.composite.Lines) {
		return
	}
	s.setWarning(s.composite.Lines[index].Key, kind, message)
}
