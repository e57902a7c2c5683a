package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"larder/internal/costing"
	applog "larder/internal/log"
	"larder/internal/metrics"
)

// Store loads and saves composites.
type Store interface {
	Persister
	Load(ctx context.Context, kind costing.CompositeKind, id uuid.UUID) (costing.Composite, error)
}

// Workspace creates sessions and keeps the open ones by id.
type Workspace struct {
	catalog  Catalog
	resolver Resolver
	store    Store
	metrics  *metrics.Collector

	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*openSession
}

type openSession struct {
	session  *Session
	lastUsed time.Time
}

// NewWorkspace wires the collaborators shared by every session.
func NewWorkspace(catalog Catalog, resolver Resolver, store Store, collector *metrics.Collector) *Workspace {
	return &Workspace{
		catalog:  catalog,
		resolver: resolver,
		store:    store,
		metrics:  collector,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*openSession),
	}
}

// SetIdleTimeout closes sessions left untouched for longer than d. Zero keeps sessions until
// they are submitted or closed.
func (w *Workspace) SetIdleTimeout(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.idleTimeout = d
}

func (w *Workspace) register(session *Session) *Session {
	w.mu.Lock()
	expired := w.sweepLocked()
	w.sessions[session.ID()] = &openSession{session: session, lastUsed: w.now()}
	w.mu.Unlock()

	for _, idle := range expired {
		idle.Close()
	}
	if len(expired) > 0 {
		applog.Debug(context.Background(), "idle editing sessions closed", "count", len(expired))
	}
	return session
}

// sweepLocked drops sessions idle past the timeout and returns them for closing.
func (w *Workspace) sweepLocked() []*Session {
	if w.idleTimeout <= 0 {
		return nil
	}
	now := w.now()
	var expired []*Session
	for id, open := range w.sessions {
		if now.Sub(open.lastUsed) > w.idleTimeout {
			delete(w.sessions, id)
			expired = append(expired, open.session)
		}
	}
	return expired
}

// New opens a session on an empty composite.
func (w *Workspace) New(kind costing.CompositeKind, name string) *Session {
	return w.register(newSession(costing.Composite{
		Kind:         kind,
		Name:         name,
		PortionCount: 1,
	}, w.catalog, w.resolver, w.metrics))
}

// Open loads a stored composite into a new session. References that no longer resolve and
// preparation snapshots older than the catalog's version are reported as warnings.
func (w *Workspace) Open(ctx context.Context, kind costing.CompositeKind, id uuid.UUID) (*Session, error) {
	if w.store == nil {
		return nil, errors.New("editor: no store configured")
	}
	composite, err := w.store.Load(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("open %s %s: %w", kind, id, err)
	}

	session := newSession(composite, w.catalog, w.resolver, w.metrics)
	stale := w.checkReferences(ctx, session, composite.Lines)
	if stale > 0 {
		applog.Warn(ctx, "opened composite with stale references", "composite", id, "lines", stale)
	}
	return w.register(session), nil
}

func (w *Workspace) checkReferences(ctx context.Context, session *Session, lines []costing.Line) int {
	if w.catalog == nil {
		return 0
	}
	stale := 0
	for i, line := range lines {
		if line.Reference.IsZero() {
			continue
		}
		var err error
		version := 0
		switch line.Reference.Kind {
		case costing.KindIngredient:
			_, err = w.catalog.Ingredient(ctx, line.Reference.ID)
		case costing.KindPreparation:
			var prep costing.Preparation
			prep, err = w.catalog.Preparation(ctx, line.Reference.ID)
			version = prep.Version
		}

		switch {
		case errors.Is(err, costing.ErrNotFound):
			stale++
			staleErr := &costing.StaleReferenceError{Line: i, Reference: line.Reference, Err: err}
			session.addLineWarning(i, WarningStaleReference, staleErr.Error())
		case err != nil:
			session.addLineWarning(i, WarningLookupFailed, fmt.Sprintf("could not check %s: %v", line.Reference, err))
		case version > line.ReferenceVersion:
			stale++
			session.addLineWarning(i, WarningStaleVersion,
				fmt.Sprintf("%s changed since it was added (version %d, now %d)", line.Name, line.ReferenceVersion, version))
		}
	}
	return stale
}

// Get returns an open session and marks it as used. A session idle past the timeout is closed
// and reported as not found.
func (w *Workspace) Get(id uuid.UUID) (*Session, error) {
	w.mu.Lock()
	open, ok := w.sessions[id]
	if ok && w.idleTimeout > 0 && w.now().Sub(open.lastUsed) > w.idleTimeout {
		delete(w.sessions, id)
		w.mu.Unlock()
		open.session.Close()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if ok {
		open.lastUsed = w.now()
	}
	w.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return open.session, nil
}

// Submit submits the session's composite to the workspace store and forgets the session.
func (w *Workspace) Submit(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	session, err := w.Get(id)
	if err != nil {
		return uuid.Nil, err
	}
	compositeID, err := session.Submit(ctx, w.store)
	if err != nil {
		return uuid.Nil, err
	}
	w.forget(id)
	return compositeID, nil
}

// Close discards a session without saving.
func (w *Workspace) Close(id uuid.UUID) {
	w.mu.Lock()
	open, ok := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()
	if ok {
		open.session.Close()
	}
}

func (w *Workspace) forget(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, id)
}

// Len reports the number of open sessions.
func (w *Workspace) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}
