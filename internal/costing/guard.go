package costing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PreparationReader is the slice of the catalog the cycle guard walks.
type PreparationReader interface {
	Preparation(ctx context.Context, id uuid.UUID) (Preparation, error)
}

// WouldCycle reports whether adding candidate as a line of parent would make parent contain
// itself at any depth.
func WouldCycle(ctx context.Context, reader PreparationReader, parent, candidate uuid.UUID) (bool, error) {
	path, err := cyclePath(ctx, reader, parent, candidate)
	return path != nil, err
}

// GuardReference returns a *CompositionCycleError when candidate may not be added to parent.
func GuardReference(ctx context.Context, reader PreparationReader, parent, candidate uuid.UUID) error {
	path, err := cyclePath(ctx, reader, parent, candidate)
	if err != nil {
		return err
	}
	if path != nil {
		return &CompositionCycleError{Parent: parent, Candidate: candidate, Path: path}
	}
	return nil
}

func cyclePath(ctx context.Context, reader PreparationReader, parent, candidate uuid.UUID) ([]uuid.UUID, error) {
	if parent == candidate {
		return []uuid.UUID{candidate}, nil
	}
	if reader == nil {
		return nil, errors.New("cycle guard: no preparation reader")
	}
	w := &cycleWalker{
		reader: reader,
		parent: parent,
		onPath: make(map[uuid.UUID]bool),
		done:   make(map[uuid.UUID]bool),
	}
	found, err := w.visit(ctx, candidate, true)
	if err != nil || !found {
		return nil, err
	}
	return append(w.stack, parent), nil
}

// cycleWalker visits each preparation at most once. Meeting a node that is still on the
// current path means the catalog itself is cyclic; the walk stops and reports a cycle.
type cycleWalker struct {
	reader PreparationReader
	parent uuid.UUID
	onPath map[uuid.UUID]bool
	done   map[uuid.UUID]bool
	stack  []uuid.UUID
}

func (w *cycleWalker) visit(ctx context.Context, id uuid.UUID, root bool) (bool, error) {
	if w.done[id] {
		// fully explored through another path and it did not reach the parent
		return false, nil
	}
	if w.onPath[id] {
		w.stack = append(w.stack, id)
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	prep, err := w.reader.Preparation(ctx, id)
	if err != nil {
		if !root && errors.Is(err, ErrNotFound) {
			// dangling sub-reference: nothing below it can reach the parent
			w.done[id] = true
			return false, nil
		}
		return false, fmt.Errorf("load preparation %s: %w", id, err)
	}

	w.onPath[id] = true
	w.stack = append(w.stack, id)
	for _, line := range prep.Lines {
		if line.Reference.Kind != KindPreparation || line.Reference.ID == uuid.Nil {
			continue
		}
		if line.Reference.ID == w.parent {
			return true, nil
		}
		found, err := w.visit(ctx, line.Reference.ID, false)
		if err != nil || found {
			return found, err
		}
	}
	w.stack = w.stack[:len(w.stack)-1]
	delete(w.onPath, id)
	w.done[id] = true
	return false, nil
}
