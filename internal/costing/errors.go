package costing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by catalog lookups for unknown identifiers.
var ErrNotFound = errors.New("costing: reference not found")

// CompositionCycleError reports a preparation that would contain itself.
type CompositionCycleError struct {
	Parent    uuid.UUID
	Candidate uuid.UUID
	// Path lists the preparations walked from the candidate back to the parent.
	Path []uuid.UUID
}

func (e *CompositionCycleError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("composition cycle: %s cannot contain %s", e.Parent, e.Candidate)
	}
	parts := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		parts = append(parts, id.String())
	}
	return fmt.Sprintf("composition cycle: %s cannot contain %s (%s)", e.Parent, e.Candidate, strings.Join(parts, " -> "))
}

// ConversionNotFoundError reports a missing item-specific factor.
type ConversionNotFoundError struct {
	Kind Kind
	Item uuid.UUID
	From uuid.UUID
	To   uuid.UUID
}

func (e *ConversionNotFoundError) Error() string {
	return fmt.Sprintf("no conversion for %s %s from %s to %s", e.Kind, e.Item, e.From, e.To)
}

// StaleReferenceError reports a line whose reference no longer resolves in the catalog.
type StaleReferenceError struct {
	Line      int
	Reference Reference
	Err       error
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("line %d: reference %s no longer resolves: %v", e.Line, e.Reference, e.Err)
}

func (e *StaleReferenceError) Unwrap() error {
	return e.Err
}

// ValidationError lists the invalid fields of one line.
type ValidationError struct {
	Line   int      `json:"line"`
	Fields []string `json:"fields"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("line %d: invalid %s", e.Line, strings.Join(e.Fields, ", "))
}

// ValidationErrors blocks submission while non-empty.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	messages := make([]string, 0, len(e))
	for _, item := range e {
		messages = append(messages, item.Error())
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// Lines returns the offending line indices.
func (e ValidationErrors) Lines() []int {
	out := make([]int, 0, len(e))
	for _, item := range e {
		out = append(out, item.Line)
	}
	return out
}
