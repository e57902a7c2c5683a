package editor

import (
	"github.com/google/uuid"

	"larder/internal/costing"
)

// WarningKind classifies a non-blocking problem shown next to the composite.
type WarningKind string

const (
	WarningUnverifiedCost    WarningKind = "unverified_cost"
	WarningConversionMissing WarningKind = "conversion_missing"
	WarningLookupFailed      WarningKind = "lookup_failed"
	WarningStaleReference    WarningKind = "stale_reference"
	WarningStaleVersion      WarningKind = "stale_version"
)

// Warning is reported by State. Line is -1 for warnings that concern the whole composite.
type Warning struct {
	Line    int         `json:"line"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// State is a read-only snapshot of a session.
type State struct {
	SessionID        uuid.UUID                `json:"session_id"`
	ID               uuid.UUID                `json:"id"`
	Kind             costing.CompositeKind    `json:"kind"`
	Name             string                   `json:"name"`
	Version          int                      `json:"version"`
	PortionCount     int                      `json:"portion_count"`
	PortionPrice     float64                  `json:"portion_price"`
	Unit             uuid.UUID                `json:"unit"`
	Lines            []costing.Line           `json:"lines"`
	PortionCost      float64                  `json:"portion_cost"`
	Margin           float64                  `json:"margin"`
	ValidationErrors costing.ValidationErrors `json:"validation_errors"`
	Warnings         []Warning                `json:"warnings"`
	Closed           bool                     `json:"closed"`
}

// HasWarning reports whether any warning of kind is attached to line.
func (s State) HasWarning(line int, kind WarningKind) bool {
	for _, w := range s.Warnings {
		if w.Line == line && w.Kind == kind {
			return true
		}
	}
	return false
}
