package editor

import "errors"

var (
	// ErrSessionClosed is returned by every operation after a successful submit or Close.
	ErrSessionClosed = errors.New("editor: session closed")
	// ErrLineNotFound is returned for indices outside the composite's lines.
	ErrLineNotFound = errors.New("editor: line not found")
	// ErrSuperseded is returned when a lookup finished after a newer edit of the same line.
	// Its result has been discarded.
	ErrSuperseded = errors.New("editor: superseded by a newer edit")
	// ErrSessionNotFound is returned by the workspace for unknown session ids.
	ErrSessionNotFound = errors.New("editor: session not found")
)
