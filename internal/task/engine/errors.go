package engine

import "errors"

var (
	// ErrCanceled is reported by Poll for a handle that was cancelled; any
	// result the probe produced afterwards is discarded.
	ErrCanceled = errors.New("probe canceled")
	// ErrPanic wraps a recovered probe panic.
	ErrPanic = errors.New("probe panicked")
)
