package engine

import (
	"context"
	"sync/atomic"
	"time"

	"pulsebar/internal/module"
)

// Result is what a finished probe produced.
type Result struct {
	Fields  module.Fields
	Err     error
	Elapsed time.Duration
}

// Handle is one detached probe execution.
//
// The probe goroutine writes res before closing done, so reads after <-done
// need no lock.
type Handle struct {
	name    string
	gen     uint64
	started time.Time

	cancel    context.CancelFunc
	cancelled atomic.Bool

	done chan struct{}
	res  Result
}

func (h *Handle) Name() string       { return h.name }
func (h *Handle) Generation() uint64 { return h.gen }

// Done is closed when the probe goroutine returns.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Poll peeks at the handle without blocking. ok is false while the probe is
// still running. A cancelled handle always reports ErrCanceled.
func (h *Handle) Poll() (res Result, ok bool) {
	if h.cancelled.Load() {
		return Result{Err: ErrCanceled}, true
	}
	select {
	case <-h.done:
		if h.cancelled.Load() {
			return Result{Err: ErrCanceled}, true
		}
		return h.res, true
	default:
		return Result{}, false
	}
}

// Cancel requests the probe to stop. Safe to call repeatedly.
func (h *Handle) Cancel() {
	if h.cancelled.CompareAndSwap(false, true) {
		h.cancel()
	}
}

func (h *Handle) Cancelled() bool { return h.cancelled.Load() }
