// Package emitter writes bar updates to stdout using the swaybar/i3bar JSON
// protocol.
package emitter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"pulsebar/internal/metrics"
	"pulsebar/internal/queue"
	logx "pulsebar/pkg/logx"
)

// Header is the protocol preamble; click_events asks the bar to send clicks on stdin.
const Header = `{"version":1,"click_events":true}`

// DefaultQueueSize bounds batches waiting for the writer.
const DefaultQueueSize = 5

// Out is one rendered block.
type Out struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
	FullText string `json:"full_text"`
}

// Emitter serialises batches onto w. Submit never blocks the tick loop.
type Emitter struct {
	mu sync.Mutex
	w  *bufio.Writer

	q   *queue.DropOldest[[]Out]
	log logx.Logger
}

func New(w io.Writer, queueSize int, log logx.Logger) *Emitter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Emitter{
		w:   bufio.NewWriter(w),
		q:   queue.NewDropOldest[[]Out](queueSize),
		log: log.With(logx.String("comp", "emitter")),
	}
}

// WriteHeader starts the infinite array: header, "[", and an empty first element.
func (e *Emitter) WriteHeader() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.w, "%s\n[\n[],\n", Header); err != nil {
		return err
	}
	return e.w.Flush()
}

// Submit hands a batch to the writer, evicting the oldest pending one when full.
func (e *Emitter) Submit(batch []Out) {
	if e.q.Push(batch) {
		metrics.IncQueueDropped(metrics.QueueEmitter)
		e.log.Debug("emitter queue full; dropped oldest batch", logx.Uint64("dropped_total", e.q.Dropped()))
	}
}

// Emit writes one batch followed by a comma, synchronously.
func (e *Emitter) Emit(batch []Out) error {
	if batch == nil {
		batch = []Out{}
	}
	b, err := encode(batch)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	if _, err := e.w.WriteString(",\n"); err != nil {
		return err
	}
	return e.w.Flush()
}

// encode marshals without HTML escaping so icons and "&" reach the bar verbatim.
func encode(batch []Out) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(batch); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Run drains the queue until ctx is done. A write error ends the loop:
// stdout going away means the bar has exited.
func (e *Emitter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch := <-e.q.C():
			if err := e.Emit(batch); err != nil {
				return fmt.Errorf("emit: %w", err)
			}
		}
	}
}

func (e *Emitter) Dropped() uint64 { return e.q.Dropped() }
