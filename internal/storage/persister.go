package storage

import (
	"context"
	"sync"
	"time"

	"pulsebar/internal/metrics"
	"pulsebar/internal/queue"
	logx "pulsebar/pkg/logx"
)

// DefaultQueueSize bounds snapshots waiting for the writer.
const DefaultQueueSize = 5

// Persister writes one snapshot out of every bufferSize submitted.
// Submit never blocks; write failures are logged and dropped.
type Persister struct {
	store Store
	q     *queue.DropOldest[Snapshot]
	log   logx.Logger

	mu         sync.Mutex
	bufferSize int
	counter    int
	latest     Snapshot
	writes     int
}

func NewPersister(store Store, bufferSize, queueSize int, log logx.Logger) *Persister {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Persister{
		store: store,
		q:     queue.NewDropOldest[Snapshot](queueSize),
		log:   log.With(logx.String("comp", "persist")),
	}
	p.SetBufferSize(bufferSize)
	return p
}

// SetBufferSize changes the decimation factor and restarts the count.
func (p *Persister) SetBufferSize(n int) {
	if n <= 0 {
		n = 1
	}
	p.mu.Lock()
	p.bufferSize = n
	p.counter = 0
	p.mu.Unlock()
}

func (p *Persister) Submit(snap Snapshot) {
	if p.q.Push(snap) {
		metrics.IncQueueDropped(metrics.QueuePersister)
	}
}

// Offer applies the decimation rule to one snapshot and writes it when due:
// a write happens when counter % bufferSize == 0, then counter advances
// modulo bufferSize. The first snapshot is always written.
func (p *Persister) Offer(ctx context.Context, snap Snapshot) bool {
	p.mu.Lock()
	due := p.counter%p.bufferSize == 0
	p.counter = (p.counter + 1) % p.bufferSize
	p.latest = snap
	p.mu.Unlock()

	if !due {
		return false
	}
	p.write(ctx, snap)
	return true
}

func (p *Persister) write(ctx context.Context, snap Snapshot) {
	if p.store == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.store.Save(wctx, snap); err != nil {
		metrics.IncPersistWrite(metrics.ResultError)
		p.log.Warn("state write failed", logx.Err(err))
		return
	}
	p.mu.Lock()
	p.writes++
	p.mu.Unlock()
	metrics.IncPersistWrite(metrics.ResultOK)
}

// Run drains the queue until ctx is done, then flushes the newest snapshot.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				snap, ok := p.q.TryPop()
				if !ok {
					break
				}
				p.mu.Lock()
				p.latest = snap
				p.mu.Unlock()
			}
			p.Flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case snap := <-p.q.C():
			p.Offer(ctx, snap)
		}
	}
}

// Flush writes the most recent snapshot regardless of decimation.
func (p *Persister) Flush(ctx context.Context) {
	p.mu.Lock()
	snap := p.latest
	p.mu.Unlock()
	if snap != nil {
		p.write(ctx, snap)
	}
}

// Writes returns the number of successful writes.
func (p *Persister) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}
