package ledger

import (
	"sync"
	"time"

	"edtrack/internal/log"
)

// Deferred holds items that reference something not known yet. A ticker
// goroutine retries them until resolve succeeds; it starts when the first
// item is queued and exits as soon as the queue is empty, so an idle queue
// costs nothing. Each ticker pass counts as one attempt; items that reach
// maxAttempts are dropped.
type Deferred[T any] struct {
	mu          sync.Mutex
	name        string
	items       []deferredItem[T]
	resolve     func(T) bool
	interval    time.Duration
	maxAttempts int
	generation  int
	running     bool
	closed      bool
	stop        chan struct{}
}

type deferredItem[T any] struct {
	value    T
	attempts int
}

// NewDeferred creates an empty queue. maxAttempts <= 0 retries until cleared.
func NewDeferred[T any](name string, interval time.Duration, maxAttempts int, resolve func(T) bool) *Deferred[T] {
	if interval <= 0 {
		interval = time.Second
	}
	return &Deferred[T]{
		name:        name,
		resolve:     resolve,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Push queues an item and starts the ticker if it is not running
func (d *Deferred[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.items = append(d.items, deferredItem[T]{value: v})
	d.startLocked()
}

// Retry runs one matching pass without charging an attempt. Ledgers call it
// when the thing items wait for may have just appeared. It returns how many
// items are still pending.
func (d *Deferred[T]) Retry() int {
	return d.pass(false)
}

func (d *Deferred[T]) pass(charge bool) int {
	d.mu.Lock()
	batch := d.items
	d.items = nil
	gen := d.generation
	d.mu.Unlock()

	var keep []deferredItem[T]
	for _, it := range batch {
		if d.resolve(it.value) {
			continue
		}
		if charge {
			it.attempts++
			if d.maxAttempts > 0 && it.attempts >= d.maxAttempts {
				log.Debug("deferred match abandoned", "queue", d.name, "attempts", it.attempts)
				continue
			}
		}
		keep = append(keep, it)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		// Cleared while matching; whatever we kept is stale.
		return len(d.items)
	}
	d.items = append(keep, d.items...)
	if len(d.items) > 0 {
		d.startLocked()
	}
	return len(d.items)
}

// startLocked launches the ticker unless it is already running
func (d *Deferred[T]) startLocked() {
	if d.running || d.closed {
		return
	}
	d.running = true
	d.stop = make(chan struct{})
	go d.loop(d.stop)
}

func (d *Deferred[T]) loop(stop chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.pass(true)
			d.mu.Lock()
			if len(d.items) == 0 {
				if d.stop == stop {
					d.running = false
				}
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
		}
	}
}

// Clear drops every pending item. The ticker notices the empty queue and stops.
func (d *Deferred[T]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = nil
	d.generation++
}

// Len returns the number of pending items
func (d *Deferred[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Running reports whether the ticker goroutine is alive
func (d *Deferred[T]) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Close stops the ticker and refuses further items
func (d *Deferred[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		close(d.stop)
		d.running = false
	}
	d.closed = true
	d.items = nil
	d.generation++
}
