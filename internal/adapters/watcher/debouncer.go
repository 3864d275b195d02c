package watcher

import (
	"slices"
	"sync"
	"time"
	"unique"
)

// Debouncer coalesces bursts of paths into sorted batches.
// A batch is delivered once no path has arrived for the window,
// or once maxWait has passed since the first pending path.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[unique.Handle[string]]struct{}
	timer    *time.Timer
	first    time.Time
	window   time.Duration
	maxWait  time.Duration
	callback func(paths []string)
}

// NewDebouncer creates a Debouncer with no upper bound on the wait.
func NewDebouncer(window time.Duration, callback func(paths []string)) *Debouncer {
	return NewDebouncerWithMaxWait(window, 0, callback)
}

// NewDebouncerWithMaxWait creates a Debouncer that delivers at least every maxWait
// while paths keep arriving. A zero maxWait disables the bound.
func NewDebouncerWithMaxWait(window, maxWait time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		pending:  make(map[unique.Handle[string]]struct{}),
		window:   window,
		maxWait:  maxWait,
		callback: callback,
	}
}

// Add records path and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if len(d.pending) == 0 {
		d.first = now
	}
	d.pending[unique.Make(path)] = struct{}{}

	delay := d.window
	if d.maxWait > 0 {
		if remaining := d.first.Add(d.maxWait).Sub(now); remaining < delay {
			delay = max(remaining, 0)
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

// fire delivers the pending batch asynchronously.
func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	paths := d.drain()
	d.mu.Unlock()

	if len(paths) > 0 && d.callback != nil {
		go d.callback(paths)
	}
}

// Flush delivers the pending batch now and waits for the callback to return.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		if !d.timer.Stop() {
			// the timer already fired and owns the batch
			d.mu.Unlock()
			return
		}
		d.timer = nil
	}
	paths := d.drain()
	d.mu.Unlock()

	if len(paths) > 0 && d.callback != nil {
		d.callback(paths)
	}
}

// drain empties the pending set and returns its paths sorted. The caller holds mu.
func (d *Debouncer) drain() []string {
	paths := make([]string, 0, len(d.pending))
	for handle := range d.pending {
		paths = append(paths, handle.Value())
	}
	clear(d.pending)
	slices.Sort(paths)
	return paths
}
