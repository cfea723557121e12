package lsp

import (
	"sort"
	"sync"
	"time"
)

// debouncer batches document URIs and calls onTrigger once no new URI has
// arrived for the configured duration. A zero duration triggers
// synchronously.
type debouncer struct {
	duration  time.Duration
	onTrigger func(uris []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

func newDebouncer(d time.Duration, onTrigger func(uris []string)) *debouncer {
	if onTrigger == nil {
		panic("onTrigger callback cannot be nil")
	}
	return &debouncer{
		duration:  d,
		onTrigger: onTrigger,
		pending:   make(map[string]struct{}),
	}
}

// Changed queues uri for analysis.
func (d *debouncer) Changed(uri string) {
	if d.duration <= 0 {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.onTrigger([]string{uri})
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[uri] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// Forget drops a queued uri, for documents closed before their turn.
func (d *debouncer) Forget(uri string) {
	d.mu.Lock()
	delete(d.pending, uri)
	d.mu.Unlock()
}

func (d *debouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	uris := make([]string, 0, len(d.pending))
	for u := range d.pending {
		uris = append(uris, u)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	sort.Strings(uris)
	d.onTrigger(uris)
}

// Stop cancels pending work. Later changes are ignored.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	clear(d.pending)
}
