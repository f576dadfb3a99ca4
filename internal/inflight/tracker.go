// Package inflight marks per-row work as running so the same row cannot
// start a second request before the first one settles.
package inflight

import "sync"

type Tracker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]struct{})}
}

// Begin marks key as running. It returns false when key is already running.
func (t *Tracker) Begin(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[key]; ok {
		return false
	}
	t.active[key] = struct{}{}
	return true
}

func (t *Tracker) End(key string) {
	t.mu.Lock()
	delete(t.active, key)
	t.mu.Unlock()
}

func (t *Tracker) Active(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[key]
	return ok
}
