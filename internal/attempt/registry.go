package attempt

import (
	"sync"
	"time"
)

// Registry holds live controllers by attempt id, each owned by one user.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	now     func() time.Time
}

type registryEntry struct {
	ownerID string
	ctrl    *Controller
	touched time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry), now: time.Now}
}

// Put registers a started controller. An existing entry for the same attempt
// is closed and replaced.
func (r *Registry) Put(attemptID, ownerID string, ctrl *Controller) {
	r.mu.Lock()
	old := r.entries[attemptID]
	r.entries[attemptID] = &registryEntry{ownerID: ownerID, ctrl: ctrl, touched: r.now()}
	r.mu.Unlock()

	if old != nil && old.ctrl != ctrl {
		old.ctrl.Close()
	}
}

// Get returns the controller if ownerID owns it, and marks it as used.
func (r *Registry) Get(attemptID, ownerID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[attemptID]
	if !ok || e.ownerID != ownerID {
		return nil, false
	}
	e.touched = r.now()
	return e.ctrl, true
}

// Touch marks the controller as used without an owner check. The timer stream
// calls it per delivered tick so a watched question is never swept.
func (r *Registry) Touch(attemptID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[attemptID]
	if ok {
		e.touched = r.now()
	}
	return ok
}

// Remove closes and forgets the controller for attemptID.
func (r *Registry) Remove(attemptID string) {
	r.mu.Lock()
	e, ok := r.entries[attemptID]
	delete(r.entries, attemptID)
	r.mu.Unlock()

	if ok {
		e.ctrl.Close()
	}
}

// Sweep closes and removes controllers untouched for longer than idle.
// It returns the evicted attempt ids.
func (r *Registry) Sweep(idle time.Duration) []string {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var evicted []*registryEntry
	var ids []string
	for id, e := range r.entries {
		if e.touched.Before(cutoff) {
			evicted = append(evicted, e)
			ids = append(ids, id)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range evicted {
		e.ctrl.Close()
	}
	return ids
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
