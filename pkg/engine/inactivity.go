package engine

import (
	"sync"
	"time"
)

// InactivityRegistry tracks one idle timer per session, keyed by session
// ID. Cancellation is a direct map lookup; no scanning of live timers.
type InactivityRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewInactivityRegistry creates an empty registry.
func NewInactivityRegistry() *InactivityRegistry {
	return &InactivityRegistry{timers: make(map[string]*time.Timer)}
}

// Start arms an idle timer for the session, replacing any existing one.
// When d elapses without a Cancel, fn runs once on a timer goroutine and
// the entry is removed.
func (r *InactivityRegistry) Start(sessionID string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[sessionID]; ok {
		t.Stop()
	}
	r.timers[sessionID] = time.AfterFunc(d, func() {
		r.mu.Lock()
		delete(r.timers, sessionID)
		r.mu.Unlock()
		fn()
	})
}

// Cancel stops the session's idle timer. Unknown session IDs are a no-op.
func (r *InactivityRegistry) Cancel(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[sessionID]; ok {
		t.Stop()
		delete(r.timers, sessionID)
	}
}

// CancelAll stops every timer. Called on shutdown.
func (r *InactivityRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// Active reports whether the session currently has an armed timer.
func (r *InactivityRegistry) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[sessionID]
	return ok
}
