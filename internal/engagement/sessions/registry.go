// Package sessions tracks in-flight voice calls between placement and the
// provider's completion webhook.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the in-memory record of a placed call awaiting completion.
type Session struct {
	ProviderCallID string
	LeadID         uuid.UUID
	ContactID      uuid.UUID
	AttemptNumber  int
	CallType       string
	StartedAt      time.Time
}

// Registry maps provider call IDs to open sessions. All methods are safe for
// concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
	maxAge   time.Duration
	now      func() time.Time
}

// NewRegistry creates a registry. Sessions older than maxAge are dropped by
// Sweep; completion webhooks for swept calls are treated as stale and ignored.
func NewRegistry(maxAge time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// WithClock overrides the registry clock. Test hook.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Open records a placed call keyed by the provider's call ID.
func (r *Registry) Open(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.StartedAt.IsZero() {
		s.StartedAt = r.now()
	}
	r.sessions[s.ProviderCallID] = s
}

// Get returns the session for a provider call ID, if one is open.
func (r *Registry) Get(providerCallID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[providerCallID]
	return s, ok
}

// Close removes the session once the completion webhook has been handled.
func (r *Registry) Close(providerCallID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, providerCallID)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions older than the registry's max age and returns how
// many were removed. Protects against providers that never deliver a
// completion webhook.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.maxAge)
	removed := 0
	for id, s := range r.sessions {
		if s.StartedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
