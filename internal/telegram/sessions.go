package telegram

import (
	"sync"
	"time"

	"meal-estimator/internal/session"
)

// defaultSessionTTL is how long an untouched pending meal is kept.
const defaultSessionTTL = 6 * time.Hour

// chatSession is one user's pending meal. mu serializes updates arriving
// concurrently from the webhook.
type chatSession struct {
	mu        sync.Mutex
	s         *session.Session
	cardID    int
	notes     []string
	expiresAt time.Time
}

// sessionRegistry holds the pending meal of every active user in memory.
type sessionRegistry struct {
	mu         sync.Mutex
	byUser     map[string]*chatSession
	ttl        time.Duration
	now        func() time.Time
	newSession func(userID string) *session.Session
}

func newSessionRegistry(ttl time.Duration, newSession func(userID string) *session.Session) *sessionRegistry {
	return &sessionRegistry{
		byUser:     make(map[string]*chatSession),
		ttl:        ttl,
		now:        time.Now,
		newSession: newSession,
	}
}

// acquire returns the user's session locked, creating it when missing or
// expired. Callers must unlock cs.mu.
func (r *sessionRegistry) acquire(userID string) *chatSession {
	r.mu.Lock()
	now := r.now()
	cs, ok := r.byUser[userID]
	if !ok || now.After(cs.expiresAt) {
		cs = &chatSession{s: r.newSession(userID)}
		r.byUser[userID] = cs
	}
	cs.expiresAt = now.Add(r.ttl)
	r.mu.Unlock()

	cs.mu.Lock()
	return cs
}

// cleanupExpired drops expired sessions that nobody is using and reports how
// many were removed.
func (r *sessionRegistry) cleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, cs := range r.byUser {
		if !now.After(cs.expiresAt) || !cs.mu.TryLock() {
			continue
		}
		delete(r.byUser, id)
		cs.mu.Unlock()
		removed++
	}
	return removed
}
