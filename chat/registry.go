package chat

import (
	"sort"
	"sync"
)

// Registry is the single source of truth for which user is reachable on
// which session. It keeps the userID->sessionID and sessionID->userID views
// of the same relation; every mutation updates both under one lock so they
// can never diverge.
type Registry struct {
	mu        sync.RWMutex
	byUser    map[int64]string
	bySession map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[int64]string),
		bySession: make(map[string]int64),
	}
}

// Register binds userID to sessionID. A user holds at most one session: any
// prior session for the user is removed and its id returned so the caller can
// force-close the stale transport. Re-registering the same pair is a no-op.
func (r *Registry) Register(userID int64, sessionID string) (evicted string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior, ok := r.byUser[userID]
	if ok && prior == sessionID {
		return ""
	}
	if ok {
		delete(r.bySession, prior)
		evicted = prior
	}
	r.byUser[userID] = sessionID
	r.bySession[sessionID] = userID
	return evicted
}

// Resolve returns the session for a user, if one is connected.
func (r *Registry) Resolve(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.byUser[userID]
	return sessionID, ok
}

// UserFor returns the user bound to a session.
func (r *Registry) UserFor(sessionID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.bySession[sessionID]
	return userID, ok
}

// Unregister removes the session from both views. Unregistering an unknown
// session is a no-op.
func (r *Registry) Unregister(sessionID string) (userID int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.bySession[sessionID]
	if !ok {
		return 0, false
	}
	delete(r.bySession, sessionID)
	delete(r.byUser, userID)
	return userID, true
}

// OnlineUsers returns a sorted snapshot of every connected user id.
func (r *Registry) OnlineUsers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]int64, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}
