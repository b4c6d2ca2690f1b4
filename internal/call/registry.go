package call

import "sync"

// Registry maps call ids to live sessions. It is the only call state touched
// from multiple goroutines, so insert, lookup and delete are mutex-guarded;
// everything inside a Session stays single-owner.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for callID, creating it on first use.
// created reports whether this call created the session.
func (r *Registry) GetOrCreate(callID string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[callID]; ok {
		return s, false
	}
	s = NewSession(callID)
	r.sessions[callID] = s
	return s, true
}

// Remove tears down the registry entry for callID. Removing an unknown call
// id is a no-op.
func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, callID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
