package contextkit

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry scopes one Manager per session so concurrent sessions
// never share mutable history. The registry itself is safe for concurrent
// use; the managers it hands out are not, and expect single-flight usage
// per session.
type SessionRegistry struct {
	mu       sync.Mutex
	cfg      Config
	metrics  *Metrics
	managers map[string]*Manager
}

// NewSessionRegistry creates a registry whose managers share cfg.
func NewSessionRegistry(cfg Config) *SessionRegistry {
	return &SessionRegistry{
		cfg:      cfg,
		managers: make(map[string]*Manager),
	}
}

// WithMetrics attaches a shared metrics recorder to every manager the
// registry creates from now on.
func (r *SessionRegistry) WithMetrics(metrics *Metrics) *SessionRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = metrics
	return r
}

// GetOrCreate returns the session's manager, creating it on first use.
func (r *SessionRegistry) GetOrCreate(sessionID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mgr, ok := r.managers[sessionID]; ok {
		return mgr
	}

	mgr := NewManager(r.cfg)
	if r.metrics != nil {
		mgr.WithMetrics(r.metrics)
	}
	r.managers[sessionID] = mgr

	slog.Debug("session manager created", "session_id", sessionID)
	return mgr
}

// NewSession creates a manager under a fresh session id and returns both.
func (r *SessionRegistry) NewSession() (string, *Manager) {
	id := uuid.NewString()
	return id, r.GetOrCreate(id)
}

// Remove drops a session's manager and its history.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, sessionID)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}
