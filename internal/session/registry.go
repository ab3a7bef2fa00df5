package session

import (
	"context"
	"fmt"

	"github.com/couchcryptid/rainfall-heatmap-service/internal/cache"
	"github.com/google/uuid"
)

// Registry holds live sessions. When more than maxSessions exist, the least
// recently used one is closed and forgotten.
type Registry struct {
	deps     Deps
	sessions *cache.LRU[*Session]
}

// NewRegistry creates a Registry whose sessions share deps.
func NewRegistry(deps Deps, maxSessions int) *Registry {
	r := &Registry{
		deps:     deps,
		sessions: cache.New[*Session](maxSessions, 0, nil),
	}
	r.sessions.OnEvict(func(id string, s *Session) {
		if err := s.Close(context.Background()); err != nil {
			deps.Logger.Warn("close evicted session", "session", id, "error", err)
		}
		deps.Logger.Info("session evicted", "session", id)
		r.updateGauge()
	})
	return r
}

// Create starts a new session.
func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.deps)
	r.sessions.Put(s.ID(), s)
	r.updateGauge()
	r.deps.Logger.Debug("session created", "session", s.ID())
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete closes and forgets the session with id.
func (r *Registry) Delete(ctx context.Context, id string) error {
	s, ok := r.sessions.Remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.updateGauge()
	return s.Close(ctx)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) updateGauge() {
	r.deps.Metrics.ActiveSessions.Set(float64(r.sessions.Len()))
}
