package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"finquiz-service/internal/app"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Live sessions carry running timers, so the engines themselves stay in a
//     local in-process map.
//   - Redis holds a liveness marker per session, which lets operators see how
//     many sessions each instance is running and could back cross-instance
//     routing later.
type SessionRegistry struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex

	sessions map[string]*app.LiveSession
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.LiveSession),
	}
}

func (r *SessionRegistry) Add(session *app.LiveSession) {
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(session.ID), session.UserID, r.ttl).Err()
}

func (r *SessionRegistry) Get(id string) (*app.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	_ = r.client.Del(context.Background(), r.key(id)).Err()
}

func (r *SessionRegistry) key(id string) string {
	return "quiz:session:" + id
}
