package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryRegistry implements Registry using in-memory storage.
//
// Sessions are never destroyed by protocol activity. When ttl is positive a
// janitor evicts sessions that have been idle longer than ttl and have no
// running task; a zero ttl keeps every session for the process lifetime.
type MemoryRegistry struct {
	logger  *zap.Logger
	bufSize int
	ttl     time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates a new in-memory session registry
func NewMemoryRegistry(logger *zap.Logger, bufSize int, ttl time.Duration) *MemoryRegistry {
	r := &MemoryRegistry{
		logger:   logger.Named("session.registry.memory"),
		bufSize:  bufSize,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
	if ttl > 0 {
		go r.janitor()
	}
	return r
}

// GetOrCreate implements Registry.GetOrCreate
func (r *MemoryRegistry) GetOrCreate(_ context.Context, id string) (*Session, bool, error) {
	if id == "" {
		id = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		sess.Touch()
		return sess, false, nil
	}

	sess := newSession(id, r.bufSize)
	r.sessions[id] = sess
	r.logger.Debug("created session", zap.String("session_id", id))
	return sess, true, nil
}

// Find implements Registry.Find
func (r *MemoryRegistry) Find(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close implements Registry.Close
func (r *MemoryRegistry) Close() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	return nil
}

func (r *MemoryRegistry) janitor() {
	interval := r.ttl / 2
	if interval < time.Second {
		interval = r.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *MemoryRegistry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sess := range r.sessions {
		if sess.HasTask() || sess.IdleFor() < r.ttl {
			continue
		}
		delete(r.sessions, id)
		r.logger.Debug("evicted idle session", zap.String("session_id", id))
	}
}
