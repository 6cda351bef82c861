package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/common/config"
	"github.com/relayforge/agentgate/pkg/protocol"
)

// RedisRegistry implements Registry with a best-effort Redis mirror of each
// session's sequence counter and replay buffer. Task handles stay local; the
// mirror only lets a fresh process serve session.resume for sessions it has
// not seen, within the mirror TTL. It is not a durability guarantee.
type RedisRegistry struct {
	logger  *zap.Logger
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	bufSize int

	mu       sync.Mutex
	sessions map[string]*Session
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry creates a Redis-mirrored session registry
func NewRedisRegistry(logger *zap.Logger, cfg *config.SessionConfig, bufSize int) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisRegistry{
		logger:   logger.Named("session.registry.redis"),
		client:   client,
		prefix:   cfg.Redis.Prefix,
		ttl:      cfg.Redis.TTL,
		bufSize:  bufSize,
		sessions: make(map[string]*Session),
	}, nil
}

func (r *RedisRegistry) seqKey(id string) string {
	return r.prefix + ":seq:" + id
}

func (r *RedisRegistry) eventsKey(id string) string {
	return r.prefix + ":events:" + id
}

// GetOrCreate implements Registry.GetOrCreate
func (r *RedisRegistry) GetOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	if id == "" {
		id = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		sess.Touch()
		return sess, false, nil
	}

	sess, restored, err := r.rebuild(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		sess = r.attach(newSession(id, r.bufSize))
	}
	r.sessions[id] = sess
	return sess, !restored, nil
}

// Find implements Registry.Find
func (r *RedisRegistry) Find(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		return sess, nil
	}

	sess, restored, err := r.rebuild(ctx, id)
	if err != nil {
		return nil, err
	}
	if !restored {
		return nil, ErrSessionNotFound
	}
	r.sessions[id] = sess
	return sess, nil
}

// Close implements Registry.Close
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

// attach installs the mirror hook recording events to Redis
func (r *RedisRegistry) attach(sess *Session) *Session {
	id := sess.ID
	sess.mirror = func(ev *protocol.Event) {
		r.mirrorEvent(id, ev)
	}
	return sess
}

func (r *RedisRegistry) mirrorEvent(id string, ev *protocol.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("failed to marshal event for mirror",
			zap.String("session_id", id),
			zap.Error(err))
		return
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.eventsKey(id), data)
	pipe.LTrim(ctx, r.eventsKey(id), int64(-r.bufSize), -1)
	pipe.Set(ctx, r.seqKey(id), ev.Seq, r.ttl)
	pipe.Expire(ctx, r.eventsKey(id), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to mirror event to redis",
			zap.String("session_id", id),
			zap.Int64("seq", ev.Seq),
			zap.Error(err))
	}
}

// rebuild loads a session from the Redis mirror. Returns (nil, false, nil)
// when the mirror has no trace of the identifier.
func (r *RedisRegistry) rebuild(ctx context.Context, id string) (*Session, bool, error) {
	val, err := r.client.Get(ctx, r.seqKey(id)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session mirror: %w", err)
	}

	seq, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt seq mirror for session %s: %w", id, err)
	}

	raw, err := r.client.LRange(ctx, r.eventsKey(id), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read event mirror: %w", err)
	}

	events := make([]*protocol.Event, 0, len(raw))
	for _, item := range raw {
		var ev protocol.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			r.logger.Warn("skipping corrupt mirrored event",
				zap.String("session_id", id),
				zap.Error(err))
			continue
		}
		events = append(events, &ev)
	}

	sess := newSession(id, r.bufSize)
	sess.restoreSeq(seq)
	sess.buf.Restore(events)
	r.attach(sess)

	r.logger.Info("restored session from redis mirror",
		zap.String("session_id", id),
		zap.Int64("seq", seq),
		zap.Int("events", len(events)))
	return sess, true, nil
}
