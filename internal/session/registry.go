package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/common/config"
)

// Registry is the process-wide map from session identifier to session state.
// Creation is an atomic insert-if-absent: connections racing to create the
// same identifier observe a single session.
type Registry interface {
	// GetOrCreate returns the session for id, creating it if absent.
	// An empty id creates a session under a fresh identifier.
	// The second return value reports whether the session was created.
	GetOrCreate(ctx context.Context, id string) (*Session, bool, error)

	// Find returns the session for id or ErrSessionNotFound.
	Find(ctx context.Context, id string) (*Session, error)

	// Close releases registry resources.
	Close() error
}

// Type represents the type of session registry backend
type Type string

const (
	// TypeMemory keeps all session state in process memory
	TypeMemory Type = "memory"
	// TypeRedis additionally mirrors replay state to Redis
	TypeRedis Type = "redis"
)

// NewRegistry creates a session registry based on configuration
func NewRegistry(logger *zap.Logger, cfg *config.SessionConfig, bufSize int) (Registry, error) {
	logger.Info("initializing session registry", zap.String("type", cfg.Type))
	switch Type(cfg.Type) {
	case TypeMemory, "":
		return NewMemoryRegistry(logger, bufSize, cfg.TTL), nil
	case TypeRedis:
		return NewRedisRegistry(logger, cfg, bufSize)
	default:
		return nil, fmt.Errorf("unsupported session registry type: %s", cfg.Type)
	}
}
