package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/auth/jwt"
	"github.com/relayforge/agentgate/internal/common/config"
)

var (
	// ErrInvalidToken is returned when a bearer token is absent or fails validation
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the verified principal behind a bearer token
type Identity struct {
	Subject string
	Role    string
}

// Validator maps an opaque bearer token to a verified identity or rejects it
type Validator interface {
	Validate(ctx context.Context, token string) (*Identity, error)
}

// Mode represents the token validation mode
type Mode string

const (
	// ModeNone accepts every connection; intended for local development
	ModeNone Mode = "none"
	// ModeJWT validates HS256-signed bearer tokens
	ModeJWT Mode = "jwt"
	// ModeStatic validates tokens against a configured bcrypt hash list
	ModeStatic Mode = "static"
)

// NewValidator creates a validator based on the configured mode
func NewValidator(logger *zap.Logger, cfg *config.AuthConfig) (Validator, error) {
	switch Mode(cfg.Mode) {
	case ModeJWT:
		svc, err := jwt.NewService(jwt.Config{
			SecretKey: cfg.JWT.SecretKey,
			Duration:  cfg.JWT.Duration,
		})
		if err != nil {
			return nil, err
		}
		return &JWTValidator{svc: svc}, nil
	case ModeStatic:
		return NewStaticValidator(logger, cfg.Static)
	case ModeNone, "":
		logger.Warn("token validation disabled")
		return &NoopValidator{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

// JWTValidator validates HS256 bearer tokens issued by this deployment
type JWTValidator struct {
	svc *jwt.Service
}

var _ Validator = (*JWTValidator)(nil)

// Validate implements Validator.Validate
func (v *JWTValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := v.svc.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// NoopValidator accepts every token, including the empty one
type NoopValidator struct{}

var _ Validator = (*NoopValidator)(nil)

// Validate implements Validator.Validate
func (v *NoopValidator) Validate(_ context.Context, _ string) (*Identity, error) {
	return &Identity{Subject: "anonymous"}, nil
}
