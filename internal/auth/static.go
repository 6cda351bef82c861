package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/relayforge/agentgate/internal/common/config"
)

// ErrNoStaticTokens is returned when static mode is selected without any tokens
var ErrNoStaticTokens = errors.New("static auth mode requires at least one token")

// StaticValidator checks tokens against a configured list of bcrypt hashes.
// Tokens are never stored in the clear.
type StaticValidator struct {
	logger *zap.Logger
	tokens []config.StaticTokenConfig
}

var _ Validator = (*StaticValidator)(nil)

// NewStaticValidator creates a validator over the configured token list
func NewStaticValidator(logger *zap.Logger, tokens []config.StaticTokenConfig) (*StaticValidator, error) {
	if len(tokens) == 0 {
		return nil, ErrNoStaticTokens
	}
	for _, tk := range tokens {
		if tk.Hash == "" {
			return nil, errors.New("static token entry missing hash")
		}
	}
	return &StaticValidator{
		logger: logger.Named("auth.static"),
		tokens: tokens,
	}, nil
}

// Validate implements Validator.Validate
func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	for _, tk := range v.tokens {
		if bcrypt.CompareHashAndPassword([]byte(tk.Hash), []byte(token)) == nil {
			return &Identity{Subject: tk.Name}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HashToken produces the bcrypt hash for a pre-shared token, used by
// deployment tooling to populate the static token list.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
