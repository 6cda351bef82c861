package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/common/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewValidatorModes(t *testing.T) {
	logger := zap.NewNop()

	v, err := NewValidator(logger, &config.AuthConfig{Mode: "none"})
	require.NoError(t, err)
	_, ok := v.(*NoopValidator)
	assert.True(t, ok)

	// empty mode defaults to none
	v, err = NewValidator(logger, &config.AuthConfig{})
	require.NoError(t, err)
	_, ok = v.(*NoopValidator)
	assert.True(t, ok)

	_, err = NewValidator(logger, &config.AuthConfig{Mode: "bogus"})
	assert.Error(t, err)

	_, err = NewValidator(logger, &config.AuthConfig{Mode: "jwt"})
	assert.Error(t, err) // missing secret

	v, err = NewValidator(logger, &config.AuthConfig{
		Mode: "jwt",
		JWT:  config.JWTConfig{SecretKey: testSecret, Duration: time.Hour},
	})
	require.NoError(t, err)
	_, ok = v.(*JWTValidator)
	assert.True(t, ok)
}

func TestJWTValidator(t *testing.T) {
	logger := zap.NewNop()
	v, err := NewValidator(logger, &config.AuthConfig{
		Mode: "jwt",
		JWT:  config.JWTConfig{SecretKey: testSecret, Duration: time.Hour},
	})
	require.NoError(t, err)

	jv := v.(*JWTValidator)
	token, err := jv.svc.GenerateToken("alice", "user")
	require.NoError(t, err)

	id, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Subject)

	_, err = v.Validate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticValidator(t *testing.T) {
	logger := zap.NewNop()

	_, err := NewStaticValidator(logger, nil)
	assert.ErrorIs(t, err, ErrNoStaticTokens)

	hash, err := HashToken("s3cret-token")
	require.NoError(t, err)

	v, err := NewStaticValidator(logger, []config.StaticTokenConfig{
		{Name: "ci-bot", Hash: hash},
	})
	require.NoError(t, err)

	id, err := v.Validate(context.Background(), "s3cret-token")
	require.NoError(t, err)
	assert.Equal(t, "ci-bot", id.Subject)

	_, err = v.Validate(context.Background(), "wrong-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
