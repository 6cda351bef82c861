package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/common/config"
	"github.com/relayforge/agentgate/pkg/protocol"
)

func newTestRedisRegistry(t *testing.T) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cfg := &config.SessionConfig{
		Type: "redis",
		Redis: config.SessionRedisConfig{
			Addr:   mr.Addr(),
			Prefix: "testgate",
			TTL:    time.Minute,
		},
	}
	r, err := NewRedisRegistry(zap.NewNop(), cfg, 5)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = r.Close()
		mr.Close()
	})
	return r, mr
}

func TestNewRedisRegistryConnectionError(t *testing.T) {
	cfg := &config.SessionConfig{
		Redis: config.SessionRedisConfig{Addr: "127.0.0.1:0", Prefix: "p", TTL: time.Second},
	}
	r, err := NewRedisRegistry(zap.NewNop(), cfg, 5)
	assert.Nil(t, r)
	assert.Error(t, err)
}

func TestRedisRegistryMirrorAndRestore(t *testing.T) {
	r, _ := newTestRedisRegistry(t)
	ctx := context.Background()

	sess, created, err := r.GetOrCreate(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, created)

	for i := 0; i < 3; i++ {
		seq := sess.NextSeq()
		sess.Record(&protocol.Event{Type: protocol.EventTypeToken, Seq: seq, Text: "t"})
	}

	// drop the local entry to simulate a fresh process
	r.mu.Lock()
	delete(r.sessions, "sid")
	r.mu.Unlock()

	restored, err := r.Find(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, int64(3), restored.Seq())

	events := restored.EventsAfter(1)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)

	// sequence numbering continues where the mirror left off
	assert.Equal(t, int64(4), restored.NextSeq())
}

func TestRedisRegistryFindUnknown(t *testing.T) {
	r, _ := newTestRedisRegistry(t)
	_, err := r.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisRegistryMirrorTrimsToBuffer(t *testing.T) {
	r, mr := newTestRedisRegistry(t)
	ctx := context.Background()

	sess, _, err := r.GetOrCreate(ctx, "sid")
	require.NoError(t, err)

	// buffer size is 5; mirror must be trimmed to the same bound
	for i := 0; i < 9; i++ {
		seq := sess.NextSeq()
		sess.Record(&protocol.Event{Type: protocol.EventTypeToken, Seq: seq})
	}

	items, err := mr.List("testgate:events:sid")
	require.NoError(t, err)
	assert.Len(t, items, 5)

	r.mu.Lock()
	delete(r.sessions, "sid")
	r.mu.Unlock()

	restored, err := r.Find(ctx, "sid")
	require.NoError(t, err)
	events := restored.EventsAfter(0)
	require.Len(t, events, 5)
	assert.Equal(t, int64(5), events[0].Seq)
	assert.Equal(t, int64(9), events[4].Seq)
}

func TestRedisRegistryTTLExpiry(t *testing.T) {
	r, mr := newTestRedisRegistry(t)
	ctx := context.Background()

	sess, _, err := r.GetOrCreate(ctx, "sid")
	require.NoError(t, err)
	seq := sess.NextSeq()
	sess.Record(&protocol.Event{Type: protocol.EventTypeToken, Seq: seq})

	r.mu.Lock()
	delete(r.sessions, "sid")
	r.mu.Unlock()

	// after the mirror TTL passes the session is gone
	mr.FastForward(2 * time.Minute)
	_, err = r.Find(ctx, "sid")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
