package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEchoRunnerStreamsPrompt(t *testing.T) {
	r := NewEchoRunner(zap.NewNop(), 0)
	events, err := r.Run(context.Background(), Request{JobID: "j1", Prompt: "hello world"})
	require.NoError(t, err)

	var sb strings.Builder
	var last Event
	for ev := range events {
		last = ev
		if ev.Type == "token" {
			sb.WriteString(ev.Text)
		}
	}
	assert.Equal(t, "hello world", sb.String())
	assert.Equal(t, "status", last.Type)
	assert.Equal(t, "completed", last.Data["state"])
}

func TestEchoRunnerEmptyPrompt(t *testing.T) {
	r := NewEchoRunner(zap.NewNop(), 0)
	events, err := r.Run(context.Background(), Request{Prompt: "   "})
	require.NoError(t, err)

	var types []string
	for ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"status"}, types)
}

func TestEchoRunnerCancellation(t *testing.T) {
	r := NewEchoRunner(zap.NewNop(), 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	events, err := r.Run(ctx, Request{Prompt: "a b c d e f g h i j"})
	require.NoError(t, err)

	// consume one token then cancel
	first, ok := <-events
	require.True(t, ok)
	assert.Equal(t, "token", first.Type)
	cancel()

	// the stream must terminate promptly at the next suspension point
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("runner did not stop after cancellation")
		}
	}
}
