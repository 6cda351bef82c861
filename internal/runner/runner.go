// Package runner defines the contract between the gateway and the
// long-running agent computation it multiplexes over sessions.
package runner

import (
	"context"
)

// Request describes one agent run
type Request struct {
	JobID     string
	SessionID string
	Prompt    string
	Options   map[string]any
}

// Event is a single element of a run's output stream. Sequence stamping is
// the gateway's job; runners only produce type and payload.
type Event struct {
	Type string
	Text string
	Data map[string]any
}

// Runner produces a lazy, finite, non-restartable stream of events for a
// request. The returned channel is closed when the stream is exhausted.
// Cancellation of ctx must be observed at every suspension point; a cancelled
// run stops producing and closes the channel. A run that fails mid-stream
// emits a terminal "error" event before closing rather than panicking.
type Runner interface {
	Run(ctx context.Context, req Request) (<-chan Event, error)
}
