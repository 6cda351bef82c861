package runner

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EchoRunner streams the prompt back one whitespace-separated token at a
// time, with a configurable inter-token delay. It is the default runner for
// local development and protocol testing.
type EchoRunner struct {
	logger *zap.Logger
	delay  time.Duration
}

var _ Runner = (*EchoRunner)(nil)

// NewEchoRunner creates a runner echoing prompts as token events
func NewEchoRunner(logger *zap.Logger, delay time.Duration) *EchoRunner {
	return &EchoRunner{
		logger: logger.Named("runner.echo"),
		delay:  delay,
	}
}

// Run implements Runner.Run
func (r *EchoRunner) Run(ctx context.Context, req Request) (<-chan Event, error) {
	tokens := strings.Fields(req.Prompt)
	out := make(chan Event)

	go func() {
		defer close(out)
		for i, tok := range tokens {
			if r.delay > 0 {
				select {
				case <-ctx.Done():
					r.logger.Debug("run cancelled",
						zap.String("job_id", req.JobID),
						zap.Int("emitted", i))
					return
				case <-time.After(r.delay):
				}
			}

			text := tok
			if i < len(tokens)-1 {
				text += " "
			}
			select {
			case out <- Event{Type: "token", Text: text}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- Event{Type: "status", Data: map[string]any{"state": "completed", "tokens": len(tokens)}}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}
