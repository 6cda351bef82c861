package core

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/runner"
	"github.com/relayforge/agentgate/internal/session"
	"github.com/relayforge/agentgate/pkg/protocol"
)

// handleAck advances the acknowledgment high-water mark. No response.
func (c *Conn) handleAck(req *protocol.Request) {
	p, err := protocol.AckParamsOf(req)
	if err != nil {
		c.sendError(req.ID, protocol.ErrorCodeInvalidParams, err.Error())
		return
	}
	c.advanceAck(p.LastSeq)
}

// handleRun starts an agent run on a new or existing session.
func (c *Conn) handleRun(req *protocol.Request) {
	p, err := protocol.RunParamsOf(req)
	if err != nil {
		c.sendError(req.ID, protocol.ErrorCodeInvalidParams, err.Error())
		return
	}

	sess, created, err := c.registry.GetOrCreate(c.ctx, p.SessionID)
	if err != nil {
		c.logger.Error("failed to resolve session", zap.Error(err))
		c.sendError(req.ID, protocol.ErrorCodeInternalError, "failed to resolve session")
		return
	}
	if created {
		c.metrics.SessionCreated()
	}

	jobID := uuid.New().String()
	// the run task is scoped to the session, not the connection: closing
	// the socket must not cancel it
	runCtx, cancel := context.WithCancel(context.Background())
	if err := sess.SetTask(jobID, cancel); err != nil {
		cancel()
		c.sendError(req.ID, protocol.ErrorCodeInternalError, "a run is already in progress for this session")
		return
	}

	c.bind(sess)
	c.sendResult(req.ID, map[string]any{
		"status":    protocol.StatusStarted,
		"sessionId": sess.ID,
		"jobId":     jobID,
	})

	c.logger.Info("agent run started",
		zap.String("session_id", sess.ID),
		zap.String("job_id", jobID))

	go c.runTask(runCtx, sess, jobID, req.ID, runner.Request{
		JobID:     jobID,
		SessionID: sess.ID,
		Prompt:    p.Prompt,
		Options:   p.Options,
	})
}

// runTask consumes the runner's stream, stamping every event with the next
// session sequence number and emitting it through the session's bound sink.
func (c *Conn) runTask(ctx context.Context, sess *session.Session, jobID string, reqID any, req runner.Request) {
	defer sess.ClearTask(jobID)

	events, err := c.runner.Run(ctx, req)
	if err != nil {
		c.logger.Error("agent run failed to start",
			zap.String("job_id", jobID),
			zap.Error(err))
		seq := sess.NextSeq()
		sess.Emit(&protocol.Event{Type: protocol.EventTypeError, Seq: seq, Text: err.Error()})
		sess.EmitResult(reqID, map[string]any{"status": protocol.StatusDone})
		return
	}

	for ev := range events {
		seq := sess.NextSeq()
		sess.Emit(&protocol.Event{
			Type: ev.Type,
			Seq:  seq,
			Text: ev.Text,
			Data: ev.Data,
		})
	}

	// a cancelled run ends silently; agent.cancel already replied
	if ctx.Err() == nil {
		sess.EmitResult(reqID, map[string]any{"status": protocol.StatusDone})
		c.logger.Info("agent run finished",
			zap.String("session_id", sess.ID),
			zap.String("job_id", jobID),
			zap.Int64("last_seq", sess.Seq()))
	}
}

// handleCancel cooperatively cancels the bound session's running task.
// With no session bound this is an idempotent no-op that still replies
// cancelled, so clients can treat cancellation as fire-and-acknowledge.
func (c *Conn) handleCancel(req *protocol.Request) {
	if _, err := protocol.CancelParamsOf(req); err != nil {
		c.sendError(req.ID, protocol.ErrorCodeInvalidParams, err.Error())
		return
	}

	if sess := c.session(); sess != nil {
		if sess.CancelTask() {
			c.logger.Info("agent run cancelled", zap.String("session_id", sess.ID))
		}
	}
	c.sendResult(req.ID, map[string]any{"status": protocol.StatusCancelled})
}

// handleResume rebinds a session to this connection and replays every
// retained event past the peer's last acknowledged sequence.
func (c *Conn) handleResume(req *protocol.Request) {
	p, err := protocol.ResumeParamsOf(req)
	if err != nil {
		c.sendError(req.ID, protocol.ErrorCodeInvalidParams, err.Error())
		return
	}

	sess, err := c.registry.Find(c.ctx, p.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.sendError(req.ID, protocol.ErrorCodeSessionNotFound, "session not found")
			return
		}
		c.logger.Error("failed to look up session", zap.Error(err))
		c.sendError(req.ID, protocol.ErrorCodeInternalError, "failed to look up session")
		return
	}

	c.attach(sess)
	// the peer has consumed everything up to lastSeq
	c.advanceAck(p.LastSeq)

	replayed := sess.Resume(c, p.LastSeq)
	c.metrics.EventsReplayed(replayed)

	c.sendResult(req.ID, map[string]any{
		"status":    protocol.StatusResumed,
		"sessionId": sess.ID,
	})

	c.logger.Info("session resumed",
		zap.String("session_id", sess.ID),
		zap.Int64("last_seq", p.LastSeq),
		zap.Int("replayed", replayed))
}
