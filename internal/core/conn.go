package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/common/config"
	"github.com/relayforge/agentgate/internal/runner"
	"github.com/relayforge/agentgate/internal/session"
	"github.com/relayforge/agentgate/pkg/metrics"
	"github.com/relayforge/agentgate/pkg/protocol"
)

const writeTimeout = 10 * time.Second

type handlerFunc func(req *protocol.Request)

// Conn holds one live socket's interaction state. Three goroutines share it
// for the connection lifetime (reader, writer, heartbeat monitor), plus a
// run task per in-flight agent.run owned by the bound session.
type Conn struct {
	id       string
	logger   *zap.Logger
	ws       *websocket.Conn
	cfg      *config.ProtocolConfig
	metrics  *metrics.Metrics
	registry session.Registry
	runner   runner.Runner

	// events is subject to ack-window flow control; control messages
	// (results, errors, heartbeats) bypass it and may overtake a blocked
	// event so they never starve behind a slow consumer.
	events  *sendQueue
	control *sendQueue

	lastAck  atomic.Int64
	ackCh    chan struct{}
	lastRecv atomic.Int64 // unix nanos

	limiter  *rateLimiter
	handlers map[string]handlerFunc

	mu   sync.Mutex
	sess *session.Session

	ctx       context.Context
	cancel    context.CancelFunc
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(id string, logger *zap.Logger, ws *websocket.Conn, cfg *config.ProtocolConfig,
	m *metrics.Metrics, registry session.Registry, run runner.Runner) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:       id,
		logger:   logger.Named("conn").With(zap.String("conn_id", id)),
		ws:       ws,
		cfg:      cfg,
		metrics:  m,
		registry: registry,
		runner:   run,
		events:   newSendQueue(),
		control:  newSendQueue(),
		ackCh:    make(chan struct{}, 1),
		limiter:  newRateLimiter(cfg.RateLimitMsgs, cfg.RateLimitInterval),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.handlers = map[string]handlerFunc{
		protocol.MethodAck:           c.handleAck,
		protocol.MethodAgentRun:      c.handleRun,
		protocol.MethodAgentCancel:   c.handleCancel,
		protocol.MethodSessionResume: c.handleResume,
	}
	c.touchRecv()
	return c
}

// serve runs the connection: writer and heartbeat in their own goroutines,
// reader on the calling goroutine until transport disconnect.
func (c *Conn) serve() {
	c.metrics.ConnOpened()
	c.ws.SetPongHandler(func(string) error {
		c.touchRecv()
		return nil
	})
	c.ws.SetPingHandler(func(appData string) error {
		c.touchRecv()
		return c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	go c.writeLoop()
	go c.heartbeatLoop()
	c.readLoop()
	c.close(websocket.CloseNormalClosure, "")
}

func (c *Conn) touchRecv() {
	c.lastRecv.Store(time.Now().UnixNano())
}

func (c *Conn) lastRecvTime() time.Time {
	return time.Unix(0, c.lastRecv.Load())
}

// advanceAck moves lastAck forward monotonically and wakes the writer
func (c *Conn) advanceAck(seq int64) {
	for {
		cur := c.lastAck.Load()
		if seq <= cur {
			return
		}
		if c.lastAck.CompareAndSwap(cur, seq) {
			select {
			case c.ackCh <- struct{}{}:
			default:
			}
			return
		}
	}
}

// attach records sess as the connection's bound session. Sink installation
// is the caller's business: bind installs it directly, resume installs it
// atomically with the replay snapshot.
func (c *Conn) attach(sess *session.Session) {
	c.mu.Lock()
	prev := c.sess
	c.sess = sess
	c.mu.Unlock()

	if prev != nil && prev != sess {
		prev.UnbindSink(c)
	}
}

func (c *Conn) bind(sess *session.Session) {
	c.attach(sess)
	sess.BindSink(c)
}

func (c *Conn) session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// PushEvent implements session.Sink
func (c *Conn) PushEvent(ev *protocol.Event) {
	c.metrics.EventOut()
	c.events.Push(&outbound{seq: ev.Seq, payload: protocol.NewEventPush(ev)})
}

// PushResult implements session.Sink
func (c *Conn) PushResult(id any, result any) {
	c.control.Push(&outbound{payload: protocol.NewResponse(id, result)})
}

func (c *Conn) sendResult(id any, result any) {
	c.control.Push(&outbound{payload: protocol.NewResponse(id, result)})
}

func (c *Conn) sendError(id any, code int, message string) {
	c.metrics.ProtocolError(code)
	c.control.Push(&outbound{payload: protocol.NewErrorResponse(id, code, message)})
}

// close tears the connection down exactly once: best-effort close frame,
// cancel the per-connection goroutines, release the socket. The bound
// session and its running task deliberately survive.
func (c *Conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		if sess := c.session(); sess != nil {
			sess.UnbindSink(c)
		}

		msg := websocket.FormatCloseMessage(code, reason)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		c.cancel()
		_ = c.ws.Close()
		c.metrics.ConnClosed()
		c.logger.Debug("connection closed",
			zap.Int("code", code),
			zap.String("reason", reason))
	})
}
