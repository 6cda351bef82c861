package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/internal/auth"
	"github.com/relayforge/agentgate/internal/common/config"
	"github.com/relayforge/agentgate/internal/runner"
	"github.com/relayforge/agentgate/internal/session"
	"github.com/relayforge/agentgate/pkg/metrics"
	"github.com/relayforge/agentgate/pkg/protocol"
)

// Server accepts WebSocket connections and multiplexes agent sessions over
// them.
type Server struct {
	logger    *zap.Logger
	cfg       *config.GatewayConfig
	router    *gin.Engine
	registry  session.Registry
	validator auth.Validator
	runner    runner.Runner
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
}

// NewServer creates the gateway server
func NewServer(logger *zap.Logger, cfg *config.GatewayConfig, registry session.Registry,
	validator auth.Validator, run runner.Runner, m *metrics.Metrics) *Server {
	s := &Server{
		logger:    logger.Named("gateway"),
		cfg:       cfg,
		registry:  registry,
		validator: validator,
		runner:    run,
		metrics:   m,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	router := gin.New()
	router.Use(s.loggerMiddleware())
	router.Use(s.recoveryMiddleware())

	router.GET("/health_check", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Health check passed.",
		})
	})
	if cfg.Metrics.Enabled {
		router.GET("/metrics", m.Handler())
	}
	router.GET("/ws", s.handleWS)

	s.router = router
	return s
}

// Handler exposes the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the listener fails or Shutdown is called
func (s *Server) Run() error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}
	s.logger.Info("gateway listening", zap.Int("port", s.cfg.Port))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// handleWS upgrades the socket and authenticates before any protocol
// traffic. A missing or invalid token closes with 4401; the upgrade must
// complete first so the close code reaches the client.
func (s *Server) handleWS(c *gin.Context) {
	token, subprotocol := extractToken(c.Request)

	var respHeader http.Header
	if subprotocol != "" {
		respHeader = http.Header{"Sec-WebSocket-Protocol": []string{subprotocol}}
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	identity, err := s.validator.Validate(c.Request.Context(), token)
	if err != nil {
		s.metrics.AuthFailure()
		s.logger.Info("rejected unauthenticated connection",
			zap.String("remote_addr", c.Request.RemoteAddr))
		msg := websocket.FormatCloseMessage(protocol.CloseCodeAuthFailure, "authentication failed")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}

	connID := uuid.New().String()
	s.logger.Info("connection established",
		zap.String("conn_id", connID),
		zap.String("subject", identity.Subject),
		zap.String("remote_addr", c.Request.RemoteAddr))

	conn := newConn(connID, s.logger, ws, &s.cfg.Protocol, s.metrics, s.registry, s.runner)
	conn.serve()
}

// extractToken pulls the bearer token from the WebSocket subprotocol list or
// the token query parameter. Returns the token and the subprotocol value to
// echo back, if any.
func extractToken(r *http.Request) (string, string) {
	if raw := r.Header.Get("Sec-WebSocket-Protocol"); raw != "" {
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		// either the token alone, or "bearer, <token>"
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], parts[0]
		}
		return parts[0], parts[0]
	}
	return r.URL.Query().Get("token"), ""
}
