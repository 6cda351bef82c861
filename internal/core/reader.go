package core

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/pkg/protocol"
)

// readLoop ingests inbound frames until transport disconnect. Every
// protocol-level failure is reported in-band and never terminates the loop.
func (c *Conn) readLoop() {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("connection closed unexpectedly", zap.Error(err))
			}
			return
		}

		c.touchRecv()

		// only text frames are meaningful to the protocol
		if msgType != websocket.TextMessage {
			continue
		}

		c.dispatch(data)
	}
}

func (c *Conn) dispatch(data []byte) {
	if int64(len(data)) > c.cfg.MaxMessageBytes {
		c.sendError(protocol.SniffID(data), protocol.ErrorCodeMessageTooLarge, "Message too large")
		return
	}

	if !c.limiter.Admit(time.Now()) {
		c.metrics.RateLimited()
		c.sendError(protocol.SniffID(data), protocol.ErrorCodeRateLimited, "Rate limit exceeded")
		return
	}

	req, err := protocol.DecodeRequest(data)
	if err != nil {
		c.sendError(protocol.SniffID(data), protocol.ErrorCodeInvalidRequest, "Invalid request")
		return
	}

	handler, ok := c.handlers[req.Method]
	if !ok {
		c.sendError(req.ID, protocol.ErrorCodeMethodNotFound, "Unknown method")
		return
	}

	c.metrics.MessageIn(req.Method)
	handler(req)
}
