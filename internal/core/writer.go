package core

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// writeLoop drains the outgoing mailboxes in enqueue order. The control lane
// is always served first so command replies and heartbeats are never starved
// by an event blocked on the ack window.
func (c *Conn) writeLoop() {
	defer c.close(websocket.CloseNormalClosure, "")

	for {
		if msg, ok := c.control.TryPop(); ok {
			if !c.transmit(msg) {
				return
			}
			continue
		}

		if msg, ok := c.events.TryPop(); ok {
			if !c.awaitAckWindow(msg.seq) {
				return
			}
			if !c.transmit(msg) {
				return
			}
			continue
		}

		select {
		case <-c.ctx.Done():
			return
		case <-c.control.Wait():
		case <-c.events.Wait():
		}
	}
}

// awaitAckWindow suspends until seq is within the ack window of the highest
// acknowledged sequence. The wait is signaled on every lastAck update rather
// than polled. Control messages keep flowing while an event is held back.
func (c *Conn) awaitAckWindow(seq int64) bool {
	for seq-c.lastAck.Load() > c.cfg.AckWindow {
		select {
		case <-c.ctx.Done():
			return false
		case <-c.ackCh:
		case <-c.control.Wait():
			for {
				msg, ok := c.control.TryPop()
				if !ok {
					break
				}
				if !c.transmit(msg) {
					return false
				}
			}
		}
	}
	return true
}

func (c *Conn) transmit(msg *outbound) bool {
	data, err := json.Marshal(msg.payload)
	if err != nil {
		c.logger.Error("failed to serialize outbound message", zap.Error(err))
		return true // skip the message, keep the connection
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
		return false
	}
	return true
}
