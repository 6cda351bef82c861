package core

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relayforge/agentgate/pkg/protocol"
)

// heartbeatLoop probes liveness on a fixed period. A heartbeat carries no
// seq and bypasses flow control. Two independent triggers force a close:
// absolute inbound idleness past IdleTimeout, and two consecutive ticks with
// no inbound frame within twice the heartbeat interval.
func (c *Conn) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.metrics.Heartbeat()
			c.control.Push(&outbound{payload: protocol.NewEventPush(&protocol.Event{Type: protocol.EventTypePing})})

			idle := time.Since(c.lastRecvTime())
			if idle > 2*c.cfg.HeartbeatInterval {
				missed++
			} else {
				missed = 0
			}

			if idle > c.cfg.IdleTimeout || missed >= 2 {
				c.logger.Info("closing unresponsive connection",
					zap.Duration("idle", idle),
					zap.Int("missed_heartbeats", missed))
				c.close(websocket.CloseGoingAway, "idle timeout")
				return
			}
		}
	}
}
