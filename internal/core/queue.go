package core

import "sync"

// outbound is one message awaiting transmission. seq is zero for messages
// outside event flow control (results, errors, heartbeats).
type outbound struct {
	seq     int64
	payload any
}

// sendQueue is an unbounded FIFO mailbox. Ack-window backpressure must delay
// events without dropping them, so a bounded channel would either block the
// producing task or lose data; the queue grows instead and the consumer is
// woken through a single-slot notify channel.
type sendQueue struct {
	mu     sync.Mutex
	items  []*outbound
	notify chan struct{}
}

func newSendQueue() *sendQueue {
	return &sendQueue{notify: make(chan struct{}, 1)}
}

// Push appends a message and wakes a waiting consumer
func (q *sendQueue) Push(m *outbound) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the head message, if any
func (q *sendQueue) TryPop() (*outbound, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	m := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return m, true
}

// Wait returns the channel signaled on every Push. A signal is a hint, not a
// guarantee of an item: consumers re-check with TryPop.
func (q *sendQueue) Wait() <-chan struct{} {
	return q.notify
}

// Len returns the number of queued messages
func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
