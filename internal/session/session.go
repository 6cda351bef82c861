package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relayforge/agentgate/pkg/protocol"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrTaskRunning is returned when a run is already in flight for the session
	ErrTaskRunning = errors.New("a task is already running for this session")
)

// Session represents one logical, possibly-reconnected conversation with an
// agent run. It outlives any single connection; a connection only holds a
// non-owning reference. The sequence counter is strictly increasing across
// the whole session lifetime, independent of reconnects.
type Session struct {
	ID        string
	CreatedAt time.Time

	seq        atomic.Int64
	lastActive atomic.Int64 // unix nanos
	buf        *Ring

	// mirror, when set, receives every recorded event (redis backend)
	mirror func(ev *protocol.Event)

	mu     sync.Mutex
	jobID  string
	cancel context.CancelFunc
	sink   Sink
}

// Sink receives live output for the connection currently bound to a session.
// The running task emits through the session so that a reconnect picks up the
// live stream after replay.
type Sink interface {
	PushEvent(ev *protocol.Event)
	PushResult(id any, result any)
}

func newSession(id string, bufSize int) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		buf:       NewRing(bufSize),
	}
	s.Touch()
	return s
}

// NextSeq atomically assigns the next event sequence number
func (s *Session) NextSeq() int64 {
	return s.seq.Add(1)
}

// Seq returns the last assigned sequence number
func (s *Session) Seq() int64 {
	return s.seq.Load()
}

// Record appends an already-stamped event to the replay buffer
func (s *Session) Record(ev *protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(ev)
}

func (s *Session) record(ev *protocol.Event) {
	s.buf.Append(ev)
	if s.mirror != nil {
		s.mirror(ev)
	}
	s.Touch()
}

// EventsAfter returns retained events with seq greater than lastSeq, ascending
func (s *Session) EventsAfter(lastSeq int64) []*protocol.Event {
	s.Touch()
	return s.buf.After(lastSeq)
}

// Touch marks the session as recently used
func (s *Session) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// IdleFor reports how long the session has gone unused
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActive.Load()))
}

// SetTask stores the handle of an in-flight run. At most one run may be
// outstanding per session.
func (s *Session) SetTask(jobID string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrTaskRunning
	}
	s.jobID = jobID
	s.cancel = cancel
	return nil
}

// ClearTask drops the task handle if it still belongs to jobID
func (s *Session) ClearTask(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobID == jobID {
		s.jobID = ""
		s.cancel = nil
	}
}

// CancelTask cooperatively cancels the running task, if any. Events already
// enqueued are not retracted; the run stops at its next suspension point.
func (s *Session) CancelTask() bool {
	s.mu.Lock()
	cancel := s.cancel
	s.jobID = ""
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// HasTask reports whether a run is currently in flight
func (s *Session) HasTask() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// BindSink attaches the sink of the connection now bound to this session,
// replacing any previous one.
func (s *Session) BindSink(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
	s.Touch()
}

// UnbindSink detaches sink if it is still the bound one. A connection calls
// this on teardown so it never races a newer binding.
func (s *Session) UnbindSink(sink Sink) {
	s.mu.Lock()
	if s.sink == sink {
		s.sink = nil
	}
	s.mu.Unlock()
}

// Resume rebinds sink and replays every retained event with seq greater than
// lastSeq through it, in ascending order, returning the replay count. The
// lock is held across rebind, snapshot and replay delivery, so an event a
// running task emits concurrently lands either in the replay or live after
// it, exactly once.
func (s *Session) Resume(sink Sink, lastSeq int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	events := s.buf.After(lastSeq)
	for _, ev := range events {
		sink.PushEvent(ev)
	}
	s.Touch()
	return len(events)
}

// Emit records a stamped event and forwards it to the bound connection, if
// any. Recording and delivery share one critical section so a concurrent
// Resume observes the event either in its replay snapshot or live, never
// both.
func (s *Session) Emit(ev *protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(ev)
	if s.sink != nil {
		s.sink.PushEvent(ev)
	}
}

// EmitResult forwards a terminal result to the bound connection, if any
func (s *Session) EmitResult(id any, result any) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.PushResult(id, result)
	}
}

// restoreSeq seeds the sequence counter when rebuilding from a mirror
func (s *Session) restoreSeq(seq int64) {
	s.seq.Store(seq)
}
