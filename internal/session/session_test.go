package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayforge/agentgate/pkg/protocol"
)

type captureSink struct {
	mu   sync.Mutex
	seqs []int64
}

func (c *captureSink) PushEvent(ev *protocol.Event) {
	c.mu.Lock()
	c.seqs = append(c.seqs, ev.Seq)
	c.mu.Unlock()
}

func (c *captureSink) PushResult(any, any) {}

func (c *captureSink) snapshot() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.seqs...)
}

func TestSessionSeqStrictlyIncreasing(t *testing.T) {
	s := newSession("s1", 10)
	assert.Equal(t, int64(0), s.Seq())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.NextSeq()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), s.Seq())
}

func TestSessionRecordAndEventsAfter(t *testing.T) {
	s := newSession("s1", 3)
	for i := 0; i < 5; i++ {
		seq := s.NextSeq()
		s.Record(&protocol.Event{Type: protocol.EventTypeToken, Seq: seq})
	}

	got := s.EventsAfter(0)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Seq)
	assert.Equal(t, int64(5), got[2].Seq)

	got = s.EventsAfter(4)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].Seq)
}

func TestSessionTaskLifecycle(t *testing.T) {
	s := newSession("s1", 10)
	assert.False(t, s.HasTask())
	assert.False(t, s.CancelTask())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.SetTask("job-1", cancel))
	assert.True(t, s.HasTask())

	// only one outstanding run per session
	assert.ErrorIs(t, s.SetTask("job-2", func() {}), ErrTaskRunning)

	assert.True(t, s.CancelTask())
	assert.Error(t, ctx.Err())
	assert.False(t, s.HasTask())
}

func TestResumeAtomicWithConcurrentEmit(t *testing.T) {
	s := newSession("s1", 5000)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			seq := s.NextSeq()
			s.Emit(&protocol.Event{Type: protocol.EventTypeToken, Seq: seq})
		}
	}()

	// rebind fresh sinks while the emitter is running; each sink must see
	// its replay and subsequent live events as one strictly ascending,
	// duplicate-free sequence
	sinks := make([]*captureSink, 0, 40)
	for i := 0; i < 40; i++ {
		sink := &captureSink{}
		s.Resume(sink, 0)
		sinks = append(sinks, sink)
		time.Sleep(time.Millisecond)
	}
	close(stop)
	<-done

	for i, sink := range sinks {
		seqs := sink.snapshot()
		require.NotEmpty(t, seqs, "sink %d received nothing", i)
		for j := 1; j < len(seqs); j++ {
			require.Greater(t, seqs[j], seqs[j-1],
				"sink %d: seq %d delivered after %d", i, seqs[j], seqs[j-1])
		}
	}
}

func TestSessionClearTaskOwnership(t *testing.T) {
	s := newSession("s1", 10)
	_, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.SetTask("job-1", cancel))

	// clearing a stale job id leaves the current task in place
	s.ClearTask("job-0")
	assert.True(t, s.HasTask())

	s.ClearTask("job-1")
	assert.False(t, s.HasTask())
}
