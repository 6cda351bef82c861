package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	l := newRateLimiter(20, 10*time.Second)
	now := time.Now()

	for i := 0; i < 20; i++ {
		assert.True(t, l.Admit(now), "message %d should be admitted", i+1)
	}
	// the 21st within the window is rejected
	assert.False(t, l.Admit(now))
}

func TestRateLimiterSlidingWindowReset(t *testing.T) {
	l := newRateLimiter(2, 100*time.Millisecond)
	base := time.Now()

	assert.True(t, l.Admit(base))
	assert.True(t, l.Admit(base.Add(10*time.Millisecond)))
	assert.False(t, l.Admit(base.Add(20*time.Millisecond)))

	// once the old receipts fall out of the trailing window admission resumes
	assert.True(t, l.Admit(base.Add(250*time.Millisecond)))
}

func TestRateLimiterBurstAtWindowEdge(t *testing.T) {
	l := newRateLimiter(3, 100*time.Millisecond)
	base := time.Now()

	assert.True(t, l.Admit(base))
	assert.True(t, l.Admit(base.Add(90*time.Millisecond)))
	assert.True(t, l.Admit(base.Add(95*time.Millisecond)))
	// first receipt has left the window by now
	assert.True(t, l.Admit(base.Add(150*time.Millisecond)))
}

func TestSendQueueFIFO(t *testing.T) {
	q := newSendQueue()
	_, ok := q.TryPop()
	assert.False(t, ok)

	q.Push(&outbound{seq: 1})
	q.Push(&outbound{seq: 2})
	q.Push(&outbound{seq: 3})
	assert.Equal(t, 3, q.Len())

	for want := int64(1); want <= 3; want++ {
		m, ok := q.TryPop()
		assert.True(t, ok)
		assert.Equal(t, want, m.seq)
	}
	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestSendQueueWaitSignal(t *testing.T) {
	q := newSendQueue()

	select {
	case <-q.Wait():
		t.Fatal("no signal expected on empty queue")
	default:
	}

	q.Push(&outbound{seq: 1})
	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("expected wakeup after push")
	}
}
