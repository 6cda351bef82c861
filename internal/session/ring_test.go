package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relayforge/agentgate/pkg/protocol"
)

func ev(seq int64) *protocol.Event {
	return &protocol.Event{Type: protocol.EventTypeToken, Seq: seq}
}

func TestRingAppendAndAfter(t *testing.T) {
	r := NewRing(5)
	for i := int64(1); i <= 3; i++ {
		r.Append(ev(i))
	}
	assert.Equal(t, 3, r.Len())

	got := r.After(0)
	assert.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	got = r.After(2)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Seq)

	assert.Empty(t, r.After(3))
}

func TestRingEviction(t *testing.T) {
	r := NewRing(3)
	for i := int64(1); i <= 7; i++ {
		r.Append(ev(i))
	}
	assert.Equal(t, 3, r.Len())

	// oldest evicted first, retained events ascending with no gaps
	got := r.After(0)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(5), got[0].Seq)
	assert.Equal(t, int64(6), got[1].Seq)
	assert.Equal(t, int64(7), got[2].Seq)

	// events already evicted are permanently lost
	assert.Len(t, r.After(4), 3)
	assert.Len(t, r.After(6), 1)
}

func TestRingRestore(t *testing.T) {
	r := NewRing(3)
	r.Restore([]*protocol.Event{ev(1), ev(2), ev(3), ev(4), ev(5)})
	// only the most recent size events survive a restore
	got := r.After(0)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Seq)
	assert.Equal(t, int64(5), got[2].Seq)
}
