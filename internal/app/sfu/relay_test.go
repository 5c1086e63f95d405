package sfu

import (
	"errors"
	"sync"
	"testing"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu   sync.Mutex
	pkts []*rtp.Packet
	fail bool
}

func (c *collector) write(p *rtp.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("closed")
	}
	c.pkts = append(c.pkts, p)
	return nil
}

func TestRelayFansOutClones(t *testing.T) {
	r := NewRelay(zerolog.Nop())
	a, b := &collector{}, &collector{}
	r.AddOutTrack("a", NewOutTrack(a.write))
	r.AddOutTrack("b", NewOutTrack(b.write))

	pkt := &rtp.Packet{Header: rtp.Header{PayloadType: 96, SequenceNumber: 7}, Payload: []byte{1, 2}}
	r.Forward(pkt)

	require.Len(t, a.pkts, 1)
	require.Len(t, b.pkts, 1)
	a.pkts[0].PayloadType = 100
	assert.Equal(t, uint8(96), b.pkts[0].PayloadType)
	assert.Equal(t, uint8(96), pkt.PayloadType)

	ot, ok := r.OutTrack("a")
	require.True(t, ok)
	assert.Equal(t, uint64(1), ot.Sent())
}

func TestRelayOutputStates(t *testing.T) {
	r := NewRelay(zerolog.Nop())
	muted, broken, gone := &collector{}, &collector{fail: true}, &collector{}
	mt := NewOutTrack(muted.write)
	mt.MarkMuted()
	r.AddOutTrack("muted", mt)
	r.AddOutTrack("broken", NewOutTrack(broken.write))
	gt := NewOutTrack(gone.write)
	r.AddOutTrack("gone", gt)
	gt.MarkDelete()

	r.Forward(&rtp.Packet{})
	assert.Empty(t, muted.pkts)
	assert.Empty(t, gone.pkts)
	assert.Equal(t, 1, r.Len(), "failed and deleted outputs are dropped")

	mt.MarkOk()
	r.Forward(&rtp.Packet{})
	assert.Len(t, muted.pkts, 1)

	r.RemoveOutTrack("muted")
	assert.Zero(t, r.Len())
}

func TestRelayMarkAllDelete(t *testing.T) {
	r := NewRelay(zerolog.Nop())
	c := &collector{}
	r.AddOutTrack("a", NewOutTrack(c.write))
	r.MarkAllDelete()
	r.Forward(&rtp.Packet{})
	assert.Empty(t, c.pkts)
	assert.Zero(t, r.Len())
}
