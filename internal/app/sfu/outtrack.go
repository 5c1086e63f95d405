package sfu

import (
	"sync/atomic"

	"github.com/pion/rtp"
)

type TrackState int32

const (
	TrackStateOk TrackState = iota
	TrackStateMuted
	TrackStateDelete
)

// WriteFunc consumes one packet. The packet is owned by the callee.
type WriteFunc func(pkt *rtp.Packet) error

// OutTrack is one output of a relay.
type OutTrack struct {
	write WriteFunc
	state atomic.Int32 // Zero by default (TrackStateOk)
	sent  atomic.Uint64
}

func NewOutTrack(write WriteFunc) *OutTrack {
	return &OutTrack{write: write}
}

func (ot *OutTrack) GetState() TrackState {
	return TrackState(ot.state.Load())
}

func (ot *OutTrack) MarkOk() {
	ot.state.Store(int32(TrackStateOk))
}

func (ot *OutTrack) MarkMuted() {
	ot.state.Store(int32(TrackStateMuted))
}

func (ot *OutTrack) MarkDelete() {
	ot.state.Store(int32(TrackStateDelete))
}

// Sent is the number of packets written to this output.
func (ot *OutTrack) Sent() uint64 { return ot.sent.Load() }
