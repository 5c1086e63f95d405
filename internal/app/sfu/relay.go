// Package sfu fans RTP packets out to a changing set of outputs.
package sfu

import (
	"maps"
	"sync"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

// Relay copies every forwarded packet to each output. Outputs that fail a write are dropped.
type Relay struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	outTracks map[string]*OutTrack
}

func NewRelay(logger zerolog.Logger) *Relay {
	return &Relay{
		logger:    logger,
		outTracks: make(map[string]*OutTrack),
	}
}

// Forward writes a clone of pkt to every live output.
func (r *Relay) Forward(pkt *rtp.Packet) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	var dirty []string
	for key, ot := range snapshot {
		switch ot.GetState() {
		case TrackStateDelete:
			dirty = append(dirty, key)
		case TrackStateMuted:
		case TrackStateOk:
			if err := ot.write(pkt.Clone()); err != nil {
				r.logger.Error().
					Err(err).
					Str("output", key).
					Msg("relay write RTP error, marking outtrack as delete")
				ot.MarkDelete()
				dirty = append(dirty, key)
				continue
			}
			ot.sent.Add(1)
		}
	}

	// Cleanup is done outside the RLock.
	if len(dirty) > 0 {
		r.cleanupDeleted(dirty)
	}
}

func (r *Relay) cleanupDeleted(dirty []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range dirty {
		if ot, ok := r.outTracks[key]; ok && ot.GetState() == TrackStateDelete {
			delete(r.outTracks, key)
		}
	}
}

// MarkAllDelete detaches every output on the next forwarded packet.
func (r *Relay) MarkAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.MarkDelete()
	}
}

// AddOutTrack adds or replaces the output under key.
func (r *Relay) AddOutTrack(key string, ot *OutTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.outTracks[key]; ok {
		old.MarkDelete()
	}
	r.outTracks[key] = ot
}

// RemoveOutTrack drops the output under key immediately.
func (r *Relay) RemoveOutTrack(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ot, ok := r.outTracks[key]; ok {
		ot.MarkDelete()
		delete(r.outTracks, key)
	}
}

func (r *Relay) OutTrack(key string) (*OutTrack, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ot, ok := r.outTracks[key]
	return ot, ok
}

func (r *Relay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outTracks)
}
