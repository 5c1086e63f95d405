// Package transceiver maps engine transceiver handles back to the peers that own them.
package transceiver

import (
	"sync"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// Sink receives local candidates routed to a peer.
type Sink interface {
	Deliver(c domain.Candidate)
}

// Resolver looks a live peer up without extending its lifetime.
type Resolver func(domain.PeerID) (Sink, bool)

type entry struct {
	peer domain.PeerID
	bin  core.WebRTCBin
}

// Router stores peer ids, never sessions: a session removed from the registry stops receiving
// candidates even if its entry has not been pruned yet.
type Router struct {
	mu      sync.RWMutex
	entries map[core.TransceiverHandle]entry
	resolve Resolver
}

func NewRouter() *Router {
	return &Router{entries: make(map[core.TransceiverHandle]entry)}
}

// SetResolver installs the peer lookup, normally the registry.
func (r *Router) SetResolver(fn Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolve = fn
}

func (r *Router) Bind(h core.TransceiverHandle, bin core.WebRTCBin, peer domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[h] = entry{peer: peer, bin: bin}
	log.Debug().Str("module", "app.transceiver").Str("peer", string(peer)).Uint64("handle", uint64(h)).Msg("bound transceiver")
}

// UnbindPeer drops every handle owned by peer.
func (r *Router) UnbindPeer(peer domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, e := range r.entries {
		if e.peer == peer {
			delete(r.entries, h)
		}
	}
}

// Reassociate moves peer onto the first transceiver of bin after a renegotiation.
func (r *Router) Reassociate(bin core.WebRTCBin, peer domain.PeerID) bool {
	handles := bin.Transceivers()
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, e := range r.entries {
		if e.peer == peer {
			delete(r.entries, h)
		}
	}
	if len(handles) == 0 {
		return false
	}
	r.entries[handles[0]] = entry{peer: peer, bin: bin}
	return true
}

// Dispatch hands c to every live peer whose transceiver lives on bin and reports how many got it.
func (r *Router) Dispatch(bin core.WebRTCBin, c domain.Candidate) int {
	r.mu.RLock()
	resolve := r.resolve
	peers := make([]domain.PeerID, 0, len(r.entries))
	for _, e := range r.entries {
		if e.bin == bin {
			peers = append(peers, e.peer)
		}
	}
	r.mu.RUnlock()

	if resolve == nil {
		return 0
	}
	n := 0
	for _, p := range peers {
		if s, ok := resolve(p); ok {
			s.Deliver(c)
			n++
		}
	}
	log.Debug().Str("module", "app.transceiver").Int("delivered", n).Uint16("mline", c.SDPMLineIndex).Msg("routed local candidate")
	return n
}

func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
