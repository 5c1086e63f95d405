package app

import (
	"slices"
	"sync"

	"github.com/dkeye/Stream/internal/app/session"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry exclusively owns live sessions. Sessions leave the map under the lock and are closed
// after it is released.
type Registry struct {
	svc *Service

	mu       sync.RWMutex
	sessions map[domain.PeerID]*session.Session
}

func NewRegistry(svc *Service) *Registry {
	r := &Registry{
		svc:      svc,
		sessions: make(map[domain.PeerID]*session.Session),
	}
	if svc.Router != nil {
		svc.Router.SetResolver(func(id domain.PeerID) (transceiver.Sink, bool) {
			s, ok := r.Get(id)
			if !ok {
				return nil, false
			}
			return s, true
		})
	}
	return r
}

// Offer returns the session for peer, creating it when unseen. In single-peer mode an unseen peer
// replaces every other session.
func (r *Registry) Offer(peer domain.PeerID) (*session.Session, error) {
	if peer == "" {
		return nil, domain.ErrMissingPeerID
	}
	opts := r.svc.Current()
	r.mu.Lock()
	s, ok := r.sessions[peer]
	var dropped []*session.Session
	if !ok {
		if !opts.MultiplePeers {
			for id, other := range r.sessions {
				dropped = append(dropped, other)
				delete(r.sessions, id)
			}
		}
		s = r.svc.newSession(peer)
		r.sessions[peer] = s
		log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("created session")
	}
	n := len(r.sessions)
	r.mu.Unlock()

	closeAll(dropped)
	r.svc.Metrics.Evicted("single_peer", len(dropped))
	r.svc.Metrics.Sessions(n)

	if !ok && opts.ResetOnCreate && opts.PipelineInit == "" {
		if err := s.Reset(); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Str("peer", string(peer)).Msg("reset on create")
		}
	}
	return s, nil
}

func (r *Registry) Get(peer domain.PeerID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[peer]
	return s, ok
}

// Remove drops and closes the session of peer, reporting whether it existed.
func (r *Registry) Remove(peer domain.PeerID) bool {
	r.mu.Lock()
	s, ok := r.sessions[peer]
	delete(r.sessions, peer)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	r.svc.Metrics.Sessions(n)
	log.Info().Str("module", "app.registry").Str("peer", string(peer)).Msg("removed session")
	return true
}

// Candidate hands a remote candidate to the session of peer.
func (r *Registry) Candidate(peer domain.PeerID, c domain.Candidate) error {
	if peer == "" {
		return domain.ErrMissingPeerID
	}
	s, ok := r.Get(peer)
	if !ok {
		return domain.ErrUnknownPeer
	}
	return s.AddCandidate(c)
}

// Disconnect closes the session of peer. Unknown peers are not an error.
func (r *Registry) Disconnect(peer domain.PeerID) error {
	if peer == "" {
		return domain.ErrMissingPeerID
	}
	if !r.Remove(peer) {
		log.Debug().Str("module", "app.registry").Str("peer", string(peer)).Msg("disconnect for unknown peer")
	}
	return nil
}

// EvictExpired removes idle shared-pipeline sessions that never became ready.
func (r *Registry) EvictExpired(except domain.PeerID) int {
	now := r.svc.Now()
	timeout := r.svc.Current().SessionTimeout
	return r.evict("timeout", except, func(s *session.Session) bool {
		return s.Expired(now, timeout)
	})
}

// EvictAllInactiveShared removes every session that does not own a pipeline.
func (r *Registry) EvictAllInactiveShared(except domain.PeerID) int {
	return r.evict("shared", except, func(s *session.Session) bool {
		return !s.OwnsPipeline()
	})
}

func (r *Registry) evict(reason string, except domain.PeerID, match func(*session.Session) bool) int {
	r.mu.Lock()
	var out []*session.Session
	for id, s := range r.sessions {
		if id == except || !match(s) {
			continue
		}
		log.Info().Str("module", "app.registry").Str("peer", string(id)).Str("state", s.State().String()).Str("reason", reason).Msg("evicting session")
		out = append(out, s)
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	closeAll(out)
	r.svc.Metrics.Evicted(reason, len(out))
	r.svc.Metrics.Sessions(n)
	return len(out)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	out := make([]*session.Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	closeAll(out)
	r.svc.Metrics.Sessions(0)
	log.Info().Str("module", "app.registry").Int("closed", len(out)).Msg("closed all sessions")
}

// Status snapshots every live session, ordered by peer id.
func (r *Registry) Status() []session.Snapshot {
	r.mu.RLock()
	live := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.RUnlock()

	out := make([]session.Snapshot, 0, len(live))
	for _, s := range live {
		out = append(out, s.Snapshot())
	}
	slices.SortFunc(out, func(a, b session.Snapshot) int {
		switch {
		case a.PeerID < b.PeerID:
			return -1
		case a.PeerID > b.PeerID:
			return 1
		}
		return 0
	})
	return out
}

func (r *Registry) Peers() []domain.PeerID {
	r.mu.RLock()
	out := make([]domain.PeerID, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func closeAll(list []*session.Session) {
	for _, s := range list {
		s.Close()
	}
}
