// Package orch holds the request-level business logic behind the signaling endpoints.
package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/config"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry *app.Registry
	Topology *topology.Manager
	Store    *config.Store
	Metrics  *metrics.Metrics

	mu   sync.RWMutex
	cmds map[string]CommandFunc
}

func New(reg *app.Registry, topo *topology.Manager, store *config.Store, m *metrics.Metrics) *Orchestrator {
	o := &Orchestrator{
		Registry: reg,
		Topology: topo,
		Store:    store,
		Metrics:  m,
		cmds:     make(map[string]CommandFunc),
	}
	o.registerDefaults()
	return o
}

// Offer negotiates an answer for peer. Any failure removes the session so the client starts over.
func (o *Orchestrator) Offer(ctx context.Context, peer domain.PeerID, sdp string) (domain.Answer, error) {
	start := time.Now()
	log.Info().Str("module", "orch").Str("peer", string(peer)).Msg("handling offer")

	s, err := o.Registry.Offer(peer)
	if err != nil {
		o.Metrics.Offer("rejected")
		return domain.Answer{}, err
	}
	if err := s.Reset(); err != nil {
		o.fail(peer, "reset_failed", err)
		return domain.Answer{}, wrapAs(domain.ErrResetFailed, err)
	}
	if err := s.SetRemoteOffer(sdp); err != nil {
		o.fail(peer, "invalid_sdp", err)
		return domain.Answer{}, wrapAs(domain.ErrInvalidSDP, err)
	}
	answer, err := s.CreateAnswer(ctx)
	if err != nil {
		o.fail(peer, "answer_failed", err)
		return domain.Answer{}, wrapAs(domain.ErrAnswerFailed, err)
	}

	if n := o.Registry.EvictExpired(peer); n > 0 {
		log.Info().Str("module", "orch").Int("evicted", n).Msg("evicted expired sessions")
	}
	o.Metrics.Offer("ok")
	o.Metrics.Negotiated(time.Since(start))
	log.Info().
		Str("module", "orch").
		Str("peer", string(peer)).
		Int("candidates", len(answer.Candidates)).
		Dur("took", time.Since(start)).
		Msg("sent answer with ICE candidates")
	return answer, nil
}

func (o *Orchestrator) fail(peer domain.PeerID, result string, err error) {
	o.Registry.Remove(peer)
	o.Metrics.Offer(result)
	log.Error().Err(err).Str("module", "orch").Str("peer", string(peer)).Str("result", result).Msg("offer failed")
}

func wrapAs(target, err error) error {
	if errors.Is(err, target) {
		return err
	}
	return fmt.Errorf("%w: %v", target, err)
}

// Candidate routes a remote candidate to peer.
func (o *Orchestrator) Candidate(peer domain.PeerID, c domain.Candidate) error {
	err := o.Registry.Candidate(peer, c)
	switch {
	case err == nil:
		o.Metrics.Candidate("accepted")
	case errors.Is(err, domain.ErrUnknownPeer), errors.Is(err, domain.ErrMissingPeerID):
		o.Metrics.Candidate("unknown_peer")
		log.Warn().Str("module", "orch").Str("peer", string(peer)).Msg("candidate for unknown peer")
	default:
		o.Metrics.Candidate("failed")
		log.Error().Err(err).Str("module", "orch").Str("peer", string(peer)).Msg("add candidate")
	}
	return err
}

// Disconnect closes the session of peer.
func (o *Orchestrator) Disconnect(peer domain.PeerID) error {
	log.Info().Str("module", "orch").Str("peer", string(peer)).Msg("closing session")
	return o.Registry.Disconnect(peer)
}
