package app

import (
	"sync"
	"time"

	"github.com/dkeye/Stream/internal/app/session"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
)

type Options struct {
	// MultiplePeers keeps sessions side by side; otherwise a new viewer replaces all others.
	MultiplePeers bool
	// ResetOnCreate builds the shared branch as soon as a session is created.
	ResetOnCreate  bool
	SessionTimeout time.Duration
	// PipelineInit, when set, gives every session its own pipeline built from this description.
	PipelineInit string
	Session      session.Options
}

// Service carries the process-wide collaborators every session is built from.
type Service struct {
	Engine   core.Engine
	Topology *topology.Manager
	Router   *transceiver.Router
	Metrics  *metrics.Metrics
	Options  Options
	Now      func() time.Time

	mu sync.RWMutex
}

func NewService(engine core.Engine, topo *topology.Manager, router *transceiver.Router, opts Options) *Service {
	return &Service{Engine: engine, Topology: topo, Router: router, Options: withDefaults(opts, router), Now: time.Now}
}

func withDefaults(opts Options, router *transceiver.Router) Options {
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 30 * time.Second
	}
	opts.Session.Router = router
	return opts
}

// Current is the option set new sessions are built with.
func (s *Service) Current() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Options
}

// Reconfigure swaps the options. Live sessions keep the ones they were created with.
func (s *Service) Reconfigure(opts Options) {
	opts = withDefaults(opts, s.Router)
	s.mu.Lock()
	s.Options = opts
	s.mu.Unlock()
}

func (s *Service) newSession(peer domain.PeerID) *session.Session {
	cur := s.Current()
	desc := cur.PipelineInit
	opts := cur.Session
	if opts.Now == nil {
		opts.Now = s.Now
	}
	return session.New(peer, opts, func(sink transceiver.Sink) topology.Topology {
		return s.Topology.New(peer, desc, sink)
	})
}
