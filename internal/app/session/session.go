// Package session is the per-viewer state machine: it owns the candidate buffer, drives
// negotiation on the transceiver and holds the viewer's topology.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Stream/internal/app/codec"
	"github.com/dkeye/Stream/internal/app/ice"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	GatherPoll  = "poll"
	GatherEvent = "event"
)

type Options struct {
	Codec   string
	Payload int
	// Step and Wait bound the wait for local candidate gathering after the answer is set.
	Step   time.Duration
	Wait   time.Duration
	Gather string
	// SDPDebug logs full answer bodies.
	SDPDebug bool
	// Router re-associates shared transceivers after a remote description is applied.
	Router    *transceiver.Router
	Now       func() time.Time
	InboxSize int
}

func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = 50 * time.Millisecond
	}
	if o.Wait <= 0 {
		o.Wait = 500 * time.Millisecond
	}
	if o.Gather == "" {
		o.Gather = GatherPoll
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.InboxSize <= 0 {
		o.InboxSize = 64
	}
	return o
}

// TopologyFunc builds the topology for a session; local candidates go to sink.
type TopologyFunc func(sink transceiver.Sink) topology.Topology

type Session struct {
	peer domain.PeerID
	opts Options
	buf  *ice.Buffer

	// Read without the session lock by eviction and status.
	state        atomic.Int32
	lastActivity atomic.Int64
	custom       atomic.Bool

	mu           sync.Mutex
	topo         topology.Topology
	resetCount   int
	pendingOffer string
	sdpMessage   string
	// remoteSet is cleared by Reset and set once an offer reached the transceiver.
	remoteSet bool
	ufrag     string

	inbox     chan event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	wmu       sync.Mutex
	watchers  map[int]func(domain.Candidate)
	nextWatch int
}

func New(peer domain.PeerID, opts Options, build TopologyFunc) *Session {
	opts = opts.withDefaults()
	s := &Session{
		peer:     peer,
		opts:     opts,
		buf:      ice.NewBuffer(),
		inbox:    make(chan event, opts.InboxSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		watchers: make(map[int]func(domain.Candidate)),
	}
	s.state.Store(int32(domain.StateCreated))
	s.touch()
	s.topo = build(s)
	go s.run()
	return s
}

func (s *Session) Peer() domain.PeerID { return s.peer }

func (s *Session) State() domain.SessionState { return domain.SessionState(s.state.Load()) }

func (s *Session) setState(st domain.SessionState) { s.state.Store(int32(st)) }

func (s *Session) LastActivity() time.Time { return time.Unix(0, s.lastActivity.Load()) }

func (s *Session) touch() { s.lastActivity.Store(s.opts.Now().UnixNano()) }

// Touch records activity without any other effect.
func (s *Session) Touch() { s.touch() }

// OwnsPipeline reports whether the session runs its own pipeline rather than a shared branch.
func (s *Session) OwnsPipeline() bool { return s.custom.Load() }

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Reset rebuilds the topology. On success the session waits for remote candidates.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return domain.ErrSessionClosed
	}
	s.resetCount++
	s.remoteSet = false
	log.Info().Str("module", "app.session").Str("peer", string(s.peer)).Int("reset", s.resetCount).Msg("reset")

	err := s.topo.Reset()
	s.custom.Store(s.topo.Custom())
	if err != nil {
		return err
	}
	s.setState(domain.StateWaitingForIce)
	s.touch()
	return nil
}

func (s *Session) ResetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetCount
}

// SetRemoteOffer applies sdp, or keeps it for the first candidate when no transceiver exists yet.
func (s *Session) SetRemoteOffer(sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return domain.ErrSessionClosed
	}
	s.touch()
	if s.topo.Bin() == nil {
		s.pendingOffer = sdp
		log.Info().Str("module", "app.session").Str("peer", string(s.peer)).Msg("storing remote offer until transceiver is ready")
		return nil
	}
	return s.applyOfferLocked(sdp)
}

func (s *Session) ApplyOffer(sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return domain.ErrSessionClosed
	}
	return s.applyOfferLocked(sdp)
}

func (s *Session) applyOfferLocked(sdp string) error {
	bin := s.topo.Bin()
	if bin == nil {
		return domain.ErrNoTransceiver
	}
	if err := codec.ValidateOffer(sdp); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("peer", string(s.peer)).Msg("invalid SDP offer")
		return err
	}
	if err := bin.SetRemoteDescription(sdp); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("peer", string(s.peer)).Msg("set remote description")
		return fmt.Errorf("%w: %v", domain.ErrInvalidSDP, err)
	}
	s.remoteSet = true
	log.Info().Str("module", "app.session").Str("peer", string(s.peer)).Msg("remote description set")
	s.noteCredentials(sdp)

	shared := s.topo.BinShared()
	if shared && s.opts.Router != nil {
		if !s.opts.Router.Reassociate(bin, s.peer) {
			log.Warn().Str("module", "app.session").Str("peer", string(s.peer)).Msg("shared transceiver has no transceivers to associate")
		}
	}
	for _, c := range s.buf.DrainPending(shared) {
		s.forward(bin, c)
	}
	return nil
}

func (s *Session) noteCredentials(sdp string) {
	ufrag, _, err := codec.ICECredentials(sdp)
	if err != nil || ufrag == "" {
		return
	}
	if s.ufrag != "" && s.ufrag != ufrag {
		log.Info().
			Str("module", "app.session").
			Str("peer", string(s.peer)).
			Str("from", s.ufrag).
			Str("to", ufrag).
			Int("reset", s.resetCount).
			Msg("ICE restart, remote credentials changed")
	}
	s.ufrag = ufrag
}

func (s *Session) forward(bin core.WebRTCBin, c domain.Candidate) {
	if err := bin.AddICECandidate(c); err != nil {
		log.Warn().Err(err).Str("module", "app.session").Str("peer", string(s.peer)).Str("candidate", c.Candidate).Msg("add remote candidate")
	}
}

// AddCandidate forwards a remote candidate, buffering it while the transceiver is not linked or
// has no remote description yet. A stored offer is applied before the first forwarded candidate.
func (s *Session) AddCandidate(c domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return domain.ErrSessionClosed
	}
	s.touch()

	bin := s.topo.Bin()
	if s.State() < domain.StateWaitingForIce || bin == nil {
		s.buf.AddPending(c)
		log.Debug().Str("module", "app.session").Str("peer", string(s.peer)).Int("pending", s.buf.PendingLen()).Msg("remote candidate delayed, transceiver not ready")
		return nil
	}
	if !s.remoteSet && s.pendingOffer == "" {
		s.buf.AddPending(c)
		log.Debug().Str("module", "app.session").Str("peer", string(s.peer)).Int("pending", s.buf.PendingLen()).Msg("remote candidate delayed, no remote offer")
		return nil
	}
	if s.pendingOffer != "" {
		offer := s.pendingOffer
		s.pendingOffer = ""
		log.Info().Str("module", "app.session").Str("peer", string(s.peer)).Msg("applying delayed offer before candidate")
		if err := s.applyOfferLocked(offer); err != nil {
			return err
		}
	}
	if err := bin.AddICECandidate(c); err != nil {
		return fmt.Errorf("add remote candidate: %w", err)
	}
	s.setState(domain.StateReady)
	return nil
}

// CreateAnswer negotiates the local answer, waits for gathering within the configured bound and
// returns the normalized answer with the candidates gathered so far.
func (s *Session) CreateAnswer(ctx context.Context) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		return domain.Answer{}, domain.ErrSessionClosed
	}
	bin := s.topo.Bin()
	if bin == nil {
		log.Error().Str("module", "app.session").Str("peer", string(s.peer)).Msg("no transceiver to answer from")
		return domain.Answer{}, domain.ErrNoTransceiver
	}
	s.touch()
	shared := s.topo.BinShared()
	restart := shared && s.resetCount > 1

	sdp, err := bin.CreateAnswer(true)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %v", domain.ErrAnswerFailed, err)
	}
	if err := bin.SetLocalDescription(sdp); err != nil {
		return domain.Answer{}, fmt.Errorf("%w: set local description: %v", domain.ErrAnswerFailed, err)
	}
	log.Info().Str("module", "app.session").Str("peer", string(s.peer)).Bool("restart", restart).Msg("local description set")

	s.waitGathering(ctx, bin)
	if err := s.flush(ctx); err != nil {
		return domain.Answer{}, err
	}

	sdp = codec.ForceEncoder(sdp, codec.Normalize(s.opts.Codec), s.opts.Payload)
	ev := log.Info().Str("module", "app.session").Str("peer", string(s.peer))
	if s.opts.SDPDebug {
		ev = ev.Str("sdp", sdp)
	}
	ev.Msg("generated answer")

	cands := s.buf.TakeGathered(shared)
	s.sdpMessage = sdp
	if restart {
		s.replayLocked(bin)
	}
	return domain.NewAnswer(sdp, cands), nil
}

func (s *Session) waitGathering(ctx context.Context, bin core.WebRTCBin) {
	timer := time.NewTimer(s.opts.Wait)
	defer timer.Stop()

	if s.opts.Gather == GatherEvent {
		select {
		case <-bin.GatheringComplete():
		case <-timer.C:
			log.Debug().Str("module", "app.session").Str("peer", string(s.peer)).Msg("gathering wait elapsed")
		case <-ctx.Done():
		case <-s.done:
		}
		return
	}

	ticker := time.NewTicker(s.opts.Step)
	defer ticker.Stop()
	for {
		if bin.GatheringState() == core.GatheringComplete {
			return
		}
		select {
		case <-ticker.C:
		case <-timer.C:
			log.Debug().Str("module", "app.session").Str("peer", string(s.peer)).Msg("gathering wait elapsed")
			return
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

// ReplayLocalCandidates re-sends the gathered local candidates to watchers and returns how many.
func (s *Session) ReplayLocalCandidates() int {
	if s.closed() {
		return 0
	}
	gathered := s.buf.Gathered()
	for _, c := range gathered {
		s.notify(c)
	}
	return len(gathered)
}

func (s *Session) replayLocked(bin core.WebRTCBin) {
	gathered := s.buf.Gathered()
	for _, c := range gathered {
		s.notify(c)
	}
	pending := s.buf.DrainPending(true)
	for _, c := range pending {
		s.forward(bin, c)
	}
	log.Info().
		Str("module", "app.session").
		Str("peer", string(s.peer)).
		Int("gathered", len(gathered)).
		Int("pending", len(pending)).
		Msg("replayed candidates after ICE restart")
}

// Close tears the topology down and stops the session goroutine. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped

		s.mu.Lock()
		defer s.mu.Unlock()
		s.topo.Teardown(true)
		s.custom.Store(false)
		if s.opts.Router != nil {
			s.opts.Router.UnbindPeer(s.peer)
		}
		s.buf.Reset()
		s.setState(domain.StateDisconnected)
		log.Info().Str("module", "app.session").Str("peer", string(s.peer)).Msg("session closed")
	})
}

type Snapshot struct {
	PeerID       string    `json:"peer_id"`
	State        string    `json:"state"`
	Playing      bool      `json:"playing"`
	ResetCount   int       `json:"reset_count"`
	PendingOffer bool      `json:"pending_offer"`
	SDPMessage   string    `json:"sdp_message"`
	RemoteUfrag  string    `json:"remote_ufrag,omitempty"`
	PipelineDesc string    `json:"pipeline_desc"`
	Custom       bool      `json:"custom"`
	BinShared    bool      `json:"webrtcbin_shared"`
	Linked       bool      `json:"linked"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PeerID:       string(s.peer),
		State:        s.State().String(),
		Playing:      s.topo.Playing(),
		ResetCount:   s.resetCount,
		PendingOffer: s.pendingOffer != "",
		SDPMessage:   s.sdpMessage,
		RemoteUfrag:  s.ufrag,
		PipelineDesc: s.topo.Description(),
		Custom:       s.topo.Custom(),
		BinShared:    s.topo.BinShared(),
		Linked:       s.topo.Linked(),
		LastActivity: s.LastActivity(),
	}
}

// Expired reports whether the session is an idle, incomplete viewer of the shared pipeline.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	if s.OwnsPipeline() {
		return false
	}
	switch s.State() {
	case domain.StateCreated, domain.StateWaitingForIce:
	default:
		return false
	}
	return now.Sub(s.LastActivity()) > timeout
}

// IsClosed reports whether Close has run.
func (s *Session) IsClosed() bool { return s.closed() }

var _ transceiver.Sink = (*Session)(nil)
