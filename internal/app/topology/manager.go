// Package topology builds and tears down the engine elements that connect a viewer to the video.
package topology

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

type Names struct {
	Tee       string
	Payloader string
	WebRTCBin string
}

func DefaultNames() Names {
	return Names{Tee: "tee", Payloader: "pay", WebRTCBin: "webrtcbin"}
}

type Options struct {
	Codec             string
	Payload           int
	PayloaderFactory  string
	PayloaderParams   map[string]string
	QueueParams       map[string]string
	StunServer        string
	BundlePolicy      string
	IdentityUsing     bool
	StateSwitching    bool
	TransceiverAdding bool
	Names             Names
}

var identityParams = map[string]string{
	"sync":            "false",
	"drop-allocation": "true",
	"signal-handoffs": "true",
	"silent":          "true",
}

// Topology is the per-session view of the media graph.
type Topology interface {
	// Reset (re)builds the elements feeding this session's transceiver.
	Reset() error
	// Teardown removes every element the session owns. Safe to call repeatedly.
	Teardown(restorePlaying bool)
	// Bin is the transceiver element used for negotiation, nil until Reset succeeds.
	Bin() core.WebRTCBin
	Linked() bool
	Custom() bool
	BinShared() bool
	Playing() bool
	Description() string
}

// Manager owns the process-wide shared pipeline: its payloader, fan-out tee and, optionally, one
// transceiver element shared by every viewer.
type Manager struct {
	engine core.Engine
	router *transceiver.Router
	opts   Options

	mu        sync.Mutex
	pipeline  core.Pipeline
	payloader core.Element
	bin       core.WebRTCBin
	binHooked bool
}

func NewManager(engine core.Engine, router *transceiver.Router, opts Options) *Manager {
	if opts.Names == (Names{}) {
		opts.Names = DefaultNames()
	}
	return &Manager{engine: engine, router: router, opts: opts}
}

func (m *Manager) Options() Options { return m.opts }
func (m *Manager) Engine() core.Engine { return m.engine }

// SetShared installs p as the shared pipeline. A payloader without a tee gets one appended; the
// pipeline is paused around that edit when it is playing and state switching is enabled.
func (m *Manager) SetShared(p core.Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pipeline = p
	m.payloader, m.bin, m.binHooked = nil, nil, false
	if p == nil {
		return nil
	}
	if el, ok := p.ByName(m.opts.Names.Payloader); ok {
		m.payloader = el
	}
	if el, ok := p.ByName(m.opts.Names.WebRTCBin); ok {
		if bin, ok := el.(core.WebRTCBin); ok {
			m.bin = bin
		}
	}
	_, hasTee := p.ByName(m.opts.Names.Tee)
	if !hasTee && m.payloader != nil {
		if err := m.appendTeeLocked(); err != nil {
			return err
		}
	}
	log.Info().
		Str("module", "app.topology").
		Str("pipeline", p.Name()).
		Bool("rtppay_shared", m.payloader != nil).
		Bool("webrtcbin_shared", m.bin != nil).
		Msg("shared pipeline set")
	return nil
}

func (m *Manager) appendTeeLocked() error {
	paused, err := m.pauseLocked()
	if err != nil {
		return fmt.Errorf("pause shared pipeline: %w", err)
	}
	tee, err := m.engine.MakeElement("tee", m.opts.Names.Tee)
	if err != nil {
		return fmt.Errorf("create tee: %w", err)
	}
	if err := m.pipeline.Add(tee); err != nil {
		return fmt.Errorf("add tee: %w", err)
	}
	if err := m.payloader.Link(tee); err != nil {
		_ = m.pipeline.Remove(tee)
		return fmt.Errorf("link %s -> %s: %w", m.payloader.Name(), tee.Name(), err)
	}
	if err := tee.SyncStateWithParent(); err != nil {
		log.Warn().Err(err).Str("module", "app.topology").Msg("tee state sync")
	}
	if paused {
		if err := m.resumeLocked(); err != nil {
			return fmt.Errorf("resume shared pipeline: %w", err)
		}
	}
	return nil
}

func (m *Manager) Pipeline() core.Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline
}

func (m *Manager) Shared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline != nil
}

func (m *Manager) WebRTCBinShared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.binSharedLocked()
}

func (m *Manager) binSharedLocked() bool {
	return m.bin != nil && m.bin.Parent() == core.Bin(m.pipeline)
}

func (m *Manager) PayloaderShared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paySharedLocked()
}

func (m *Manager) paySharedLocked() bool {
	return m.payloader != nil && m.payloader.Parent() == core.Bin(m.pipeline)
}

func (m *Manager) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline != nil && m.pipeline.State() == core.StatePlaying
}

// pauseLocked moves a playing shared pipeline to ready when state switching is on. paused
// reports whether the pipeline was playing and has to be resumed afterwards.
func (m *Manager) pauseLocked() (paused bool, err error) {
	if m.pipeline == nil || !m.opts.StateSwitching || m.pipeline.State() != core.StatePlaying {
		return false, nil
	}
	return true, m.pipeline.SetState(core.StateReady)
}

func (m *Manager) resumeLocked() error {
	if m.pipeline == nil || m.pipeline.State() == core.StatePlaying {
		return nil
	}
	return m.pipeline.SetState(core.StatePlaying)
}

// Close drops the shared pipeline.
func (m *Manager) Close() error {
	m.mu.Lock()
	p := m.pipeline
	m.pipeline, m.payloader, m.bin, m.binHooked = nil, nil, nil, false
	m.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

func (m *Manager) hookSharedBinLocked() {
	if m.binHooked || m.bin == nil {
		return
	}
	bin := m.bin
	bin.OnICECandidate(func(c domain.Candidate) {
		m.router.Dispatch(bin, c)
	})
	m.binHooked = true
}

// New picks the topology for a session: an owned pipeline when desc is set, otherwise a branch
// of the shared pipeline.
func (m *Manager) New(peer domain.PeerID, desc string, sink transceiver.Sink) Topology {
	if desc != "" {
		return &Custom{m: m, peer: peer, sink: sink, desc: desc}
	}
	return &Branch{m: m, peer: peer, sink: sink}
}

var errNoSharedPipeline = errors.New("shared pipeline is not initialized")
