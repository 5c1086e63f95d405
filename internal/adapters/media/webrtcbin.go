package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dkeye/Stream/internal/adapters/rtc"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var errNotNegotiating = errors.New("webrtcbin has no connection")

var _ core.WebRTCBin = (*WebRTCBin)(nil)

// WebRTCBin sends every "sink_%u" pad as one video track of a pion PeerConnection. The
// connection is created on first use so stun-server and bundle-policy can be set beforehand.
type WebRTCBin struct {
	*element
	api   *webrtc.API
	codec string
	onPLI func()

	cmu     sync.Mutex
	conn    *rtc.WebRTCConnection
	onICE   func(domain.Candidate)
	pending []*rtc.Track
	pads    map[string]*sinkPad
	next    int
	idle    chan struct{}
}

func newWebRTCBin(name string, api *webrtc.API, codec string, onPLI func()) *WebRTCBin {
	b := &WebRTCBin{
		element: newElement("webrtcbin", name),
		api:     api,
		codec:   codec,
		onPLI:   onPLI,
		pads:    map[string]*sinkPad{},
		idle:    make(chan struct{}),
	}
	b.bind(b)
	return b
}

func (b *WebRTCBin) connection() (*rtc.WebRTCConnection, error) {
	b.cmu.Lock()
	defer b.cmu.Unlock()
	return b.connectionLocked()
}

func (b *WebRTCBin) connectionLocked() (*rtc.WebRTCConnection, error) {
	if b.conn != nil {
		return b.conn, nil
	}
	conn, err := rtc.NewWebRTCConnection(b.api, b.name, rtc.Config{
		StunServer:   b.prop("stun-server", ""),
		BundlePolicy: b.prop("bundle-policy", ""),
		Codec:        b.codec,
		OnPLI:        b.onPLI,
	})
	if err != nil {
		return nil, err
	}
	conn.OnICECandidate(b.onICE)
	b.conn = conn
	return conn, nil
}

func (b *WebRTCBin) current() *rtc.WebRTCConnection {
	b.cmu.Lock()
	defer b.cmu.Unlock()
	return b.conn
}

func (b *WebRTCBin) SetRemoteDescription(offer string) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetRemoteDescription(offer)
}

func (b *WebRTCBin) CreateAnswer(iceRestart bool) (string, error) {
	conn := b.current()
	if conn == nil {
		return "", errNotNegotiating
	}
	return conn.CreateAnswer(iceRestart)
}

func (b *WebRTCBin) SetLocalDescription(answer string) error {
	conn := b.current()
	if conn == nil {
		return errNotNegotiating
	}
	return conn.SetLocalDescription(answer)
}

func (b *WebRTCBin) LocalDescription() string {
	if conn := b.current(); conn != nil {
		return conn.LocalDescription()
	}
	return ""
}

func (b *WebRTCBin) GatheringState() core.GatheringState {
	if conn := b.current(); conn != nil {
		return conn.GatheringState()
	}
	return core.GatheringNew
}

// GatheringComplete never fires before a connection exists.
func (b *WebRTCBin) GatheringComplete() <-chan struct{} {
	if conn := b.current(); conn != nil {
		return conn.GatheringComplete()
	}
	return b.idle
}

func (b *WebRTCBin) AddICECandidate(c domain.Candidate) error {
	conn := b.current()
	if conn == nil {
		return errNotNegotiating
	}
	return conn.AddICECandidate(c)
}

func (b *WebRTCBin) OnICECandidate(fn func(domain.Candidate)) {
	b.cmu.Lock()
	defer b.cmu.Unlock()
	b.onICE = fn
	if b.conn != nil {
		b.conn.OnICECandidate(fn)
	}
}

// AddTransceiver adds a send-only track; the next "sink_%u" pad feeds it.
func (b *WebRTCBin) AddTransceiver(caps string) (core.TransceiverHandle, error) {
	if !strings.HasPrefix(caps, "application/x-rtp") {
		return 0, fmt.Errorf("unsupported transceiver caps %q", caps)
	}
	b.cmu.Lock()
	defer b.cmu.Unlock()
	conn, err := b.connectionLocked()
	if err != nil {
		return 0, err
	}
	t, err := conn.AddTrack()
	if err != nil {
		return 0, err
	}
	b.pending = append(b.pending, t)
	return t.Handle, nil
}

func (b *WebRTCBin) Transceivers() []core.TransceiverHandle {
	if conn := b.current(); conn != nil {
		return conn.Handles()
	}
	return nil
}

func (b *WebRTCBin) RequestPad(template string) (core.Pad, error) {
	prefix, ok := strings.CutSuffix(template, "%u")
	if !ok || prefix != "sink_" {
		return nil, fmt.Errorf("webrtcbin %s has no pad template %q", b.name, template)
	}
	b.cmu.Lock()
	defer b.cmu.Unlock()
	conn, err := b.connectionLocked()
	if err != nil {
		return nil, err
	}
	var track *rtc.Track
	if len(b.pending) > 0 {
		track, b.pending = b.pending[0], b.pending[1:]
	} else if track, err = conn.AddTrack(); err != nil {
		return nil, err
	}
	p := &sinkPad{owner: b, name: prefix + strconv.Itoa(b.next), track: track}
	b.next++
	b.pads[p.name] = p
	return p, nil
}

func (b *WebRTCBin) ReleaseRequestPad(p core.Pad) {
	p.Unlink()
	b.cmu.Lock()
	sp, ok := b.pads[p.Name()]
	delete(b.pads, p.Name())
	conn := b.conn
	b.cmu.Unlock()
	if ok && conn != nil {
		conn.RemoveTrack(sp.track)
	}
}

func (b *WebRTCBin) start() error { return nil }

// stop closes the connection; a later negotiation starts a fresh one.
func (b *WebRTCBin) stop() {
	b.cmu.Lock()
	conn := b.conn
	b.conn = nil
	b.pending = nil
	b.pads = map[string]*sinkPad{}
	b.cmu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// sinkPad feeds the packets of the element it is linked to into one track.
type sinkPad struct {
	owner *WebRTCBin
	name  string
	track *rtc.Track

	mu   sync.Mutex
	peer node
}

func (p *sinkPad) Name() string        { return p.name }
func (p *sinkPad) Owner() core.Element { return p.owner }

func (p *sinkPad) Link(peer core.Element) error {
	n, ok := peer.(node)
	if !ok {
		return fmt.Errorf("link %s -> %s: %w", peer.Name(), p.name, ErrForeignElement)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != nil {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyLinked)
	}
	if err := n.base().addOutput(p); err != nil {
		return err
	}
	p.peer = n
	return nil
}

func (p *sinkPad) Unlink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer == nil {
		return
	}
	p.peer.base().removeOutput(p)
	p.peer = nil
}

func (p *sinkPad) receive(pkt *rtp.Packet) {
	if err := p.track.WriteRTP(pkt); err != nil {
		log.Debug().Err(err).Str("module", "media").Str("pad", p.name).Msg("track write")
	}
}
