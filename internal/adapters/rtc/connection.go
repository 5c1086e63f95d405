package rtc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("webrtc connection closed")

type Config struct {
	StunServer   string
	BundlePolicy string
	Codec        string
	// OnPLI runs for every picture loss indication or full intra request received from the viewer.
	OnPLI func()
}

// Track is one outgoing video flow: a local RTP track bound to a sender of the connection.
type Track struct {
	Handle core.TransceiverHandle
	local  *webrtc.TrackLocalStaticRTP
	sender *webrtc.RTPSender
}

func (t *Track) WriteRTP(pkt *rtp.Packet) error { return t.local.WriteRTP(pkt) }

// WebRTCConnection wraps one pion PeerConnection behind a string SDP API.
type WebRTCConnection struct {
	pc   *webrtc.PeerConnection
	name string
	cfg  Config
	cap  webrtc.RTPCodecCapability

	mu       sync.Mutex
	onICE    func(domain.Candidate)
	gathered <-chan struct{}
	tracks   []*Track
	handles  core.TransceiverHandle
	closed   bool
	// remote candidates received before the offer was applied
	early []webrtc.ICECandidateInit
}

func NewWebRTCConnection(api *webrtc.API, name string, cfg Config) (*WebRTCConnection, error) {
	capability, err := Capability(cfg.Codec)
	if err != nil {
		return nil, err
	}
	pcCfg := webrtc.Configuration{BundlePolicy: BundlePolicy(cfg.BundlePolicy)}
	if cfg.StunServer != "" {
		pcCfg.ICEServers = []webrtc.ICEServer{{URLs: []string{ICEServer(cfg.StunServer)}}}
	}
	pc, err := api.NewPeerConnection(pcCfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c := &WebRTCConnection{
		pc:       pc,
		name:     name,
		cfg:      cfg,
		cap:      capability,
		gathered: make(chan struct{}),
	}
	c.start()
	return c, nil
}

func (c *WebRTCConnection) start() {
	c.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "webrtc").Str("bin", c.name).Str("ice_state", s.String()).Msg("ICE state")
	})
	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "webrtc").Str("bin", c.name).Str("peer_connection_state", s.String()).Msg("Peer state")
	})
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if fn == nil {
			return
		}
		ci := cand.ToJSON()
		out := domain.Candidate{Candidate: ci.Candidate}
		if ci.SDPMLineIndex != nil {
			out.SDPMLineIndex = *ci.SDPMLineIndex
		}
		fn(out)
	})
}

func (c *WebRTCConnection) SetRemoteDescription(offer string) error {
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		return err
	}
	c.mu.Lock()
	early := c.early
	c.early = nil
	c.mu.Unlock()
	for _, ci := range early {
		if err := c.pc.AddICECandidate(ci); err != nil {
			log.Warn().Err(err).Str("module", "webrtc").Str("bin", c.name).Msg("dropping queued remote candidate")
		}
	}
	return nil
}

// CreateAnswer ignores iceRestart: pion restarts ICE on its side when the offer carries new credentials.
func (c *WebRTCConnection) CreateAnswer(iceRestart bool) (string, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if iceRestart {
		log.Debug().Str("module", "webrtc").Str("bin", c.name).Msg("answer requested with ICE restart")
	}
	return answer.SDP, nil
}

func (c *WebRTCConnection) SetLocalDescription(answer string) error {
	done := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return err
	}
	c.mu.Lock()
	c.gathered = done
	c.mu.Unlock()
	return nil
}

func (c *WebRTCConnection) LocalDescription() string {
	if d := c.pc.LocalDescription(); d != nil {
		return d.SDP
	}
	return ""
}

func (c *WebRTCConnection) GatheringState() core.GatheringState {
	switch c.pc.ICEGatheringState() {
	case webrtc.ICEGatheringStateGathering:
		return core.GatheringInProgress
	case webrtc.ICEGatheringStateComplete:
		return core.GatheringComplete
	default:
		return core.GatheringNew
	}
}

func (c *WebRTCConnection) GatheringComplete() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gathered
}

func (c *WebRTCConnection) AddICECandidate(cand domain.Candidate) error {
	idx := cand.SDPMLineIndex
	ci := webrtc.ICECandidateInit{Candidate: cand.Candidate, SDPMLineIndex: &idx}
	c.mu.Lock()
	if c.pc.RemoteDescription() == nil {
		c.early = append(c.early, ci)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.pc.AddICECandidate(ci)
}

func (c *WebRTCConnection) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.early)
}

func (c *WebRTCConnection) OnICECandidate(fn func(domain.Candidate)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

// AddTrack adds a send-only video transceiver carrying a fresh local track.
func (c *WebRTCConnection) AddTrack() (*Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.handles++
	h := c.handles
	local, err := webrtc.NewTrackLocalStaticRTP(c.cap, fmt.Sprintf("video%d", h), c.name)
	if err != nil {
		return nil, err
	}
	tr, err := c.pc.AddTransceiverFromTrack(local, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionSendonly})
	if err != nil {
		return nil, fmt.Errorf("add transceiver: %w", err)
	}
	t := &Track{Handle: h, local: local, sender: tr.Sender()}
	c.tracks = append(c.tracks, t)
	go c.readRTCP(t)
	return t, nil
}

// RemoveTrack stops sending t.
func (c *WebRTCConnection) RemoveTrack(t *Track) {
	c.mu.Lock()
	for i, x := range c.tracks {
		if x == t {
			c.tracks = append(c.tracks[:i], c.tracks[i+1:]...)
			break
		}
	}
	closed := c.closed
	c.mu.Unlock()
	if closed || t.sender == nil {
		return
	}
	if err := c.pc.RemoveTrack(t.sender); err != nil {
		log.Warn().Err(err).Str("module", "webrtc").Str("bin", c.name).Msg("remove track")
	}
}

func (c *WebRTCConnection) Handles() []core.TransceiverHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.TransceiverHandle, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, t.Handle)
	}
	return out
}

// readRTCP drains the sender so interceptors run, and reports keyframe requests.
func (c *WebRTCConnection) readRTCP(t *Track) {
	for {
		pkts, _, err := t.sender.ReadRTCP()
		if err != nil {
			return
		}
		for _, p := range pkts {
			switch p.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				log.Debug().Str("module", "webrtc").Str("bin", c.name).Uint64("transceiver", uint64(t.Handle)).Msg("keyframe requested")
				if c.cfg.OnPLI != nil {
					c.cfg.OnPLI()
				}
			}
		}
	}
}

func (c *WebRTCConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.onICE = nil
	c.mu.Unlock()

	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "webrtc").Str("bin", c.name).Msg("close error")
	} else {
		log.Info().Str("module", "webrtc").Str("bin", c.name).Msg("closed")
	}
}
