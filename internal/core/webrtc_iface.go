package core

//go:generate mockgen -source=webrtc_iface.go -destination=mocks/mock_webrtc_iface.go -package=mocks

import "github.com/dkeye/Stream/internal/domain"

// TransceiverHandle is an opaque, comparable engine handle for one negotiated media flow.
type TransceiverHandle uint64

type GatheringState int

const (
	GatheringNew GatheringState = iota
	GatheringInProgress
	GatheringComplete
)

func (g GatheringState) String() string {
	switch g {
	case GatheringNew:
		return "new"
	case GatheringInProgress:
		return "gathering"
	case GatheringComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// WebRTCBin is the engine's WebRTC transport element. Media enters through "sink_%u" request pads.
type WebRTCBin interface {
	RequestPadder

	// SetRemoteDescription applies an offer and returns once the engine has processed it.
	SetRemoteDescription(offer string) error
	// CreateAnswer asks for a local answer. iceRestart requests fresh local ICE credentials.
	CreateAnswer(iceRestart bool) (string, error)
	SetLocalDescription(answer string) error
	LocalDescription() string
	GatheringState() GatheringState
	// GatheringComplete is closed once gathering for the current local description is done.
	GatheringComplete() <-chan struct{}
	AddICECandidate(c domain.Candidate) error
	// OnICECandidate installs the handler for newly gathered local candidates. It runs on an
	// engine goroutine.
	OnICECandidate(fn func(domain.Candidate))
	// AddTransceiver adds a send-only transceiver described by RTP caps.
	AddTransceiver(caps string) (TransceiverHandle, error)
	Transceivers() []TransceiverHandle
}
