package domain

import "errors"

var (
	ErrMissingPeerID  = errors.New("missing peer_id")
	ErrUnknownPeer    = errors.New("unknown peer_id")
	ErrInvalidSDP     = errors.New("invalid SDP")
	ErrResetFailed    = errors.New("failed to reset WebRTC session")
	ErrNoTransceiver  = errors.New("webrtc transceiver not linked")
	ErrSessionClosed  = errors.New("session closed")
	ErrMissingCommand = errors.New("missing or invalid 'command'")
	ErrUnknownCommand = errors.New("unknown command")
	ErrAnswerFailed   = errors.New("failed to create answer")
)
