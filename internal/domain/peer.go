// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const MaxPeerIDLen = 64

var (
	ErrPeerIDTooLong = errors.New("peer_id too long")
)

// PeerID identifies one viewer. Callers may bring their own, otherwise the server mints one.
type PeerID string

func NewPeerID() PeerID {
	return PeerID(uuid.NewString())
}

// ParsePeerID trims s and validates its length. An empty id is ErrMissingPeerID.
func ParsePeerID(s string) (PeerID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingPeerID
	}
	if len(s) > MaxPeerIDLen {
		return "", ErrPeerIDTooLong
	}
	return PeerID(s), nil
}

func (p PeerID) String() string { return string(p) }
