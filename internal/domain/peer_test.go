package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePeerID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want PeerID
		err  error
	}{
		{name: "plain", in: "abc", want: "abc"},
		{name: "trimmed", in: "  abc \n", want: "abc"},
		{name: "empty", in: "   ", err: ErrMissingPeerID},
		{name: "too long", in: strings.Repeat("x", MaxPeerIDLen+1), err: ErrPeerIDTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeerID(tt.in)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNewPeerIDIsUnique(t *testing.T) {
	a, b := NewPeerID(), NewPeerID()
	require.NotEqual(t, a, b)
	require.Len(t, string(a), 36)
}

func TestNewAnswerNeverNilCandidates(t *testing.T) {
	a := NewAnswer("v=0", nil)
	require.Equal(t, "answer", a.Type)
	require.NotNil(t, a.Candidates)
	require.Empty(t, a.Candidates)
}

func TestSessionStateOrder(t *testing.T) {
	require.Less(t, StateCreated, StateWaitingForIce)
	require.Less(t, StateWaitingForIce, StateReady)
	require.Equal(t, "waiting_for_ice", StateWaitingForIce.String())
	require.Equal(t, 3, int(StateDisconnected))
}
