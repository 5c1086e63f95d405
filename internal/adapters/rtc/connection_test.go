package rtc

import (
	"testing"
	"time"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers(t *testing.T) {
	assert.Equal(t, "stun:stun.l.google.com:19302", ICEServer("stun://stun.l.google.com:19302"))
	assert.Equal(t, "stun:host:1", ICEServer("stun:host:1"))
	assert.Equal(t, webrtc.BundlePolicyMaxBundle, BundlePolicy("max-bundle"))
	assert.Equal(t, webrtc.BundlePolicyBalanced, BundlePolicy(""))

	mime, ok := MimeType("h264")
	assert.True(t, ok)
	assert.Equal(t, webrtc.MimeTypeH264, mime)
	_, err := Capability("THEORA")
	assert.Error(t, err)
}

func TestAnswerCarriesConfiguredPayload(t *testing.T) {
	api, err := NewAPI(Options{Codec: "VP8", Payload: 97, LogLevel: zerolog.Disabled})
	require.NoError(t, err)

	viewer, err := api.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = viewer.Close() })
	_, err = viewer.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly})
	require.NoError(t, err)
	offer, err := viewer.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, viewer.SetLocalDescription(offer))

	conn, err := NewWebRTCConnection(api, "webrtcbin0", Config{Codec: "VP8", BundlePolicy: "max-bundle"})
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	cands := make(chan domain.Candidate, 64)
	conn.OnICECandidate(func(c domain.Candidate) {
		select {
		case cands <- c:
		default:
		}
	})

	track, err := conn.AddTrack()
	require.NoError(t, err)
	assert.Equal(t, []core.TransceiverHandle{track.Handle}, conn.Handles())

	assert.Equal(t, core.GatheringNew, conn.GatheringState())
	require.NoError(t, conn.SetRemoteDescription(offer.SDP))
	answer, err := conn.CreateAnswer(true)
	require.NoError(t, err)
	assert.Contains(t, answer, "a=rtpmap:97 VP8/90000")
	require.NoError(t, conn.SetLocalDescription(answer))

	select {
	case <-conn.GatheringComplete():
	case <-time.After(5 * time.Second):
		t.Fatal("gathering did not complete")
	}
	assert.Equal(t, core.GatheringComplete, conn.GatheringState())
	assert.NotEmpty(t, conn.LocalDescription())
	select {
	case c := <-cands:
		assert.Contains(t, c.Candidate, "candidate:")
	default:
		t.Log("no host candidate gathered")
	}

	conn.RemoveTrack(track)
	assert.Empty(t, conn.Handles())

	conn.Close()
	_, err = conn.AddTrack()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRemoteCandidateQueuedUntilOffer(t *testing.T) {
	api, err := NewAPI(Options{Codec: "VP8", Payload: 96, LogLevel: zerolog.Disabled})
	require.NoError(t, err)

	viewer, err := api.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = viewer.Close() })
	_, err = viewer.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly})
	require.NoError(t, err)
	offer, err := viewer.CreateOffer(nil)
	require.NoError(t, err)

	conn, err := NewWebRTCConnection(api, "webrtcbin0", Config{Codec: "VP8"})
	require.NoError(t, err)
	t.Cleanup(conn.Close)
	_, err = conn.AddTrack()
	require.NoError(t, err)

	cand := domain.Candidate{Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host", SDPMLineIndex: 0}
	require.NoError(t, conn.AddICECandidate(cand))
	assert.Equal(t, 1, conn.queued())

	require.NoError(t, conn.SetRemoteDescription(offer.SDP))
	assert.Zero(t, conn.queued())
}
