package media

import (
	"strings"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
)

type discard struct{}

func (discard) Deliver(domain.Candidate) {}

func viewerOffer(t *testing.T) string {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly})
	require.NoError(t, err)
	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	return offer.SDP
}

func TestBranchOnSharedPipeline(t *testing.T) {
	e := newTestEngine(t)
	p, err := e.ParseLaunch("identity name=source ! rtpvp8pay name=pay pt=96")
	require.NoError(t, err)
	require.NoError(t, p.SetState(core.StatePlaying))

	m := topology.NewManager(e, transceiver.NewRouter(), topology.Options{
		Codec:            "VP8",
		Payload:          96,
		PayloaderFactory: "rtpvp8pay",
		QueueParams:      map[string]string{"leaky": "2", "max-size-buffers": "1"},
		StateSwitching:   true,
	})
	require.NoError(t, m.SetShared(p))
	defer m.Close()

	teeEl, ok := p.ByName("tee")
	require.True(t, ok)
	tee := teeEl.(*Tee)

	topo := m.New("viewer", "", discard{})
	require.NoError(t, topo.Reset())
	require.True(t, topo.Linked())
	assert.Equal(t, 1, tee.Outputs())
	assert.Equal(t, core.StatePlaying, p.State())

	bin := topo.Bin()
	require.NotNil(t, bin)
	require.NoError(t, bin.SetRemoteDescription(viewerOffer(t)))
	answer, err := bin.CreateAnswer(false)
	require.NoError(t, err)
	require.NoError(t, bin.SetLocalDescription(answer))
	assert.Contains(t, answer, "a=rtpmap:96 VP8/90000")
	assert.True(t, strings.Contains(answer, "a=sendonly"))

	topo.Teardown(true)
	assert.Zero(t, tee.Outputs())
	assert.Equal(t, []string{"source", "pay", "tee"}, elementNames(p))
	assert.Equal(t, core.StatePlaying, p.State())
}

func TestCustomPipelineOnEngine(t *testing.T) {
	e := newTestEngine(t)
	m := topology.NewManager(e, transceiver.NewRouter(), topology.Options{Codec: "VP8", Payload: 96})

	topo := m.New("viewer", "identity name=source ! rtpvp8pay pt=96 ! webrtcbin name=webrtcbin", discard{})
	require.NoError(t, topo.Reset())
	assert.True(t, topo.Custom())
	assert.True(t, topo.Playing())
	require.NotNil(t, topo.Bin())
	assert.Len(t, topo.Bin().Transceivers(), 1)

	require.NoError(t, topo.Reset(), "second reset rebuilds")
	topo.Teardown(false)
	assert.Nil(t, topo.Bin())
	assert.False(t, topo.Playing())
}

func elementNames(p core.Pipeline) []string {
	var out []string
	for _, el := range p.Elements() {
		out = append(out, el.Name())
	}
	return out
}
