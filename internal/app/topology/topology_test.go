package topology

import (
	"sync"
	"testing"

	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/core/fake"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu  sync.Mutex
	got []domain.Candidate
}

func (s *sink) Deliver(c domain.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, c)
}

func (s *sink) list() []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Candidate(nil), s.got...)
}

func vp8Options() Options {
	return Options{
		Codec:            "VP8",
		Payload:          96,
		PayloaderFactory: "rtpvp8pay",
		StunServer:       "stun://stun.l.google.com:19302",
		BundlePolicy:     "max-bundle",
		StateSwitching:   true,
	}
}

func sharedManager(t *testing.T, e *fake.Engine, opts Options) (*Manager, core.Pipeline) {
	t.Helper()
	p, err := e.ParseLaunch("udpsrc port=5004 name=source ! rtpvp8pay name=pay pt=96")
	require.NoError(t, err)
	require.NoError(t, p.SetState(core.StatePlaying))

	m := NewManager(e, transceiver.NewRouter(), opts)
	require.NoError(t, m.SetShared(p))
	return m, p
}

func names(p core.Pipeline) []string {
	var out []string
	for _, el := range p.Elements() {
		out = append(out, el.Name())
	}
	return out
}

func countFactory(p core.Pipeline, factory string) int {
	n := 0
	for _, el := range p.Elements() {
		if el.Factory() == factory {
			n++
		}
	}
	return n
}

func TestSetSharedAppendsTee(t *testing.T) {
	e := fake.NewEngine()
	m, p := sharedManager(t, e, vp8Options())

	tee, ok := p.ByName("tee")
	require.True(t, ok)
	pay, _ := p.ByName("pay")
	require.Contains(t, pay.(*fake.Element).Links(), tee)
	require.True(t, m.PayloaderShared())
	require.False(t, m.WebRTCBinShared())

	hist := p.(*fake.Pipeline).History()
	require.Equal(t, []core.PipelineState{core.StatePlaying, core.StateReady, core.StatePlaying}, hist)
}

func TestBranchResetBuildsAndLinks(t *testing.T) {
	e := fake.NewEngine()
	m, p := sharedManager(t, e, vp8Options())
	// Without a shared payloader every branch carries its own.
	require.NoError(t, p.Remove(mustGet(t, p, "pay")))
	require.False(t, m.PayloaderShared())

	s := &sink{}
	b := m.New("peer-a", "", s)
	require.NoError(t, b.Reset())

	require.True(t, b.Linked())
	require.NotNil(t, b.Bin())
	require.Equal(t, 1, countFactory(p, "queue"))
	require.Equal(t, 1, countFactory(p, "rtpvp8pay"))
	require.Equal(t, 1, countFactory(p, "webrtcbin"))
	require.Equal(t, core.StatePlaying, p.State())

	tee := mustGet(t, p, "tee").(*fake.Tee)
	require.Len(t, tee.Pads(), 1)
	require.Equal(t, "queue", tee.Pads()[0].Peer().Factory())

	bin := b.Bin().(*fake.WebRTCBin)
	v, _ := bin.Property("bundle-policy")
	require.Equal(t, "max-bundle", v)
	require.Len(t, bin.Pads(), 1)
	require.Equal(t, "rtpvp8pay", bin.Pads()[0].Peer().Factory())

	bin.Emit(domain.Candidate{Candidate: "candidate:1"})
	require.Len(t, s.list(), 1)
}

func TestBranchResetIsIdempotent(t *testing.T) {
	e := fake.NewEngine()
	m, p := sharedManager(t, e, vp8Options())

	b := m.New("peer-a", "", &sink{})
	require.NoError(t, b.Reset())
	first := b.Bin()
	require.NoError(t, b.Reset())

	require.Equal(t, 1, countFactory(p, "webrtcbin"))
	require.Equal(t, 1, countFactory(p, "queue"))
	require.Len(t, mustGet(t, p, "tee").(*fake.Tee).Pads(), 1)
	require.NotSame(t, first, b.Bin())
	require.Nil(t, first.Parent())
}

func TestBranchTeardownRestoresPipeline(t *testing.T) {
	e := fake.NewEngine()
	m, p := sharedManager(t, e, vp8Options())
	before := names(p)

	b := m.New("peer-a", "", &sink{})
	require.NoError(t, b.Reset())
	b.Teardown(true)
	b.Teardown(true)

	require.Equal(t, before, names(p))
	require.Empty(t, mustGet(t, p, "tee").(*fake.Tee).Pads())
	require.Equal(t, core.StatePlaying, p.State())
	require.False(t, b.Linked())
	require.Nil(t, b.Bin())
}

func TestBranchResetRollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *fake.Engine)
	}{
		{name: "link", setup: func(e *fake.Engine) { e.FailLinks["queue->identity"] = true }},
		{name: "factory", setup: func(e *fake.Engine) { e.FailFactories["webrtcbin"] = true }},
		{name: "identity", setup: func(e *fake.Engine) { e.FailFactories["identity"] = true }},
		{name: "pad", setup: func(e *fake.Engine) { e.FailRequestPad = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := fake.NewEngine()
			opts := vp8Options()
			opts.IdentityUsing = true
			m, p := sharedManager(t, e, opts)
			before := names(p)

			tt.setup(e)
			b := m.New("peer-a", "", &sink{})
			err := b.Reset()
			require.ErrorIs(t, err, domain.ErrResetFailed)

			require.Equal(t, before, names(p))
			require.Empty(t, mustGet(t, p, "tee").(*fake.Tee).Pads())
			require.Equal(t, core.StatePlaying, p.State())
			require.Nil(t, b.Bin())
		})
	}
}

func TestBranchResetKeepsPriorState(t *testing.T) {
	e := fake.NewEngine()
	p, err := e.ParseLaunch("udpsrc port=5004 name=source ! rtpvp8pay name=pay pt=96")
	require.NoError(t, err)
	require.NoError(t, p.SetState(core.StateReady))
	m := NewManager(e, transceiver.NewRouter(), vp8Options())
	require.NoError(t, m.SetShared(p))

	b := m.New("peer-a", "", &sink{})
	require.NoError(t, b.Reset())
	require.Equal(t, core.StateReady, p.State())
	require.False(t, b.Playing())

	// Without state switching a playing pipeline is left alone.
	opts := vp8Options()
	opts.StateSwitching = false
	m2, p2 := sharedManager(t, e, opts)
	before := len(p2.(*fake.Pipeline).History())
	require.NoError(t, m2.New("peer-b", "", &sink{}).Reset())
	require.Equal(t, core.StatePlaying, p2.State())
	require.Len(t, p2.(*fake.Pipeline).History(), before)
}

func TestBranchWithoutSharedPipelineFails(t *testing.T) {
	m := NewManager(fake.NewEngine(), transceiver.NewRouter(), vp8Options())
	err := m.New("p", "", &sink{}).Reset()
	require.ErrorIs(t, err, domain.ErrResetFailed)
}

func TestSharedWebRTCBinRoutesThroughRouter(t *testing.T) {
	e := fake.NewEngine()
	p := e.NewPipeline("shared")
	src, _ := e.MakeElement("udpsrc", "source")
	pay, _ := e.MakeElement("rtpvp8pay", "pay")
	bin, _ := e.MakeElement("webrtcbin", "webrtcbin")
	require.NoError(t, p.Add(src, pay, bin))
	require.NoError(t, src.Link(pay))

	router := transceiver.NewRouter()
	opts := vp8Options()
	opts.TransceiverAdding = true
	m := NewManager(e, router, opts)
	require.NoError(t, m.SetShared(p))
	require.True(t, m.WebRTCBinShared())

	sa, sb := &sink{}, &sink{}
	live := map[domain.PeerID]transceiver.Sink{"a": sa, "b": sb}
	router.SetResolver(func(id domain.PeerID) (transceiver.Sink, bool) {
		s, ok := live[id]
		return s, ok
	})

	ta := m.New("a", "", sa)
	tb := m.New("b", "", sb)
	require.NoError(t, ta.Reset())
	require.NoError(t, tb.Reset())
	require.Same(t, bin, ta.Bin())
	require.True(t, ta.BinShared())
	require.Equal(t, 2, router.Len())
	require.Equal(t, 1, countFactory(p, "webrtcbin"))

	bin.(*fake.WebRTCBin).Emit(domain.Candidate{Candidate: "candidate:9"})
	require.Len(t, sa.list(), 1)
	require.Len(t, sb.list(), 1)

	ta.Teardown(true)
	require.Equal(t, 1, router.Len())
	require.Len(t, bin.(*fake.WebRTCBin).Pads(), 1)
	require.Equal(t, 1, countFactory(p, "webrtcbin"))
}

func TestCustomTopology(t *testing.T) {
	e := fake.NewEngine()
	m := NewManager(e, transceiver.NewRouter(), vp8Options())
	s := &sink{}
	c := m.New("peer", "udpsrc port=5004 ! rtpvp8pay pt=96 ! webrtcbin name=webrtcbin", s)

	require.NoError(t, c.Reset())
	require.True(t, c.Custom())
	require.True(t, c.Linked())
	require.True(t, c.Playing())
	require.Len(t, e.Pipelines(), 1)

	c.Bin().(*fake.WebRTCBin).Emit(domain.Candidate{Candidate: "candidate:1"})
	require.Len(t, s.list(), 1)

	require.NoError(t, c.Reset())
	require.Len(t, e.Pipelines(), 2)
	require.Equal(t, core.StateNull, e.Pipelines()[0].State())

	c.Teardown(false)
	c.Teardown(false)
	require.False(t, c.Custom())
	require.Nil(t, c.Bin())
}

func TestCustomTopologyWithoutWebRTCBinFails(t *testing.T) {
	e := fake.NewEngine()
	m := NewManager(e, transceiver.NewRouter(), vp8Options())
	c := m.New("peer", "udpsrc port=5004 ! fakesink", &sink{})
	require.ErrorIs(t, c.Reset(), domain.ErrResetFailed)

	e.FailParse = true
	c = m.New("peer", "udpsrc ! webrtcbin name=webrtcbin", &sink{})
	require.ErrorIs(t, c.Reset(), domain.ErrResetFailed)
}

func mustGet(t *testing.T, p core.Pipeline, name string) core.Element {
	t.Helper()
	el, ok := p.ByName(name)
	require.True(t, ok, name)
	return el
}
