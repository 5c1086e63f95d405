package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/app/session"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core/fake"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offerSDP = "v=0\r\n" +
	"o=- 42 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=ice-ufrag:wxyz\r\n" +
	"a=ice-pwd:0123456789abcdef012345\r\n" +
	"a=mid:0\r\n" +
	"a=recvonly\r\n" +
	"a=rtpmap:96 VP8/90000\r\n"

type msg struct {
	Type          string             `json:"type"`
	SDP           string             `json:"sdp"`
	PeerID        string             `json:"peer_id"`
	Error         string             `json:"error"`
	Candidate     string             `json:"candidate"`
	SDPMLineIndex uint16             `json:"sdpMLineIndex"`
	Candidates    []domain.Candidate `json:"candidates"`
}

func newSignalServer(t *testing.T) (*orch.Orchestrator, *fake.Engine, string) {
	t.Helper()
	e := fake.NewEngine()
	router := transceiver.NewRouter()
	m := topology.NewManager(e, router, topology.Options{
		Codec: "VP8", Payload: 96, PayloaderFactory: "rtpvp8pay", StateSwitching: true,
	})
	p, err := e.ParseLaunch("udpsrc name=source ! rtpvp8pay name=pay pt=96")
	require.NoError(t, err)
	require.NoError(t, m.SetShared(p))
	o, url := serve(t, e, m, router)
	return o, e, url
}

// newSharedBinServer serves a shared pipeline whose single webrtcbin every viewer negotiates on.
func newSharedBinServer(t *testing.T) (*orch.Orchestrator, *fake.Engine, string) {
	t.Helper()
	e := fake.NewEngine()
	p := e.NewPipeline("shared")
	src, _ := e.MakeElement("udpsrc", "source")
	pay, _ := e.MakeElement("rtpvp8pay", "pay")
	bin, _ := e.MakeElement("webrtcbin", "webrtcbin")
	require.NoError(t, p.Add(src, pay, bin))
	require.NoError(t, src.Link(pay))

	router := transceiver.NewRouter()
	m := topology.NewManager(e, router, topology.Options{
		Codec: "VP8", Payload: 96, PayloaderFactory: "rtpvp8pay", StateSwitching: true, TransceiverAdding: true,
	})
	require.NoError(t, m.SetShared(p))
	require.True(t, m.WebRTCBinShared())
	o, url := serve(t, e, m, router)
	return o, e, url
}

func serve(t *testing.T, e *fake.Engine, m *topology.Manager, router *transceiver.Router) (*orch.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := app.NewService(e, m, router, app.Options{
		MultiplePeers: true,
		Session:       session.Options{Codec: "VP8", Payload: 96, Step: time.Millisecond, Wait: 10 * time.Millisecond},
	})
	reg := app.NewRegistry(svc)
	t.Cleanup(reg.CloseAll)
	o := orch.New(reg, m, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctl := NewSignalWSController(o, nil)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) msg {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m msg
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func TestPingPong(t *testing.T) {
	_, _, url := newSignalServer(t)
	ws := dial(t, url+"?peer_id=p")
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", read(t, ws).Type)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "dance"}))
	got := read(t, ws)
	assert.Equal(t, "error", got.Type)
	assert.Equal(t, "unknown_type", got.Error)
}

func TestOfferAnswerAndTrickle(t *testing.T) {
	o, e, url := newSignalServer(t)
	ws := dial(t, url+"?peer_id=viewer")

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "offer", "sdp": offerSDP}))
	answer := read(t, ws)
	require.Equal(t, "answer", answer.Type, answer.Error)
	assert.Equal(t, "viewer", answer.PeerID)
	assert.Contains(t, answer.SDP, "a=rtpmap:96 VP8/90000")

	bins := e.Bins()
	require.NotEmpty(t, bins)
	late := domain.Candidate{Candidate: "candidate:9 1 UDP 9 10.0.0.9 9000 typ host", SDPMLineIndex: 0}
	bins[len(bins)-1].Emit(late)

	got := read(t, ws)
	assert.Equal(t, "candidate", got.Type)
	assert.Equal(t, late.Candidate, got.Candidate)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type": "candidate", "candidate": "candidate:1 1 UDP 1 10.0.0.1 5000 typ host", "sdpMLineIndex": 0,
	}))
	require.Eventually(t, func() bool {
		s, ok := o.Registry.Get("viewer")
		return ok && s.State() == domain.StateReady
	}, time.Second, 5*time.Millisecond)
}

func TestRestartOnSameSocketSkipsCandidatesInAnswer(t *testing.T) {
	_, e, url := newSharedBinServer(t)
	host := domain.Candidate{Candidate: "candidate:7 1 UDP 7 10.0.0.7 7000 typ host", SDPMLineIndex: 0}
	e.Candidates = []domain.Candidate{host}
	ws := dial(t, url+"?peer_id=viewer")

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "offer", "sdp": offerSDP}))
	first := read(t, ws)
	require.Equal(t, "answer", first.Type, first.Error)
	assert.Equal(t, []domain.Candidate{host}, first.Candidates)

	// The second offer restarts ICE on the shared bin and replays every gathered candidate.
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "offer", "sdp": offerSDP}))
	second := read(t, ws)
	require.Equal(t, "answer", second.Type, second.Error)
	assert.Equal(t, []domain.Candidate{host, host}, second.Candidates)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", read(t, ws).Type)
}

func TestReattachReplaysLocalCandidates(t *testing.T) {
	o, e, url := newSharedBinServer(t)
	host := domain.Candidate{Candidate: "candidate:7 1 UDP 7 10.0.0.7 7000 typ host", SDPMLineIndex: 0}
	e.Candidates = []domain.Candidate{host}

	first := dial(t, url+"?peer_id=viewer")
	require.NoError(t, first.WriteJSON(map[string]string{"type": "offer", "sdp": offerSDP}))
	require.Equal(t, "answer", read(t, first).Type)
	require.NoError(t, first.Close())

	second := dial(t, url+"?peer_id=viewer")
	got := read(t, second)
	assert.Equal(t, "candidate", got.Type)
	assert.Equal(t, host.Candidate, got.Candidate)
	assert.Equal(t, 1, o.Registry.Len())
}

func TestBadOfferReportsError(t *testing.T) {
	o, _, url := newSignalServer(t)
	ws := dial(t, url+"?peer_id=p")
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "offer", "sdp": "nope"}))
	got := read(t, ws)
	assert.Equal(t, "error", got.Type)
	assert.Contains(t, got.Error, domain.ErrInvalidSDP.Error())
	assert.Zero(t, o.Registry.Len())
}

func TestDisconnectClosesSession(t *testing.T) {
	o, _, url := newSignalServer(t)
	ws := dial(t, url+"?peer_id=p")
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "offer", "sdp": offerSDP}))
	require.Equal(t, "answer", read(t, ws).Type)
	require.Equal(t, 1, o.Registry.Len())

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "disconnect"}))
	require.Eventually(t, func() bool { return o.Registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLimiter(t *testing.T) {
	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("x"))
	assert.True(t, NewLimiter(0, 1).Allow("x"))

	l := NewLimiter(1, 2)
	now := time.Unix(100, 0)
	l.now = func() time.Time { return now }
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))

	now = now.Add(2 * limiterIdle)
	l.Allow("c")
	assert.NotContains(t, l.entries, "a")
}
