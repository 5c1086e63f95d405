package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/app/session"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/config"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/core/fake"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/gin-gonic/gin"
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

type server struct {
	t      *testing.T
	router *gin.Engine
	engine *fake.Engine
	orch   *orch.Orchestrator
}

func newServer(t *testing.T, tweak func(*config.Config)) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := config.New(nil)
	require.NoError(t, err)
	cfg := store.Config()
	cfg.Mode = "test"
	if tweak != nil {
		tweak(cfg)
	}

	e := fake.NewEngine()
	router := transceiver.NewRouter()
	m := topology.NewManager(e, router, topology.Options{
		Codec: "VP8", Payload: 96, PayloaderFactory: "rtpvp8pay", StateSwitching: true,
	})
	p, err := e.ParseLaunch("udpsrc name=source ! rtpvp8pay name=pay pt=96")
	require.NoError(t, err)
	require.NoError(t, p.SetState(core.StatePlaying))
	require.NoError(t, m.SetShared(p))

	svc := app.NewService(e, m, router, app.Options{
		MultiplePeers:  true,
		SessionTimeout: 30 * time.Second,
		Session:        session.Options{Codec: "VP8", Payload: 96, Step: time.Millisecond, Wait: 10 * time.Millisecond},
	})
	reg := app.NewRegistry(svc)
	t.Cleanup(reg.CloseAll)

	met := metrics.New()
	o := orch.New(reg, m, store, met)
	return &server{
		t:      t,
		router: SetupRouter(context.Background(), cfg, o, met),
		engine: e,
		orch:   o,
	}
}

func (s *server) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) offer(peer string) *httptest.ResponseRecorder {
	body, err := json.Marshal(offerRequest{Type: "offer", SDP: offerSDP})
	require.NoError(s.t, err)
	h := http.Header{"Content-Type": {"application/json"}}
	if peer != "" {
		h.Set(HeaderPeer, peer)
	}
	return s.do(http.MethodPost, RouteOffer, string(body), h)
}

func TestOfferMintsPeerID(t *testing.T) {
	s := newServer(t, nil)
	w := s.offer("")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	peer := w.Header().Get(HeaderPeer)
	require.Len(t, peer, 36)

	var answer domain.Answer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "answer", answer.Type)
	assert.Contains(t, answer.SDP, "a=rtpmap:96 VP8/90000")
	assert.NotNil(t, answer.Candidates)

	_, ok := s.orch.Registry.Get(domain.PeerID(peer))
	assert.True(t, ok)
}

func TestOfferEchoesPeerID(t *testing.T) {
	s := newServer(t, nil)
	w := s.offer("viewer-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "viewer-1", w.Header().Get(HeaderPeer))
}

func TestOfferFailures(t *testing.T) {
	t.Run("body", func(t *testing.T) {
		s := newServer(t, nil)
		w := s.do(http.MethodPost, RouteOffer, "{", http.Header{"Content-Type": {"application/json"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid offer body", w.Body.String())
	})
	t.Run("sdp", func(t *testing.T) {
		s := newServer(t, nil)
		w := s.do(http.MethodPost, RouteOffer, `{"sdp":"nonsense"}`, http.Header{HeaderPeer: {"p"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid SDP", w.Body.String())
		assert.Zero(t, s.orch.Registry.Len())
	})
	t.Run("reset", func(t *testing.T) {
		s := newServer(t, nil)
		s.engine.FailFactories["queue"] = true
		w := s.offer("p")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "failed to reset WebRTC session", w.Body.String())
		assert.Zero(t, s.orch.Registry.Len())
	})
	t.Run("peer too long", func(t *testing.T) {
		s := newServer(t, nil)
		w := s.offer(strings.Repeat("x", domain.MaxPeerIDLen+1))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "peer_id too long", w.Body.String())
	})
}

func TestOfferRateLimited(t *testing.T) {
	s := newServer(t, func(c *config.Config) {
		c.HTTP.OfferRate = 0.001
		c.HTTP.OfferBurst = 1
	})
	require.Equal(t, http.StatusOK, s.offer("p").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.offer("p").Code)
}

func TestStickyPeerCookie(t *testing.T) {
	s := newServer(t, func(c *config.Config) {
		c.HTTP.StickyPeer = true
		c.HTTP.Secret = "test-secret"
	})
	first := s.offer("")
	require.Equal(t, http.StatusOK, first.Code)
	peer := first.Header().Get(HeaderPeer)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	body, _ := json.Marshal(offerRequest{SDP: offerSDP})
	req := httptest.NewRequest(http.MethodPost, RouteOffer, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, peer, w.Header().Get(HeaderPeer))
	assert.Equal(t, 1, s.orch.Registry.Len())
}

func TestCandidate(t *testing.T) {
	s := newServer(t, nil)
	body := `{"candidate":"candidate:1 1 UDP 1 10.0.0.9 7000 typ host","sdpMLineIndex":0}`
	hdr := http.Header{"Content-Type": {"application/json"}}

	w := s.do(http.MethodPost, RouteCandidate, body, hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing peer_id", w.Body.String())

	w = s.do(http.MethodPost, RouteCandidate+"?peer_id=ghost", body, hdr)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown peer_id", w.Body.String())

	require.Equal(t, http.StatusOK, s.offer("p").Code)
	w = s.do(http.MethodPost, RouteCandidate+"?peer_id=p", body, hdr)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = s.do(http.MethodPost, RouteCandidate, body, http.Header{"Content-Type": {"application/json"}, HeaderPeer: {"p"}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, RouteCandidate+"?peer_id=p", "[", hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sess, _ := s.orch.Registry.Get("p")
	assert.Equal(t, domain.StateReady, sess.State())
}

func TestAPICommands(t *testing.T) {
	s := newServer(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		want   string
	}{
		{"missing", http.MethodPost, RouteAPI, `{}`, http.StatusBadRequest, "missing or invalid 'command'"},
		{"unknown", http.MethodGet, RouteAPI + "?command=reboot", "", http.StatusNotFound, "unknown command: reboot"},
		{"bad json", http.MethodPost, RouteAPI, `{"command":`, http.StatusInternalServerError, ""},
		{"disconnect without peer", http.MethodPost, RouteAPI, `{"command":"disconnect"}`, http.StatusBadRequest, "missing peer_id"},
		{"disconnect unknown peer", http.MethodGet, RouteAPI + "?command=disconnect&peer_id=nobody", "", http.StatusOK, "session closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.target, tt.body, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.want != "" {
				assert.Equal(t, tt.want, w.Body.String())
			}
		})
	}

	w := s.do(http.MethodGet, RouteAPI+"?command=make_uuid", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Body.String(), 36)
}

func TestAPIDisconnectFromBeacon(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusOK, s.offer("p").Code)

	w := s.do(http.MethodPost, RouteAPI, `{"command":"disconnect","peer_id":"p"}`,
		http.Header{"Content-Type": {"text/plain;charset=UTF-8"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "session closed", w.Body.String())
	assert.Zero(t, s.orch.Registry.Len())
}

func TestAPIQueryValuesParsedAsJSON(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodGet, RouteAPI+"?command=config&port=8100&flags.sdpdebug_using=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		Changed []string `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"flags.sdpdebug_using", "port"}, got.Changed)

	cfg := s.orch.Store.Config()
	assert.Equal(t, 8100, cfg.Port)
	assert.True(t, cfg.Flags.SDPDebugUsing)
}

func TestStat(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusOK, s.offer("p").Code)

	w := s.do(http.MethodGet, RouteStat, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var st orch.Stat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, "p", st.Sessions[0].PeerID)
	assert.Equal(t, Routes(), st.Routes)
	assert.Equal(t, true, st.Pipeline["shared"])

	require.NoError(t, s.orch.Disconnect("p"))
	w = s.do(http.MethodGet, RouteStat, "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Empty(t, st.Sessions)
}

func TestIndex(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(http.MethodGet, RouteIndex, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "RTCPeerConnection")

	file := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(file, []byte("<p>custom</p>"), 0o644))
	s = newServer(t, func(c *config.Config) { c.ContentFile = file })
	w = s.do(http.MethodGet, RouteIndex, "", nil)
	assert.Equal(t, "<p>custom</p>", w.Body.String())

	s = newServer(t, func(c *config.Config) { c.ContentFile = filepath.Join(t.TempDir(), "missing.html") })
	w = s.do(http.MethodGet, RouteIndex, "", nil)
	assert.Contains(t, w.Body.String(), "RTCPeerConnection")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusOK, s.offer("p").Code)

	w := s.do(http.MethodGet, RouteMetrics, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `stream_signal_offers_total{result="ok"} 1`)

	s = newServer(t, func(c *config.Config) { c.Metrics.Enabled = false })
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, RouteMetrics, "", nil).Code)
}
