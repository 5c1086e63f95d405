// Package signal carries offers, candidates and trickled local candidates over a websocket.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const sendBuffer = 32

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *Limiter
}

func NewSignalWSController(o *orch.Orchestrator, l *Limiter) *SignalWSController {
	return &SignalWSController{Orch: o, Limiter: l}
}

type wsSignalConn struct {
	peer domain.PeerID
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	closed  bool
	unwatch func()
	holding bool
	held    []domain.Candidate
}

func (c *wsSignalConn) TrySend(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trySendLocked(b)
}

func (c *wsSignalConn) trySendLocked(b []byte) error {
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

// hold queues trickled candidates until release, so none reaches the client ahead of its answer.
func (c *wsSignalConn) hold() {
	c.mu.Lock()
	c.holding = true
	c.mu.Unlock()
}

// release sends first, then the held candidates in arrival order. Held candidates listed in sent
// already reached the client inside first and are dropped.
func (c *wsSignalConn) release(first []byte, sent []domain.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holding = false
	if first != nil {
		if err := c.trySendLocked(first); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("peer", c.peer.String()).Msg("answer dropped")
		}
	}
	skip := make(map[domain.Candidate]struct{}, len(sent))
	for _, cand := range sent {
		skip[cand] = struct{}{}
	}
	for _, cand := range c.held {
		if _, ok := skip[cand]; ok {
			continue
		}
		skip[cand] = struct{}{}
		b, err := candidateMessage(cand)
		if err != nil {
			continue
		}
		_ = c.trySendLocked(b)
	}
	c.held = nil
}

func (c *wsSignalConn) trickle(cand domain.Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holding {
		c.held = append(c.held, cand)
		return nil
	}
	b, err := candidateMessage(cand)
	if err != nil {
		return err
	}
	return c.trySendLocked(b)
}

// watch replaces the candidate subscription of this connection.
func (c *wsSignalConn) watch(cancel func()) {
	c.mu.Lock()
	prev := c.unwatch
	c.unwatch = cancel
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unwatch := c.unwatch
	c.unwatch = nil
	c.held = nil
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades GET /ws?peer_id=. The session outlives the socket; only a disconnect
// message or the HTTP surface closes it.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	peer, err := domain.ParsePeerID(c.Query("peer_id"))
	if errors.Is(err, domain.ErrMissingPeerID) {
		peer, err = domain.NewPeerID(), nil
	}
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	log.Info().Str("module", "signal").Str("peer", peer.String()).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, http.Header{"X-Peer-ID": {peer.String()}})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsSignalConn{
		peer: peer,
		conn: ws,
		send: make(chan []byte, sendBuffer),
	}
	if sess, ok := ctl.Orch.Registry.Get(peer); ok {
		conn.watch(sess.Watch(func(c domain.Candidate) {
			ctl.sendCandidate(conn, c)
		}))
		n := sess.ReplayLocalCandidates()
		log.Info().Str("module", "signal").Str("peer", peer.String()).Int("replayed", n).Msg("reattached to existing session")
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, conn)
	}()
}
