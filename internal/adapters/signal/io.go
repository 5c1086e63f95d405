package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Stream/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	defer c.Close()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("peer", c.peer.String()).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("peer", c.peer.String()).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("peer", c.peer.String()).Msg("readPump closing")
		c.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error().Err(err).Str("module", "signal").Str("peer", c.peer.String()).Msg("readPump read error")
			}
			return
		}
		if !ctl.handleSignal(ctx, c, data) {
			return
		}
	}
}

// handleSignal dispatches one message and reports whether the connection stays open.
func (ctl *SignalWSController) handleSignal(ctx context.Context, c *wsSignalConn, data []byte) bool {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return true
	}

	switch env.Type {
	case "offer":
		ctl.handleOffer(ctx, c, data)
	case "candidate":
		ctl.handleCandidate(c, data)
	case "disconnect":
		ctl.handleDisconnect(c)
		return false
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(c, "unknown_type")
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *wsSignalConn, v any) {
	if err := sendTo(c, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", c.peer.String()).Msg("sendJSON dropped")
	}
}

func sendTo(c core.SignalConnection, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *wsSignalConn, reason string) {
	ctl.sendJSON(c, map[string]string{"type": "error", "error": reason})
}
