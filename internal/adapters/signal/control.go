package signal

import "github.com/rs/zerolog/log"

func (ctl *SignalWSController) handlePing(conn *wsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleDisconnect(conn *wsSignalConn) {
	if err := ctl.Orch.Disconnect(conn.peer); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("peer", conn.peer.String()).Msg("disconnect")
	}
}
