package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

func candidateMessage(cand domain.Candidate) ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		domain.Candidate
	}{
		Type:      "candidate",
		Candidate: cand,
	})
}

func (ctl *SignalWSController) sendCandidate(c *wsSignalConn, cand domain.Candidate) {
	if err := c.trickle(cand); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", c.peer.String()).Msg("candidate dropped")
	}
}

func (ctl *SignalWSController) handleOffer(ctx context.Context, conn *wsSignalConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if !ctl.Limiter.Allow(conn.peer.String()) {
		ctl.sendError(conn, "rate_limited")
		return
	}

	// The watch is in place before negotiation so restart replays reach this socket. Everything
	// it sees is held until the answer is out.
	conn.hold()
	sess, err := ctl.Orch.Registry.Offer(conn.peer)
	if err != nil {
		conn.release(nil, nil)
		ctl.sendError(conn, err.Error())
		return
	}
	conn.watch(sess.Watch(func(c domain.Candidate) {
		ctl.sendCandidate(conn, c)
	}))
	answer, err := ctl.Orch.Offer(ctx, conn.peer, p.SDP)
	if err != nil {
		conn.release(nil, nil)
		ctl.sendError(conn, err.Error())
		return
	}
	b, err := json.Marshal(struct {
		domain.Answer
		PeerID domain.PeerID `json:"peer_id"`
	}{answer, conn.peer})
	if err != nil {
		conn.release(nil, nil)
		log.Error().Err(err).Str("module", "signal").Msg("marshal answer")
		return
	}
	conn.release(b, answer.Candidates)
}

func (ctl *SignalWSController) handleCandidate(conn *wsSignalConn, data []byte) {
	var p domain.Candidate
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.Candidate(conn.peer, p); err != nil {
		ctl.sendError(conn, err.Error())
	}
}
