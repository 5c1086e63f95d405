package http

import (
	_ "embed"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

//go:embed web/index.html
var indexHTML []byte

type handlers struct {
	orch        *orch.Orchestrator
	contentFile string
	sticky      bool
}

type offerRequest struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func (h *handlers) offer(c *gin.Context) {
	peer, err := h.offerPeer(c)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	c.Header(HeaderPeer, peer.String())

	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("peer", peer.String()).Msg("invalid offer body")
		c.String(http.StatusBadRequest, "invalid offer body")
		return
	}

	answer, err := h.orch.Offer(c.Request.Context(), peer, req.SDP)
	if err != nil {
		c.String(statusFor(err), offerReason(err))
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *handlers) candidate(c *gin.Context) {
	peer, err := candidatePeer(c)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	var cand domain.Candidate
	if err := c.ShouldBindJSON(&cand); err != nil {
		c.String(http.StatusBadRequest, "invalid candidate body")
		return
	}
	if err := h.orch.Candidate(peer, cand); err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	c.String(http.StatusOK, "ok")
}

// apiQuery turns every query parameter into a JSON value, keeping it a string when it does not parse.
func (h *handlers) apiQuery(c *gin.Context) {
	args := make(map[string]any)
	for k, vals := range c.Request.URL.Query() {
		if len(vals) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(vals[0]), &v); err != nil {
			v = vals[0]
		}
		args[k] = v
	}
	h.command(c, args)
}

// apiBody accepts any content type so navigator.sendBeacon payloads are understood.
func (h *handlers) apiBody(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	args := make(map[string]any)
	if err := json.Unmarshal(body, &args); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("api body")
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	h.command(c, args)
}

func (h *handlers) command(c *gin.Context, args map[string]any) {
	reply, err := h.orch.Command(c.Request.Context(), args)
	if err != nil {
		c.String(statusFor(err), err.Error())
		return
	}
	if reply.JSON != nil {
		c.JSON(http.StatusOK, reply.JSON)
		return
	}
	c.String(http.StatusOK, reply.Text)
}

func (h *handlers) stat(c *gin.Context) {
	st := h.orch.Stat()
	st.Routes = Routes()
	c.IndentedJSON(http.StatusOK, st)
}

// index serves content_file when it is readable, the built-in viewer otherwise. The file is
// re-read on every request.
func (h *handlers) index(c *gin.Context) {
	page := indexHTML
	if h.contentFile != "" {
		b, err := os.ReadFile(h.contentFile)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("file", h.contentFile).Msg("content file unavailable, serving built-in page")
		} else {
			page = b
		}
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
