package http

import (
	"net/http"

	"github.com/dkeye/Stream/internal/adapters/signal"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const stickyKey = "peer_id"

// OfferLimitMiddleware throttles offers per client address.
func OfferLimitMiddleware(l *signal.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			log.Warn().Str("module", "adapters.http").Str("client", c.ClientIP()).Msg("offer rate limited")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// offerPeer resolves the peer of an offer: the header, then the sticky cookie, then a new id.
func (h *handlers) offerPeer(c *gin.Context) (domain.PeerID, error) {
	if raw := c.GetHeader(HeaderPeer); raw != "" {
		peer, err := domain.ParsePeerID(raw)
		if err == nil {
			h.remember(c, peer)
		}
		return peer, err
	}
	if h.sticky {
		if raw, ok := sessions.Default(c).Get(stickyKey).(string); ok {
			if peer, err := domain.ParsePeerID(raw); err == nil {
				return peer, nil
			}
		}
	}
	peer := domain.NewPeerID()
	h.remember(c, peer)
	return peer, nil
}

func (h *handlers) remember(c *gin.Context, peer domain.PeerID) {
	if !h.sticky {
		return
	}
	s := sessions.Default(c)
	s.Set(stickyKey, peer.String())
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("peer", peer.String()).Msg("save sticky peer")
	}
}

// candidatePeer reads the query parameter, falling back to the header.
func candidatePeer(c *gin.Context) (domain.PeerID, error) {
	raw := c.Query(ParamPeer)
	if raw == "" {
		raw = c.GetHeader(HeaderPeer)
	}
	return domain.ParsePeerID(raw)
}
