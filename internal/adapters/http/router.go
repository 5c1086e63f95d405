// Package http exposes the signaling endpoints over gin.
package http

import (
	"context"

	"github.com/dkeye/Stream/internal/adapters/signal"
	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/config"
	"github.com/dkeye/Stream/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	RouteIndex     = "/"
	RouteStat      = "/stat"
	RouteAPI       = "/api"
	RouteOffer     = "/offer"
	RouteCandidate = "/candidate"
	RouteWS        = "/ws"
	RouteMetrics   = "/metrics"

	ParamPeer  = "peer_id"
	HeaderPeer = "X-Peer-ID"

	cookieName = "StreamSessions"
)

// Routes is the route table reported by GET /stat.
func Routes() map[string]string {
	return map[string]string{
		"addr_code":      RouteIndex,
		"addr_stat":      RouteStat,
		"addr_api":       RouteAPI,
		"addr_offer":     RouteOffer,
		"addr_candidate": RouteCandidate,
		"addr_ws":        RouteWS,
		"addr_metrics":   RouteMetrics,
		"param_peer":     ParamPeer,
		"header_peer":    HeaderPeer,
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, m *metrics.Metrics) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if cfg.HTTP.StickyPeer {
		store := cookie.NewStore([]byte(cfg.HTTP.Secret))
		store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
		r.Use(sessions.Sessions(cookieName, store))
	}

	h := &handlers{
		orch:        o,
		contentFile: cfg.ContentFile,
		sticky:      cfg.HTTP.StickyPeer,
	}
	limiter := signal.NewLimiter(cfg.HTTP.OfferRate, cfg.HTTP.OfferBurst)

	r.GET(RouteIndex, h.index)
	r.GET(RouteStat, h.stat)
	r.GET(RouteAPI, h.apiQuery)
	r.POST(RouteAPI, h.apiBody)
	r.POST(RouteOffer, OfferLimitMiddleware(limiter), h.offer)
	r.POST(RouteCandidate, h.candidate)

	ws := signal.NewSignalWSController(o, limiter)
	r.GET(RouteWS, func(c *gin.Context) {
		ws.HandleSignal(ctx, c)
	})

	if cfg.Metrics.Enabled && m != nil {
		r.GET(RouteMetrics, gin.WrapH(m.Handler()))
	}

	log.Info().
		Str("module", "adapters.http").
		Bool("sticky_peer", cfg.HTTP.StickyPeer).
		Float64("offer_rate", cfg.HTTP.OfferRate).
		Msg("router setup")
	return r
}
