package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Stream/internal/adapters/http"
	"github.com/dkeye/Stream/internal/adapters/media"
	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/app/orch"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/config"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context) error {
	store, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	cfg := store.Config()
	zerolog.SetGlobalLevel(logLevel(cfg))

	met := metrics.New()
	engine, err := media.NewEngine(media.Options{
		Codec:    cfg.Codec(),
		Payload:  cfg.Payload(),
		OnPLI:    met.PLI,
		LogLevel: pionLevel(cfg),
	})
	if err != nil {
		return err
	}

	routes := transceiver.NewRouter()
	topo := topology.NewManager(engine, routes, topologyOptions(cfg))
	if err := startShared(engine, topo, cfg); err != nil {
		return err
	}
	defer func() {
		if err := topo.Close(); err != nil {
			log.Warn().Err(err).Str("module", "main").Msg("close shared pipeline")
		}
	}()

	svc := app.NewService(engine, topo, routes, serviceOptions(cfg))
	svc.Metrics = met
	reg := app.NewRegistry(svc)
	defer reg.CloseAll()

	store.OnChange(func(c *config.Config) {
		zerolog.SetGlobalLevel(logLevel(c))
		svc.Reconfigure(serviceOptions(c))
	})

	o := orch.New(reg, topo, store, met)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.SetupRouter(ctx, cfg, o, met),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Stream server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		housekeeping(gctx, reg, svc, met)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})
	return g.Wait()
}

// startShared builds the shared pipeline unless every session brings its own.
func startShared(engine core.Engine, topo *topology.Manager, cfg *config.Config) error {
	desc, err := cfg.SharedDescription()
	if err != nil {
		return err
	}
	if desc == "" {
		log.Info().Str("module", "main").Msg("per-session pipelines, no shared pipeline")
		return nil
	}
	p, err := engine.ParseLaunch(desc)
	if err != nil {
		return err
	}
	if err := p.SetState(core.StatePlaying); err != nil {
		_ = p.Close()
		return err
	}
	log.Info().Str("module", "main").Str("desc", desc).Msg("shared pipeline playing")
	return topo.SetShared(p)
}

// housekeeping evicts sessions that stalled before reaching the ready state.
func housekeeping(ctx context.Context, reg *app.Registry, svc *app.Service, met *metrics.Metrics) {
	interval := svc.Current().SessionTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := reg.EvictExpired(""); n > 0 {
				log.Info().Str("module", "main").Int("evicted", n).Msg("expired sessions removed")
			}
			met.Sessions(reg.Len())
		}
	}
}
