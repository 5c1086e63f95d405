package main

import (
	"github.com/rs/zerolog"

	"github.com/dkeye/Stream/internal/app"
	"github.com/dkeye/Stream/internal/app/codec"
	"github.com/dkeye/Stream/internal/app/session"
	"github.com/dkeye/Stream/internal/app/topology"
	"github.com/dkeye/Stream/internal/config"
)

func serviceOptions(cfg *config.Config) app.Options {
	return app.Options{
		MultiplePeers:  cfg.Flags.MultiplePeers,
		ResetOnCreate:  cfg.Flags.ResetOnCreate,
		SessionTimeout: cfg.SessionTimeout,
		PipelineInit:   cfg.Pipeline.Init,
		Session: session.Options{
			Codec:    cfg.Codec(),
			Payload:  cfg.Payload(),
			Step:     cfg.ICE.Step,
			Wait:     cfg.ICE.Wait,
			Gather:   cfg.ICE.Gather,
			SDPDebug: cfg.Flags.SDPDebugUsing,
		},
	}
}

func topologyOptions(cfg *config.Config) topology.Options {
	return topology.Options{
		Codec:             cfg.Codec(),
		Payload:           cfg.Payload(),
		PayloaderFactory:  cfg.Payloader(),
		PayloaderParams:   codec.PayloaderParams(cfg.EncoderFormat, cfg.Payload()),
		QueueParams:       codec.QueueParams(cfg.Codec()),
		StunServer:        cfg.StunServer,
		BundlePolicy:      cfg.BundlePolicy,
		IdentityUsing:     cfg.Flags.IdentityUsing,
		StateSwitching:    cfg.Flags.StateSwitching,
		TransceiverAdding: cfg.Flags.TransceiverAdding,
		Names: topology.Names{
			Tee:       cfg.Elements.Tee,
			Payloader: cfg.Elements.RTPPay,
			WebRTCBin: cfg.Elements.WebRTCBin,
		},
	}
}

func logLevel(cfg *config.Config) zerolog.Level {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// pionLevel keeps the WebRTC stack quiet unless the debugger flag is on.
func pionLevel(cfg *config.Config) zerolog.Level {
	if cfg.Flags.DebuggerUsing {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}
