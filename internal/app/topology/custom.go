package topology

import (
	"fmt"

	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// Custom owns a whole pipeline built from a description. The pipeline must contain a
// transceiver element under the configured name. Callers serialize access.
type Custom struct {
	m    *Manager
	peer domain.PeerID
	sink transceiver.Sink
	desc string

	resets   int
	pipeline core.Pipeline
	bin      core.WebRTCBin
}

func (c *Custom) Reset() error {
	c.resets++
	if c.resets > 1 || c.pipeline == nil {
		if c.resets > 1 {
			log.Info().Str("module", "app.topology").Str("peer", string(c.peer)).Int("reset", c.resets).Msg("rebuilding custom pipeline")
		}
		c.rebuild()
	}
	if c.pipeline == nil {
		return fmt.Errorf("%w: failed to create pipeline from description", domain.ErrResetFailed)
	}
	if !c.Linked() {
		return fmt.Errorf("%w: element %q not found in pipeline", domain.ErrResetFailed, c.m.opts.Names.WebRTCBin)
	}
	return nil
}

func (c *Custom) rebuild() {
	c.Teardown(false)

	p, err := c.m.engine.ParseLaunch(c.desc)
	if err != nil {
		log.Error().Err(err).Str("module", "app.topology").Str("peer", string(c.peer)).Str("desc", c.desc).Msg("failed to create pipeline")
		return
	}
	c.pipeline = p
	log.Info().Str("module", "app.topology").Str("peer", string(c.peer)).Str("desc", c.desc).Msg("created pipeline from description")

	el, ok := p.ByName(c.m.opts.Names.WebRTCBin)
	if !ok {
		log.Error().Str("module", "app.topology").Str("peer", string(c.peer)).Msg("failed to find webrtcbin in pipeline")
		return
	}
	bin, ok := el.(core.WebRTCBin)
	if !ok {
		log.Error().Str("module", "app.topology").Str("peer", string(c.peer)).Str("element", el.Name()).Msg("element is not a webrtc transceiver")
		return
	}
	c.bin = bin
	c.bin.OnICECandidate(c.sink.Deliver)

	if p.State() != core.StatePlaying {
		if err := p.SetState(core.StatePlaying); err != nil {
			log.Warn().Err(err).Str("module", "app.topology").Str("peer", string(c.peer)).Msg("failed to set pipeline playing")
		}
	}
}

func (c *Custom) Teardown(bool) {
	if c.bin != nil {
		c.bin.OnICECandidate(nil)
		c.bin = nil
	}
	if c.pipeline == nil {
		return
	}
	if err := c.pipeline.Close(); err != nil {
		log.Warn().Err(err).Str("module", "app.topology").Str("peer", string(c.peer)).Msg("close pipeline")
	}
	c.pipeline = nil
	log.Info().Str("module", "app.topology").Str("peer", string(c.peer)).Msg("cleaned up pipeline")
}

func (c *Custom) Bin() core.WebRTCBin { return c.bin }

func (c *Custom) Linked() bool {
	return c.bin != nil && c.pipeline != nil && c.bin.Parent() == core.Bin(c.pipeline)
}

func (c *Custom) Custom() bool    { return c.pipeline != nil }
func (c *Custom) BinShared() bool { return false }

func (c *Custom) Playing() bool {
	return c.pipeline != nil && c.pipeline.State() == core.StatePlaying
}

func (c *Custom) Description() string { return c.desc }
