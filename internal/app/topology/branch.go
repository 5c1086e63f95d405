package topology

import (
	"fmt"

	"github.com/dkeye/Stream/internal/app/codec"
	"github.com/dkeye/Stream/internal/app/transceiver"
	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
	"github.com/rs/zerolog/log"
)

// Branch is queue -> [identity] -> [payloader] -> transceiver hanging off the shared tee.
type Branch struct {
	m    *Manager
	peer domain.PeerID
	sink transceiver.Sink

	queue  core.Element
	ident  core.Element
	pay    core.Element
	bin    core.WebRTCBin // owned; nil when the shared bin is used
	teePad core.Pad
	binPad core.Pad
}

func (b *Branch) Reset() error {
	m := b.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pipeline == nil {
		return fmt.Errorf("%w: %v", domain.ErrResetFailed, errNoSharedPipeline)
	}
	prior := m.pipeline.State()
	paused, err := m.pauseLocked()
	if err != nil {
		log.Warn().Err(err).Str("module", "app.topology").Str("peer", string(b.peer)).Msg("pause before reset")
	}
	b.teardownLocked()

	if err := b.buildLocked(); err != nil {
		b.teardownLocked()
		if m.pipeline.State() != prior {
			_ = m.pipeline.SetState(prior)
		}
		log.Error().Err(err).Str("module", "app.topology").Str("peer", string(b.peer)).Msg("branch reset failed")
		return fmt.Errorf("%w: %v", domain.ErrResetFailed, err)
	}

	if paused {
		if err := m.resumeLocked(); err != nil {
			log.Warn().Err(err).Str("module", "app.topology").Str("peer", string(b.peer)).Msg("failed to set shared pipeline playing")
		}
	}
	log.Info().Str("module", "app.topology").Str("peer", string(b.peer)).Msg("branch linked")
	return nil
}

func (b *Branch) buildLocked() error {
	m := b.m
	teeEl, ok := m.pipeline.ByName(m.opts.Names.Tee)
	if !ok {
		return fmt.Errorf("tee %q not found", m.opts.Names.Tee)
	}
	tee, ok := teeEl.(core.RequestPadder)
	if !ok {
		return fmt.Errorf("element %q has no request pads", m.opts.Names.Tee)
	}

	// Created elements go straight into the bookkeeping so teardown can reclaim them.
	var err error
	if b.queue, err = m.engine.MakeElement("queue", ""); err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	if !m.paySharedLocked() {
		if b.pay, err = m.engine.MakeElement(m.opts.PayloaderFactory, ""); err != nil {
			return fmt.Errorf("create %s: %w", m.opts.PayloaderFactory, err)
		}
	}
	target := m.bin
	if !m.binSharedLocked() {
		el, err := m.engine.MakeElement("webrtcbin", "")
		if err != nil {
			return fmt.Errorf("create webrtcbin: %w", err)
		}
		bin, ok := el.(core.WebRTCBin)
		if !ok {
			return fmt.Errorf("element %s is not a webrtc transceiver", el.Name())
		}
		b.bin, target = bin, bin
	}

	applyParams(b.queue, queueParams(m.opts))
	if b.pay != nil {
		applyParams(b.pay, payloaderParams(m.opts))
	}
	if b.bin != nil {
		if m.opts.StunServer != "" {
			_ = b.bin.SetProperty("stun-server", m.opts.StunServer)
		}
		if m.opts.BundlePolicy != "" {
			_ = b.bin.SetProperty("bundle-policy", m.opts.BundlePolicy)
		}
	}

	for _, el := range []core.Element{b.queue, b.pay, b.bin} {
		if el == nil {
			continue
		}
		if err := m.pipeline.Add(el); err != nil {
			return fmt.Errorf("add %s: %w", el.Name(), err)
		}
	}

	upstream := b.queue
	if m.opts.IdentityUsing {
		if b.ident, err = m.engine.MakeElement("identity", ""); err != nil {
			return fmt.Errorf("create identity: %w", err)
		}
		applyParams(b.ident, identityParams)
		if err := m.pipeline.Add(b.ident); err != nil {
			return fmt.Errorf("add identity: %w", err)
		}
		if err := b.ident.SyncStateWithParent(); err != nil {
			return fmt.Errorf("sync identity: %w", err)
		}
		if err := upstream.Link(b.ident); err != nil {
			return fmt.Errorf("link queue -> identity: %w", err)
		}
		upstream = b.ident
	}
	if b.pay != nil {
		if err := upstream.Link(b.pay); err != nil {
			return fmt.Errorf("link %s -> %s: %w", upstream.Name(), b.pay.Name(), err)
		}
		upstream = b.pay
	}

	for _, el := range []core.Element{b.queue, b.pay, b.bin} {
		if el == nil {
			continue
		}
		if err := el.SyncStateWithParent(); err != nil {
			return fmt.Errorf("sync %s: %w", el.Name(), err)
		}
	}

	if b.teePad, err = tee.RequestPad("src_%u"); err != nil {
		return fmt.Errorf("request tee pad: %w", err)
	}
	if err := b.teePad.Link(b.queue); err != nil {
		return fmt.Errorf("link tee -> queue: %w", err)
	}

	if m.opts.TransceiverAdding {
		h, err := target.AddTransceiver(codec.TransceiverCaps(m.opts.Codec, m.opts.Payload))
		if err != nil {
			return fmt.Errorf("add transceiver: %w", err)
		}
		if b.bin == nil {
			m.router.Bind(h, target, b.peer)
		}
	}

	if b.binPad, err = target.RequestPad("sink_%u"); err != nil {
		return fmt.Errorf("request webrtcbin pad: %w", err)
	}
	if err := b.binPad.Link(upstream); err != nil {
		return fmt.Errorf("link %s -> %s: %w", upstream.Name(), target.Name(), err)
	}

	if b.bin != nil {
		b.bin.OnICECandidate(b.sink.Deliver)
	} else {
		m.hookSharedBinLocked()
	}
	return nil
}

func (b *Branch) Teardown(restorePlaying bool) {
	m := b.m
	m.mu.Lock()
	defer m.mu.Unlock()

	paused, _ := m.pauseLocked()
	b.teardownLocked()
	if paused && restorePlaying {
		_ = m.resumeLocked()
	}
}

func (b *Branch) teardownLocked() {
	if b.binPad != nil {
		if owner, ok := b.binPad.Owner().(core.RequestPadder); ok {
			owner.ReleaseRequestPad(b.binPad)
		}
		b.binPad = nil
	}
	for _, el := range []*core.Element{&b.pay, &b.ident, &b.queue} {
		removeElement(*el)
		*el = nil
	}
	if b.teePad != nil {
		if owner, ok := b.teePad.Owner().(core.RequestPadder); ok {
			owner.ReleaseRequestPad(b.teePad)
		}
		b.teePad = nil
	}
	if b.bin != nil {
		b.bin.OnICECandidate(nil)
		removeElement(b.bin)
		b.bin = nil
	}
	// Renegotiation may have moved the peer onto another handle of the shared bin.
	b.m.router.UnbindPeer(b.peer)
}

func (b *Branch) Bin() core.WebRTCBin {
	m := b.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.bin != nil {
		return b.bin
	}
	if b.binPad != nil && m.binSharedLocked() {
		return m.bin
	}
	return nil
}

func (b *Branch) Linked() bool {
	m := b.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.bin != nil {
		return m.pipeline != nil && b.bin.Parent() == core.Bin(m.pipeline)
	}
	return b.binPad != nil && m.binSharedLocked()
}

func (b *Branch) Custom() bool        { return false }
func (b *Branch) BinShared() bool     { return b.m.WebRTCBinShared() }
func (b *Branch) Playing() bool       { return b.m.Playing() }
func (b *Branch) Description() string { return "" }

func queueParams(o Options) map[string]string {
	if o.QueueParams != nil {
		return o.QueueParams
	}
	return codec.QueueParams(o.Codec)
}

func payloaderParams(o Options) map[string]string {
	if o.PayloaderParams != nil {
		return o.PayloaderParams
	}
	return codec.PayloaderParams(o.Codec, o.Payload)
}

func applyParams(el core.Element, params map[string]string) {
	for k, v := range params {
		if err := el.SetProperty(k, v); err != nil {
			log.Warn().Err(err).Str("module", "app.topology").Str("element", el.Name()).Str("key", k).Msg("set property")
		}
	}
}

// removeElement stops el and detaches it from its bin.
func removeElement(el core.Element) {
	if el == nil {
		return
	}
	_ = el.SetState(core.StateNull)
	if parent := el.Parent(); parent != nil {
		if err := parent.Remove(el); err != nil {
			log.Warn().Err(err).Str("module", "app.topology").Str("element", el.Name()).Msg("remove element")
		}
	}
}
