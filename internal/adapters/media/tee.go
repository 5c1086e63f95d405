package media

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dkeye/Stream/internal/app/sfu"
	"github.com/dkeye/Stream/internal/core"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
)

// Tee copies its input to every "src_%u" request pad through an sfu.Relay.
type Tee struct {
	*element
	relay *sfu.Relay

	pmu  sync.Mutex
	pads map[string]*srcPad
	next int
}

func newTee(name string) *Tee {
	t := &Tee{
		element: newElement("tee", name),
		relay:   sfu.NewRelay(log.With().Str("module", "media.tee").Str("element", name).Logger()),
		pads:    map[string]*srcPad{},
	}
	t.bind(t)
	return t
}

func (t *Tee) process(pkt *rtp.Packet) {
	t.relay.Forward(pkt)
	t.emit(pkt)
}

func (t *Tee) RequestPad(template string) (core.Pad, error) {
	prefix, ok := strings.CutSuffix(template, "%u")
	if !ok || prefix != "src_" {
		return nil, fmt.Errorf("tee %s has no pad template %q", t.name, template)
	}
	t.pmu.Lock()
	defer t.pmu.Unlock()
	p := &srcPad{owner: t, name: prefix + strconv.Itoa(t.next)}
	t.next++
	t.pads[p.name] = p
	return p, nil
}

func (t *Tee) ReleaseRequestPad(p core.Pad) {
	p.Unlink()
	t.pmu.Lock()
	delete(t.pads, p.Name())
	t.pmu.Unlock()
}

// Outputs is the number of linked request pads.
func (t *Tee) Outputs() int { return t.relay.Len() }

type srcPad struct {
	owner *Tee
	name  string

	mu   sync.Mutex
	peer node
}

func (p *srcPad) Name() string        { return p.name }
func (p *srcPad) Owner() core.Element { return p.owner }

func (p *srcPad) Link(peer core.Element) error {
	n, ok := peer.(node)
	if !ok {
		return fmt.Errorf("link %s -> %s: %w", p.name, peer.Name(), ErrForeignElement)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != nil {
		return fmt.Errorf("%s: %w", p.name, ErrAlreadyLinked)
	}
	p.peer = n
	p.owner.relay.AddOutTrack(p.name, sfu.NewOutTrack(func(pkt *rtp.Packet) error {
		n.receive(pkt)
		return nil
	}))
	return nil
}

func (p *srcPad) Unlink() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer == nil {
		return
	}
	p.owner.relay.RemoveOutTrack(p.name)
	p.peer = nil
}
