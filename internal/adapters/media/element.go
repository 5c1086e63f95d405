// Package media is an RTP-level implementation of the engine contract: elements push pion/rtp
// packets downstream, sources read them from RTSP or UDP and webrtcbin sends them over pion.
package media

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Stream/internal/core"
	"github.com/pion/rtp"
)

var (
	ErrForeignElement = errors.New("element does not belong to this engine")
	ErrAlreadyLinked  = errors.New("already linked")
	ErrHasParent      = errors.New("element already has a parent")
)

type receiver interface {
	receive(pkt *rtp.Packet)
}

// node is implemented by every element this engine creates.
type node interface {
	core.Element
	receiver
	base() *element
}

// processor handles packets arriving at an element. Elements without one pass packets through.
type processor interface {
	process(pkt *rtp.Packet)
}

// lifecycle hooks run when an element leaves or returns to the null state.
type lifecycle interface {
	start() error
	stop()
}

type propertySetter interface {
	setProperty(key, value string) error
}

type element struct {
	factory string
	name    string
	self    node
	proc    processor

	mu     sync.RWMutex
	props  map[string]string
	state  core.PipelineState
	parent *Pipeline
	outs   []receiver
}

func newElement(factory, name string) *element {
	return &element{factory: factory, name: name, props: map[string]string{}}
}

// bind finishes construction once the outer element exists.
func (e *element) bind(self node) {
	e.self = self
	if p, ok := self.(processor); ok {
		e.proc = p
	}
}

func (e *element) base() *element  { return e }
func (e *element) Name() string     { return e.name }
func (e *element) Factory() string  { return e.factory }

func (e *element) SetProperty(key, value string) error {
	if s, ok := e.self.(propertySetter); ok {
		if err := s.setProperty(key, value); err != nil {
			return fmt.Errorf("%s.%s=%s: %w", e.name, key, value, err)
		}
	}
	e.mu.Lock()
	e.props[key] = value
	e.mu.Unlock()
	return nil
}

func (e *element) Property(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.props[key]
	return v, ok
}

func (e *element) prop(key, def string) string {
	if v, ok := e.Property(key); ok {
		return v
	}
	return def
}

func (e *element) Link(dst core.Element) error {
	n, ok := dst.(node)
	if !ok {
		return fmt.Errorf("link %s -> %s: %w", e.name, dst.Name(), ErrForeignElement)
	}
	return e.addOutput(n)
}

func (e *element) Unlink(dst core.Element) {
	if r, ok := dst.(receiver); ok {
		e.removeOutput(r)
	}
}

func (e *element) Links() []core.Element {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []core.Element
	for _, r := range e.outs {
		if el, ok := r.(core.Element); ok {
			out = append(out, el)
		}
	}
	return out
}

func (e *element) addOutput(r receiver) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if slices.Contains(e.outs, r) {
		return ErrAlreadyLinked
	}
	e.outs = append(e.outs, r)
	return nil
}

func (e *element) removeOutput(r receiver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outs = slices.DeleteFunc(e.outs, func(x receiver) bool { return x == r })
}

func (e *element) clearOutputs() {
	e.mu.Lock()
	e.outs = nil
	e.mu.Unlock()
}

// emit pushes pkt to every output; each extra output gets its own copy.
func (e *element) emit(pkt *rtp.Packet) {
	e.mu.RLock()
	outs := e.outs
	e.mu.RUnlock()
	for i, r := range outs {
		if i < len(outs)-1 {
			r.receive(pkt.Clone())
			continue
		}
		r.receive(pkt)
	}
}

func (e *element) receive(pkt *rtp.Packet) {
	if e.proc != nil {
		e.proc.process(pkt)
		return
	}
	e.emit(pkt)
}

func (e *element) SetState(s core.PipelineState) error {
	e.mu.Lock()
	from := e.state
	e.state = s
	e.mu.Unlock()

	lc, ok := e.self.(lifecycle)
	if !ok || from == s {
		return nil
	}
	switch {
	case from == core.StateNull:
		if err := lc.start(); err != nil {
			e.mu.Lock()
			e.state = from
			e.mu.Unlock()
			return fmt.Errorf("start %s: %w", e.name, err)
		}
	case s == core.StateNull:
		lc.stop()
	}
	return nil
}

func (e *element) State() core.PipelineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *element) playing() bool { return e.State() == core.StatePlaying }

func (e *element) SyncStateWithParent() error {
	p := e.parentPipeline()
	if p == nil {
		return nil
	}
	return e.self.SetState(p.State())
}

func (e *element) Parent() core.Bin {
	if p := e.parentPipeline(); p != nil {
		return p
	}
	return nil
}

func (e *element) parentPipeline() *Pipeline {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parent
}

func (e *element) setParent(p *Pipeline) {
	e.mu.Lock()
	e.parent = p
	e.mu.Unlock()
}
