package fake

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Stream/internal/core"
)

type Element struct {
	engine  *Engine
	name    string
	factory string

	mu     sync.Mutex
	props  map[string]string
	links  []core.Element
	state  core.PipelineState
	parent *Pipeline
}

func newElement(e *Engine, factory, name string) *Element {
	return &Element{engine: e, factory: factory, name: name, props: map[string]string{}}
}

func (el *Element) Name() string    { return el.name }
func (el *Element) Factory() string { return el.factory }

func (el *Element) SetProperty(key, value string) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.props[key] = value
	return nil
}

func (el *Element) Property(key string) (string, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	v, ok := el.props[key]
	return v, ok
}

func (el *Element) Link(dst core.Element) error {
	if el.engine.FailLinks[el.factory+"->"+dst.Factory()] {
		return fmt.Errorf("%w: %s -> %s", ErrLink, el.name, dst.Name())
	}
	if el.Parent() == nil || el.Parent() != dst.Parent() {
		return fmt.Errorf("%w: %s and %s are not in the same bin", ErrLink, el.name, dst.Name())
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	el.links = append(el.links, dst)
	return nil
}

func (el *Element) Unlink(dst core.Element) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.links = slices.DeleteFunc(el.links, func(l core.Element) bool { return l == dst })
}

// Links returns the downstream peers of el.
func (el *Element) Links() []core.Element {
	el.mu.Lock()
	defer el.mu.Unlock()
	return append([]core.Element(nil), el.links...)
}

func (el *Element) SetState(s core.PipelineState) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.state = s
	return nil
}

func (el *Element) State() core.PipelineState {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.state
}

func (el *Element) SyncStateWithParent() error {
	el.mu.Lock()
	p := el.parent
	el.mu.Unlock()
	if p == nil {
		return fmt.Errorf("fake: %s has no parent", el.name)
	}
	return el.SetState(p.State())
}

func (el *Element) Parent() core.Bin {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.parent == nil {
		return nil
	}
	return el.parent
}

func (el *Element) setParent(p *Pipeline) {
	el.mu.Lock()
	el.parent = p
	el.mu.Unlock()
}

type baser interface{ base() *Element }

func (el *Element) base() *Element { return el }

// Pad is a request pad of a Tee or WebRTCBin.
type Pad struct {
	name  string
	owner core.Element

	mu   sync.Mutex
	peer core.Element
}

func (p *Pad) Name() string        { return p.name }
func (p *Pad) Owner() core.Element { return p.owner }

func (p *Pad) Link(peer core.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer != nil {
		return fmt.Errorf("%w: pad %s already linked", ErrLink, p.name)
	}
	p.peer = peer
	return nil
}

func (p *Pad) Unlink() {
	p.mu.Lock()
	p.peer = nil
	p.mu.Unlock()
}

func (p *Pad) Peer() core.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer
}

type padSet struct {
	mu   sync.Mutex
	next int
	pads []*Pad
}

func (s *padSet) request(e *Engine, owner core.Element, template string) (core.Pad, error) {
	if e.FailRequestPad {
		return nil, ErrPad
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Pad{name: fmt.Sprintf(template, s.next), owner: owner}
	s.next++
	s.pads = append(s.pads, p)
	return p, nil
}

func (s *padSet) release(p core.Pad) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pads = slices.DeleteFunc(s.pads, func(x *Pad) bool { return core.Pad(x) == p })
}

func (s *padSet) list() []*Pad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Pad(nil), s.pads...)
}

type Tee struct {
	*Element
	pads padSet
}

func (t *Tee) RequestPad(template string) (core.Pad, error) {
	return t.pads.request(t.engine, t, template)
}

func (t *Tee) ReleaseRequestPad(p core.Pad) {
	p.Unlink()
	t.pads.release(p)
}

// Pads returns the request pads currently held.
func (t *Tee) Pads() []*Pad { return t.pads.list() }
