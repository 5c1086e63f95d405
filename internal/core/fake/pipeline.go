package fake

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/Stream/internal/core"
)

type Pipeline struct {
	*Element

	cmu      sync.Mutex
	children map[string]core.Element
	history  []core.PipelineState
}

func (p *Pipeline) Add(elems ...core.Element) error {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	for _, e := range elems {
		b, ok := e.(baser)
		if !ok {
			return fmt.Errorf("fake: foreign element %s", e.Name())
		}
		if _, dup := p.children[e.Name()]; dup {
			return fmt.Errorf("fake: duplicate element name %s", e.Name())
		}
		if b.base().Parent() != nil {
			return fmt.Errorf("fake: %s already has a parent", e.Name())
		}
		b.base().setParent(p)
		p.children[e.Name()] = e
	}
	return nil
}

func (p *Pipeline) Remove(e core.Element) error {
	p.cmu.Lock()
	if cur, ok := p.children[e.Name()]; !ok || cur != e {
		p.cmu.Unlock()
		return fmt.Errorf("fake: %s is not in %s", e.Name(), p.Name())
	}
	delete(p.children, e.Name())
	rest := make([]core.Element, 0, len(p.children))
	for _, c := range p.children {
		rest = append(rest, c)
	}
	p.cmu.Unlock()

	for _, c := range rest {
		c.Unlink(e)
	}
	if b, ok := e.(baser); ok {
		b.base().mu.Lock()
		b.base().links = nil
		b.base().mu.Unlock()
		b.base().setParent(nil)
	}
	return nil
}

func (p *Pipeline) ByName(name string) (core.Element, bool) {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	e, ok := p.children[name]
	return e, ok
}

func (p *Pipeline) Elements() []core.Element {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	out := make([]core.Element, 0, len(p.children))
	for _, e := range p.children {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (p *Pipeline) SetState(s core.PipelineState) error {
	if err := p.Element.SetState(s); err != nil {
		return err
	}
	p.cmu.Lock()
	p.history = append(p.history, s)
	kids := make([]core.Element, 0, len(p.children))
	for _, c := range p.children {
		kids = append(kids, c)
	}
	p.cmu.Unlock()
	for _, c := range kids {
		_ = c.SetState(s)
	}
	return nil
}

// History lists every state the pipeline was asked to enter.
func (p *Pipeline) History() []core.PipelineState {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	return append([]core.PipelineState(nil), p.history...)
}

func (p *Pipeline) Close() error {
	_ = p.SetState(core.StateNull)
	for _, e := range p.Elements() {
		_ = p.Remove(e)
	}
	return nil
}
