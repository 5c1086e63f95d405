package media

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/Stream/internal/core"
)

// Pipeline is a bin of elements sharing one state.
type Pipeline struct {
	*element

	cmu      sync.RWMutex
	order    []string
	children map[string]node
}

func newPipeline(name string) *Pipeline {
	p := &Pipeline{element: newElement("pipeline", name), children: map[string]node{}}
	p.bind(p)
	return p
}

func (p *Pipeline) Add(elems ...core.Element) error {
	p.cmu.Lock()
	defer p.cmu.Unlock()
	for _, el := range elems {
		n, ok := el.(node)
		if !ok {
			return fmt.Errorf("add %s: %w", el.Name(), ErrForeignElement)
		}
		if n.base().parentPipeline() != nil {
			return fmt.Errorf("add %s: %w", el.Name(), ErrHasParent)
		}
		if _, dup := p.children[el.Name()]; dup {
			return fmt.Errorf("add %s: name already used in %s", el.Name(), p.name)
		}
		n.base().setParent(p)
		p.children[el.Name()] = n
		p.order = append(p.order, el.Name())
	}
	return nil
}

// Remove detaches e and drops every link to or from it.
func (p *Pipeline) Remove(e core.Element) error {
	p.cmu.Lock()
	n, ok := p.children[e.Name()]
	if !ok || core.Element(n) != e {
		p.cmu.Unlock()
		return fmt.Errorf("%s is not in %s", e.Name(), p.name)
	}
	delete(p.children, e.Name())
	p.order = slices.DeleteFunc(p.order, func(s string) bool { return s == e.Name() })
	rest := make([]node, 0, len(p.children))
	for _, c := range p.children {
		rest = append(rest, c)
	}
	p.cmu.Unlock()

	for _, c := range rest {
		c.base().removeOutput(n)
	}
	n.base().clearOutputs()
	n.base().setParent(nil)
	return nil
}

func (p *Pipeline) ByName(name string) (core.Element, bool) {
	p.cmu.RLock()
	defer p.cmu.RUnlock()
	n, ok := p.children[name]
	if !ok {
		return nil, false
	}
	return n, true
}

// Elements lists children in the order they were added.
func (p *Pipeline) Elements() []core.Element {
	p.cmu.RLock()
	defer p.cmu.RUnlock()
	out := make([]core.Element, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.children[name])
	}
	return out
}

// SetState moves the pipeline and then every child. Sources start on leaving null, so children
// are visited downstream-first to have consumers ready before data flows.
func (p *Pipeline) SetState(s core.PipelineState) error {
	if err := p.element.SetState(s); err != nil {
		return err
	}
	elems := p.Elements()
	var first error
	for i := len(elems) - 1; i >= 0; i-- {
		if err := elems[i].SetState(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close also releases elements that never left null, such as a webrtcbin that only negotiated.
func (p *Pipeline) Close() error {
	err := p.SetState(core.StateNull)
	for _, el := range p.Elements() {
		if lc, ok := el.(lifecycle); ok {
			lc.stop()
		}
		_ = p.Remove(el)
	}
	return err
}
