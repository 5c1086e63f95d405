package core

import "fmt"

// PipelineState mirrors the engine lifecycle. Ordering is meaningful: a higher value is further
// along the null -> ready -> paused -> playing ladder.
type PipelineState int

const (
	StateNull PipelineState = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s PipelineState) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Element is one node of a media graph.
type Element interface {
	Name() string
	Factory() string
	// SetProperty applies a gst-launch style property, e.g. ("leaky", "2").
	SetProperty(key, value string) error
	Property(key string) (string, bool)
	// Link connects this element's output to dst's input.
	Link(dst Element) error
	Unlink(dst Element)
	SetState(PipelineState) error
	State() PipelineState
	// SyncStateWithParent moves the element to the state of the bin holding it.
	SyncStateWithParent() error
	// Parent is the bin the element was added to, nil when detached.
	Parent() Bin
}

// Bin owns a set of named elements.
type Bin interface {
	Add(elems ...Element) error
	Remove(e Element) error
	ByName(name string) (Element, bool)
	Elements() []Element
}

type Pipeline interface {
	Element
	Bin
	// Close moves the pipeline to null and releases every element.
	Close() error
}

// Pad is a request pad obtained from a RequestPadder. A source pad ("src_%u") feeds the peer it
// is linked to; a sink pad ("sink_%u") is fed by it.
type Pad interface {
	Name() string
	Owner() Element
	Link(peer Element) error
	Unlink()
}

type RequestPadder interface {
	Element
	RequestPad(template string) (Pad, error)
	ReleaseRequestPad(p Pad)
}

// Engine builds pipelines and elements.
type Engine interface {
	// ParseLaunch builds a pipeline from a textual description ("a ! b name=x ! c").
	ParseLaunch(desc string) (Pipeline, error)
	NewPipeline(name string) Pipeline
	// MakeElement creates a detached element; an empty name is replaced by a unique one.
	MakeElement(factory, name string) (Element, error)
}
