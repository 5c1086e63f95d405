// Package fake is an in-memory core.Engine that records topology changes and negotiation calls.
package fake

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
)

var (
	ErrFactory = errors.New("fake: element factory failed")
	ErrLink    = errors.New("fake: link failed")
	ErrPad     = errors.New("fake: request pad failed")
	ErrParse   = errors.New("fake: parse failed")
)

const DefaultAnswer = "v=0\r\n" +
	"o=- 1 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"a=rtpmap:96 VP8/90000\r\n" +
	"a=sendonly\r\n"

// Engine is safe for concurrent use. Configure the exported knobs before handing it out.
type Engine struct {
	FailFactories  map[string]bool
	FailLinks      map[string]bool // "srcFactory->dstFactory"
	FailRequestPad bool
	FailParse      bool
	FailRemote     bool
	FailAnswer     bool
	// Candidates are emitted by every bin right after SetLocalDescription.
	Candidates []domain.Candidate
	// GatherPolls is how many GatheringState calls report in-progress before completion.
	GatherPolls int
	AnswerSDP   string

	mu        sync.Mutex
	seq       map[string]int
	handles   uint64
	bins      []*WebRTCBin
	pipelines []*Pipeline
}

func NewEngine() *Engine {
	return &Engine{
		FailFactories: map[string]bool{},
		FailLinks:     map[string]bool{},
		AnswerSDP:     DefaultAnswer,
		seq:           map[string]int{},
	}
}

func (e *Engine) nextName(factory string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.seq[factory]
	e.seq[factory] = n + 1
	return fmt.Sprintf("%s%d", factory, n)
}

func (e *Engine) nextHandle() core.TransceiverHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles++
	return core.TransceiverHandle(e.handles)
}

func (e *Engine) MakeElement(factory, name string) (core.Element, error) {
	if e.FailFactories[factory] {
		return nil, fmt.Errorf("%w: %s", ErrFactory, factory)
	}
	if name == "" {
		name = e.nextName(factory)
	}
	base := newElement(e, factory, name)
	switch factory {
	case "tee":
		return &Tee{Element: base}, nil
	case "webrtcbin":
		b := &WebRTCBin{Element: base, gatherDone: make(chan struct{})}
		e.mu.Lock()
		e.bins = append(e.bins, b)
		e.mu.Unlock()
		return b, nil
	default:
		return base, nil
	}
}

func (e *Engine) NewPipeline(name string) core.Pipeline {
	if name == "" {
		name = e.nextName("pipeline")
	}
	p := &Pipeline{Element: newElement(e, "pipeline", name), children: map[string]core.Element{}}
	e.mu.Lock()
	e.pipelines = append(e.pipelines, p)
	e.mu.Unlock()
	return p
}

// ParseLaunch accepts "factory name=x ! factory ..." and links the chain in order.
func (e *Engine) ParseLaunch(desc string) (core.Pipeline, error) {
	if e.FailParse || strings.TrimSpace(desc) == "" {
		return nil, ErrParse
	}
	p := e.NewPipeline("")
	var prev core.Element
	for _, chunk := range strings.Split(desc, "!") {
		fields := strings.Fields(chunk)
		if len(fields) == 0 {
			return nil, ErrParse
		}
		name := ""
		props := map[string]string{}
		for _, f := range fields[1:] {
			k, v, ok := strings.Cut(f, "=")
			if !ok {
				continue
			}
			if k == "name" {
				name = v
				continue
			}
			props[k] = v
		}
		el, err := e.MakeElement(fields[0], name)
		if err != nil {
			return nil, err
		}
		for k, v := range props {
			_ = el.SetProperty(k, v)
		}
		if err := p.Add(el); err != nil {
			return nil, err
		}
		if prev != nil {
			if err := prev.Link(el); err != nil {
				return nil, err
			}
		}
		prev = el
	}
	return p, nil
}

func (e *Engine) Bins() []*WebRTCBin {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*WebRTCBin(nil), e.bins...)
}

func (e *Engine) Pipelines() []*Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Pipeline(nil), e.pipelines...)
}
