package media

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dkeye/Stream/internal/adapters/rtc"
	"github.com/dkeye/Stream/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

type Options struct {
	// Codec and Payload describe what webrtcbin tracks advertise.
	Codec   string
	Payload int
	// API is shared by every webrtcbin; NewEngine builds one from Codec and Payload when nil.
	API *webrtc.API
	// OnPLI runs for every picture loss or full intra request a viewer sends.
	OnPLI    func()
	LogLevel zerolog.Level
}

// Engine creates elements of this package. It is safe for concurrent use.
type Engine struct {
	opts Options

	mu  sync.Mutex
	seq map[string]int
}

var _ core.Engine = (*Engine)(nil)

func NewEngine(opts Options) (*Engine, error) {
	if opts.Codec == "" {
		opts.Codec = "VP8"
	}
	if opts.API == nil {
		api, err := rtc.NewAPI(rtc.Options{Codec: opts.Codec, Payload: opts.Payload, LogLevel: opts.LogLevel})
		if err != nil {
			return nil, err
		}
		opts.API = api
	}
	return &Engine{opts: opts, seq: map[string]int{}}, nil
}

func (e *Engine) uniqueName(factory string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.seq[factory]
	e.seq[factory] = n + 1
	return factory + strconv.Itoa(n)
}

func (e *Engine) NewPipeline(name string) core.Pipeline {
	if name == "" {
		name = e.uniqueName("pipeline")
	}
	return newPipeline(name)
}

func (e *Engine) MakeElement(factory, name string) (core.Element, error) {
	if name == "" {
		name = e.uniqueName(factory)
	}
	switch {
	case factory == "udpsrc":
		s := &UDPSrc{element: newElement(factory, name)}
		s.bind(s)
		return s, nil
	case factory == "rtspsrc":
		s := &RTSPSrc{element: newElement(factory, name)}
		s.bind(s)
		return s, nil
	case factory == "queue":
		return newQueue(name), nil
	case factory == "identity":
		i := &Identity{element: newElement(factory, name)}
		i.bind(i)
		return i, nil
	case factory == "capsfilter":
		return newCapsFilter(name), nil
	case factory == "tee":
		return newTee(name), nil
	case factory == "fakesink":
		f := &FakeSink{element: newElement(factory, name)}
		f.bind(f)
		return f, nil
	case factory == "watchdog":
		w := &Watchdog{element: newElement(factory, name)}
		w.bind(w)
		return w, nil
	case factory == "webrtcbin":
		return newWebRTCBin(name, e.opts.API, e.opts.Codec, e.opts.OnPLI), nil
	case strings.HasPrefix(factory, "rtp") && strings.HasSuffix(factory, "depay"):
		// Sources already deliver RTP, so depayloaders pass packets through untouched.
		el := newElement(factory, name)
		el.bind(&passthrough{el})
		return el.self, nil
	case strings.HasPrefix(factory, "rtp") && strings.HasSuffix(factory, "pay"):
		return newPayloader(factory, name), nil
	}
	return nil, fmt.Errorf("no element factory %q", factory)
}

type passthrough struct{ *element }
