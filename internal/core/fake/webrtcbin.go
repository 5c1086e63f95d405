package fake

import (
	"errors"
	"strings"
	"sync"

	"github.com/dkeye/Stream/internal/core"
	"github.com/dkeye/Stream/internal/domain"
)

// WebRTCBin records every negotiation call in Events, in order:
// "remote", "answer", "answer+restart", "local", "candidate:<line>".
type WebRTCBin struct {
	*Element
	pads padSet

	bmu          sync.Mutex
	events       []string
	remote       string
	local        string
	added        []domain.Candidate
	transceivers []core.TransceiverHandle
	handler      func(domain.Candidate)
	polls        int
	gathered     bool
	gatherDone   chan struct{}
}

func (b *WebRTCBin) RequestPad(template string) (core.Pad, error) {
	return b.pads.request(b.engine, b, template)
}

func (b *WebRTCBin) ReleaseRequestPad(p core.Pad) {
	p.Unlink()
	b.pads.release(p)
}

func (b *WebRTCBin) Pads() []*Pad { return b.pads.list() }

func (b *WebRTCBin) record(ev string) {
	b.events = append(b.events, ev)
}

func (b *WebRTCBin) SetRemoteDescription(offer string) error {
	if b.engine.FailRemote {
		return errors.New("fake: remote description rejected")
	}
	b.bmu.Lock()
	defer b.bmu.Unlock()
	b.remote = offer
	b.record("remote")
	return nil
}

func (b *WebRTCBin) CreateAnswer(iceRestart bool) (string, error) {
	if b.engine.FailAnswer {
		return "", errors.New("fake: answer failed")
	}
	b.bmu.Lock()
	defer b.bmu.Unlock()
	if iceRestart {
		b.record("answer+restart")
	} else {
		b.record("answer")
	}
	return b.engine.AnswerSDP, nil
}

func (b *WebRTCBin) SetLocalDescription(answer string) error {
	b.bmu.Lock()
	b.local = answer
	b.record("local")
	b.polls = 0
	b.gathered = false
	b.gatherDone = make(chan struct{})
	h := b.handler
	b.bmu.Unlock()

	if h != nil {
		for _, c := range b.engine.Candidates {
			h(c)
		}
	}
	if b.engine.GatherPolls == 0 {
		b.complete()
	}
	return nil
}

func (b *WebRTCBin) complete() {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	if !b.gathered {
		b.gathered = true
		close(b.gatherDone)
	}
}

func (b *WebRTCBin) LocalDescription() string {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	return b.local
}

func (b *WebRTCBin) GatheringState() core.GatheringState {
	b.bmu.Lock()
	if b.gathered {
		b.bmu.Unlock()
		return core.GatheringComplete
	}
	if b.local == "" {
		b.bmu.Unlock()
		return core.GatheringNew
	}
	b.polls++
	done := b.polls > b.engine.GatherPolls
	b.bmu.Unlock()
	if done {
		b.complete()
		return core.GatheringComplete
	}
	return core.GatheringInProgress
}

func (b *WebRTCBin) GatheringComplete() <-chan struct{} {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	return b.gatherDone
}

func (b *WebRTCBin) AddICECandidate(c domain.Candidate) error {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	if b.remote == "" {
		return errors.New("fake: remote description is not set")
	}
	b.added = append(b.added, c)
	b.record("candidate:" + c.Candidate)
	return nil
}

func (b *WebRTCBin) OnICECandidate(fn func(domain.Candidate)) {
	b.bmu.Lock()
	b.handler = fn
	b.bmu.Unlock()
}

// Emit runs the installed candidate handler as the engine would.
func (b *WebRTCBin) Emit(c domain.Candidate) {
	b.bmu.Lock()
	h := b.handler
	b.bmu.Unlock()
	if h != nil {
		h(c)
	}
}

func (b *WebRTCBin) AddTransceiver(caps string) (core.TransceiverHandle, error) {
	if !strings.HasPrefix(caps, "application/x-rtp") {
		return 0, errors.New("fake: bad transceiver caps")
	}
	h := b.engine.nextHandle()
	b.bmu.Lock()
	b.transceivers = append(b.transceivers, h)
	b.bmu.Unlock()
	return h, nil
}

func (b *WebRTCBin) Transceivers() []core.TransceiverHandle {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	return append([]core.TransceiverHandle(nil), b.transceivers...)
}

func (b *WebRTCBin) Events() []string {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	return append([]string(nil), b.events...)
}

func (b *WebRTCBin) Added() []domain.Candidate {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	return append([]domain.Candidate(nil), b.added...)
}

func (b *WebRTCBin) Remote() string {
	b.bmu.Lock()
	defer b.bmu.Unlock()
	return b.remote
}
