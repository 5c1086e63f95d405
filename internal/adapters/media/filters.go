package media

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
)

const defaultQueueBuffers = 200

// Queue decouples its upstream from downstream with a worker goroutine.
// leaky: 0 blocks the producer when full, 1 drops the new packet, 2 drops the oldest.
type Queue struct {
	*element

	qmu     sync.Mutex
	cond    *sync.Cond
	q       deque.Deque[*rtp.Packet]
	running bool
	done    chan struct{}
	dropped atomic.Uint64
}

func newQueue(name string) *Queue {
	q := &Queue{element: newElement("queue", name)}
	q.cond = sync.NewCond(&q.qmu)
	q.bind(q)
	return q
}

func (q *Queue) setProperty(key, value string) error {
	switch key {
	case "leaky":
		if _, err := parseLeaky(value); err != nil {
			return err
		}
	case "max-size-buffers":
		if _, err := strconv.Atoi(value); err != nil {
			return err
		}
	}
	return nil
}

func parseLeaky(v string) (int, error) {
	switch v {
	case "0", "no":
		return 0, nil
	case "1", "upstream":
		return 1, nil
	case "2", "downstream":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid leaky mode %q", v)
}

func (q *Queue) limits() (leaky, limit int) {
	leaky, _ = parseLeaky(q.prop("leaky", "0"))
	limit, _ = strconv.Atoi(q.prop("max-size-buffers", strconv.Itoa(defaultQueueBuffers)))
	return leaky, limit
}

func (q *Queue) process(pkt *rtp.Packet) {
	leaky, limit := q.limits()
	q.qmu.Lock()
	defer q.qmu.Unlock()
	if !q.running {
		return
	}
	if limit > 0 {
		for q.q.Len() >= limit {
			switch leaky {
			case 2:
				q.q.PopFront()
				q.dropped.Add(1)
			case 1:
				q.dropped.Add(1)
				return
			default:
				q.cond.Wait()
				if !q.running {
					return
				}
			}
		}
	}
	q.q.PushBack(pkt)
	q.cond.Broadcast()
}

func (q *Queue) start() error {
	q.qmu.Lock()
	q.running = true
	q.done = make(chan struct{})
	q.qmu.Unlock()
	go q.loop()
	return nil
}

func (q *Queue) loop() {
	defer close(q.done)
	for {
		q.qmu.Lock()
		for q.q.Len() == 0 && q.running {
			q.cond.Wait()
		}
		if !q.running {
			q.qmu.Unlock()
			return
		}
		pkt := q.q.PopFront()
		q.cond.Broadcast()
		q.qmu.Unlock()
		q.emit(pkt)
	}
}

func (q *Queue) stop() {
	q.qmu.Lock()
	q.running = false
	q.q.Clear()
	q.cond.Broadcast()
	done := q.done
	q.qmu.Unlock()
	if done != nil {
		<-done
	}
}

// Dropped counts packets discarded by a leaky queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Identity passes packets through and counts them.
type Identity struct {
	*element
	handoffs atomic.Uint64
}

func (i *Identity) process(pkt *rtp.Packet) {
	i.handoffs.Add(1)
	i.emit(pkt)
}

func (i *Identity) Handoffs() uint64 { return i.handoffs.Load() }

// CapsFilter drops packets whose payload type disagrees with "payload=N" in its caps.
type CapsFilter struct {
	*element
	pt atomic.Int32 // -1 when caps carry no payload
}

func newCapsFilter(name string) *CapsFilter {
	c := &CapsFilter{element: newElement("capsfilter", name)}
	c.pt.Store(-1)
	c.bind(c)
	return c
}

func (c *CapsFilter) setProperty(key, value string) error {
	if key != "caps" {
		return nil
	}
	pt := int32(-1)
	for _, field := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok || k != "payload" {
			continue
		}
		v = strings.TrimPrefix(v, "(int)")
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 127 {
			return fmt.Errorf("invalid payload %q", v)
		}
		pt = int32(n)
	}
	c.pt.Store(pt)
	return nil
}

func (c *CapsFilter) process(pkt *rtp.Packet) {
	if pt := c.pt.Load(); pt >= 0 && int32(pkt.PayloadType) != pt {
		return
	}
	c.emit(pkt)
}

// Payloader restamps packets with its own payload type, SSRC, sequence and timestamp base.
type Payloader struct {
	*element

	pmu      sync.Mutex
	pt       uint8
	ssrc     uint32
	seq      uint16
	tsOffset uint32
	started  bool
}

func newPayloader(factory, name string) *Payloader {
	p := &Payloader{element: newElement(factory, name), pt: 96, ssrc: rand.Uint32(), seq: uint16(rand.Uint32())}
	p.bind(p)
	return p
}

func (p *Payloader) setProperty(key, value string) error {
	switch key {
	case "pt":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 127 {
			return fmt.Errorf("invalid payload type %q", value)
		}
		p.pmu.Lock()
		p.pt = uint8(n)
		p.pmu.Unlock()
	case "ssrc":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		p.pmu.Lock()
		p.ssrc = uint32(n)
		p.pmu.Unlock()
	case "config-interval":
		if _, err := strconv.Atoi(value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Payloader) process(pkt *rtp.Packet) {
	p.pmu.Lock()
	if !p.started {
		p.tsOffset = rand.Uint32() - pkt.Timestamp
		p.started = true
	}
	pkt.PayloadType = p.pt
	pkt.SSRC = p.ssrc
	pkt.SequenceNumber = p.seq
	pkt.Timestamp += p.tsOffset
	p.seq++
	p.pmu.Unlock()
	p.emit(pkt)
}

// FakeSink swallows packets.
type FakeSink struct {
	*element
	count atomic.Uint64
}

func (f *FakeSink) process(*rtp.Packet) { f.count.Add(1) }

func (f *FakeSink) Count() uint64 { return f.count.Load() }

// Watchdog passes packets through and logs when none arrived for "timeout" milliseconds while
// playing.
type Watchdog struct {
	*element

	last    atomic.Int64
	stalled atomic.Bool
	quit    chan struct{}
	done    chan struct{}
}

func (w *Watchdog) setProperty(key, value string) error {
	if key == "timeout" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid timeout %q", value)
		}
	}
	return nil
}

func (w *Watchdog) timeout() time.Duration {
	n, err := strconv.Atoi(w.prop("timeout", "1000"))
	if err != nil || n <= 0 {
		n = 1000
	}
	return time.Duration(n) * time.Millisecond
}

func (w *Watchdog) process(pkt *rtp.Packet) {
	w.last.Store(time.Now().UnixNano())
	if w.stalled.CompareAndSwap(true, false) {
		log.Info().Str("module", "media").Str("element", w.name).Msg("data flow resumed")
	}
	w.emit(pkt)
}

func (w *Watchdog) start() error {
	w.last.Store(time.Now().UnixNano())
	w.quit = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop(w.quit, w.done)
	return nil
}

func (w *Watchdog) loop(quit, done chan struct{}) {
	defer close(done)
	timeout := w.timeout()
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case now := <-ticker.C:
			if !w.playing() {
				w.last.Store(now.UnixNano())
				continue
			}
			idle := now.Sub(time.Unix(0, w.last.Load()))
			if idle > timeout && w.stalled.CompareAndSwap(false, true) {
				log.Warn().Str("module", "media").Str("element", w.name).Dur("idle", idle).Msg("no data flowing")
			}
		}
	}
}

func (w *Watchdog) stop() {
	if w.quit == nil {
		return
	}
	close(w.quit)
	<-w.done
	w.quit = nil
}

// Stalled reports whether the last check found no data.
func (w *Watchdog) Stalled() bool { return w.stalled.Load() }
