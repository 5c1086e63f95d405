package session

import (
	"context"

	"github.com/dkeye/Stream/internal/domain"
)

// event is either a gathered local candidate or a barrier. Engine callbacks only ever enqueue;
// the session goroutine is the single writer of the gathered list.
type event struct {
	cand    domain.Candidate
	barrier chan struct{}
}

// Deliver queues a local candidate reported by the engine. Deliveries after Close are dropped.
func (s *Session) Deliver(c domain.Candidate) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.inbox <- event{cand: c}:
	case <-s.done:
	}
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.inbox:
			if ev.barrier != nil {
				close(ev.barrier)
				continue
			}
			s.buf.AddGathered(ev.cand)
			s.notify(ev.cand)
		}
	}
}

// flush returns once every candidate delivered before the call has been recorded.
func (s *Session) flush(ctx context.Context) error {
	ch := make(chan struct{})
	select {
	case s.inbox <- event{barrier: ch}:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ch:
		return nil
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch registers fn for every local candidate of this session, including replays. fn must not
// block: it runs on the session goroutine or on the caller negotiating an answer.
func (s *Session) Watch(fn func(domain.Candidate)) (cancel func()) {
	s.wmu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.wmu.Unlock()
	return func() {
		s.wmu.Lock()
		delete(s.watchers, id)
		s.wmu.Unlock()
	}
}

func (s *Session) notify(c domain.Candidate) {
	s.wmu.Lock()
	fns := make([]func(domain.Candidate), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.wmu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
