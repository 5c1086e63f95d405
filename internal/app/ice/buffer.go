// Package ice holds per-session ICE candidate state: remote candidates that arrived before the
// transport was ready and local candidates gathered by the engine.
package ice

import (
	"sync"

	"github.com/dkeye/Stream/internal/domain"
	"github.com/gammazero/deque"
)

// Buffer is safe for concurrent use. Order is always insertion order.
type Buffer struct {
	mu       sync.Mutex
	pending  deque.Deque[domain.Candidate]
	gathered []domain.Candidate
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// AddPending queues a remote candidate that cannot be applied yet.
func (b *Buffer) AddPending(c domain.Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.PushBack(c)
}

// DrainPending returns the pending candidates in arrival order. Unless keep is set the queue is
// emptied; shared topologies keep it for a later ICE restart.
func (b *Buffer) DrainPending(keep bool) []domain.Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Candidate, 0, b.pending.Len())
	for i := 0; i < b.pending.Len(); i++ {
		out = append(out, b.pending.At(i))
	}
	if !keep {
		b.pending.Clear()
	}
	return out
}

func (b *Buffer) PendingLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Len()
}

// AddGathered stores a local candidate reported by the engine.
func (b *Buffer) AddGathered(c domain.Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gathered = append(b.gathered, c)
}

// Gathered returns a copy of the local candidates.
func (b *Buffer) Gathered() []domain.Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Candidate(nil), b.gathered...)
}

// TakeGathered returns the local candidates and clears them unless keep is set.
func (b *Buffer) TakeGathered(keep bool) []domain.Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]domain.Candidate(nil), b.gathered...)
	if !keep {
		b.gathered = nil
	}
	return out
}

// Reset drops everything.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.Clear()
	b.gathered = nil
}
