// Package anim sequences the commit-replay animations: a virtual-clock
// scheduler plus the animator that resolves commit file changes to visible
// node positions and times projectile transitions toward them.
//
// Nothing in this package owns a real clock. The host render loop advances
// the [Scheduler] with explicit tick(dt) calls, which makes cancellation and
// ordering deterministic and unit-testable.
package anim

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// timer is one scheduled callback. Cancellation is lazy: cancelled timers
// stay in the heap and are skipped when they surface.
type timer struct {
	id        uuid.UUID
	at        time.Duration // virtual deadline
	seq       uint64        // insertion order, breaks deadline ties
	fn        func()
	cancelled bool
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)        { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Scheduler is a virtual clock with a priority queue of (deadline, callback)
// pairs. Callbacks fire in deadline order (insertion order on ties) as the
// clock is advanced by [Scheduler.Tick]. Not safe for concurrent use — it is
// driven by the single cooperative host loop.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue timerHeap
	index map[uuid.UUID]*timer
}

// NewScheduler creates a scheduler with its virtual clock at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{index: make(map[uuid.UUID]*timer)}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration { return s.now }

// After schedules fn to fire once d has elapsed on the virtual clock and
// returns a handle for cancellation. A non-positive delay fires on the next
// tick.
func (s *Scheduler) After(d time.Duration, fn func()) uuid.UUID {
	if d < 0 {
		d = 0
	}
	t := &timer{id: uuid.New(), at: s.now + d, seq: s.seq, fn: fn}
	s.seq++
	heap.Push(&s.queue, t)
	s.index[t.id] = t
	return t.id
}

// Cancel revokes a pending timer. It reports whether the handle was still
// pending; cancelling an already-fired or unknown handle is a harmless no-op.
func (s *Scheduler) Cancel(id uuid.UUID) bool {
	t, ok := s.index[id]
	if !ok {
		return false
	}
	t.cancelled = true
	delete(s.index, id)
	return true
}

// CancelAll revokes every pending timer. Used when the animation layer is
// deactivated so no callback later mutates a discarded model.
func (s *Scheduler) CancelAll() {
	for id := range s.index {
		s.index[id].cancelled = true
		delete(s.index, id)
	}
}

// Pending returns the number of live (non-cancelled) timers.
func (s *Scheduler) Pending() int { return len(s.index) }

// Tick advances the virtual clock by dt and fires every timer whose deadline
// has passed, in deadline order. It returns the number of callbacks fired.
// Callbacks may schedule new timers; timers scheduled for the already-elapsed
// window fire within the same tick.
func (s *Scheduler) Tick(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	s.now += dt
	fired := 0
	for len(s.queue) > 0 && s.queue[0].at <= s.now {
		t := heap.Pop(&s.queue).(*timer)
		if t.cancelled {
			continue
		}
		delete(s.index, t.id)
		t.fn()
		fired++
	}
	return fired
}
