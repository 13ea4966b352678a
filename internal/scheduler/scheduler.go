// Package scheduler is the timer queue every simulated delay goes through: message transit,
// processing cues and driver ticks. Timers fire in due-time order; ties fire in the order
// they were scheduled.
//
// The scheduler is not safe for concurrent use. Callbacks run synchronously inside
// Advance and may schedule or stop other timers.
package scheduler

import (
	"container/heap"
	"time"

	"github.com/aretw0/distsim/internal/clock"
)

// Timer is a scheduled callback.
type Timer struct {
	at    time.Duration
	seq   uint64
	fn    func()
	index int // position in the queue, -1 once fired or stopped
	s     *Scheduler
}

// At returns the simulated time the timer fires at.
func (t *Timer) At() time.Duration { return t.at }

// Active reports whether the timer is still waiting to fire.
func (t *Timer) Active() bool { return t.index >= 0 }

// Stop prevents the timer from firing. It reports whether the call stopped the timer;
// stopping a fired or stopped timer is a no-op.
func (t *Timer) Stop() bool {
	if t == nil || t.index < 0 {
		return false
	}
	heap.Remove(&t.s.queue, t.index)
	t.index = -1
	return true
}

// Scheduler orders timers on a virtual clock.
type Scheduler struct {
	clock *clock.Virtual
	queue timerQueue
	seq   uint64
}

// New returns a scheduler driving c. A nil clock gets a fresh one.
func New(c *clock.Virtual) *Scheduler {
	if c == nil {
		c = clock.NewVirtual()
	}
	return &Scheduler{clock: c}
}

// Now returns the current simulated time.
func (s *Scheduler) Now() time.Duration { return s.clock.Now() }

// After schedules fn to run once d has elapsed. Non-positive delays fire on the next
// Advance, never synchronously.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &Timer{at: s.clock.Now() + d, seq: s.seq, fn: fn, s: s}
	heap.Push(&s.queue, t)
	return t
}

// Pending returns the number of timers waiting to fire.
func (s *Scheduler) Pending() int { return len(s.queue) }

// NextAt returns when the earliest pending timer fires.
func (s *Scheduler) NextAt() (time.Duration, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].at, true
}

// Advance moves simulated time forward by d, firing every timer that falls due on the way,
// including timers scheduled by callbacks. It returns the number of timers fired.
func (s *Scheduler) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	return s.AdvanceTo(s.clock.Now() + d)
}

// AdvanceTo moves simulated time forward to target. Targets in the past only fire due timers.
func (s *Scheduler) AdvanceTo(target time.Duration) int {
	fired := 0
	for len(s.queue) > 0 && s.queue[0].at <= target {
		t := heap.Pop(&s.queue).(*Timer)
		s.clock.Set(t.at)
		fired++
		t.fn()
	}
	s.clock.Set(target)
	return fired
}

// Step jumps to the earliest pending due time and fires every timer due then.
// It reports false when nothing is pending.
func (s *Scheduler) Step() (int, bool) {
	at, ok := s.NextAt()
	if !ok {
		return 0, false
	}
	return s.AdvanceTo(at), true
}

// Clear stops every pending timer. The clock keeps its time.
func (s *Scheduler) Clear() {
	for _, t := range s.queue {
		t.index = -1
	}
	s.queue = nil
}

// Reset stops every pending timer and rewinds the clock to zero.
func (s *Scheduler) Reset() {
	s.Clear()
	s.clock.Reset()
}

type timerQueue []*Timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
