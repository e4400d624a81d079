package sart

import (
	"cmp"
	"container/heap"
	"context"
	"slices"
	"sync"
	"time"
)

// Tag groups timers so they can be cancelled together.
type Tag string

// TimerID identifies a scheduled callback.
type TimerID uint64

type timer struct {
	id    TimerID
	at    time.Time
	seq   uint64
	tag   Tag
	name  string
	fn    func()
	index int
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
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

// Loop is a single-threaded timer queue. Every scheduled callback and every
// function passed to Do runs while holding the loop lock, so state touched
// only from inside the loop has exactly one writer at a time.
//
// A loop is driven either in real time by Run or on a virtual clock by
// Advance. Schedule, Cancel, CancelTag and CancelAll must be called from
// inside a callback or a Do function.
type Loop struct {
	mu      sync.Mutex
	queue   timerQueue
	byID    map[TimerID]*timer
	nextID  TimerID
	seq     uint64
	manual  bool
	virtual time.Time
	wake    chan struct{}
}

// NewLoop returns a loop that follows the wall clock. Call Run to drive it.
func NewLoop() *Loop {
	return &Loop{
		byID: make(map[TimerID]*timer),
		wake: make(chan struct{}, 1),
	}
}

// NewManualLoop returns a loop on a virtual clock starting at start.
// Time only moves when Advance is called.
func NewManualLoop(start time.Time) *Loop {
	l := NewLoop()
	l.manual = true
	l.virtual = start
	return l
}

// Now reports the loop's current time.
func (l *Loop) Now() time.Time {
	if l.manual {
		return l.virtual
	}
	return time.Now()
}

// Manual reports whether the loop runs on a virtual clock.
func (l *Loop) Manual() bool {
	return l.manual
}

// Do runs fn on the loop.
func (l *Loop) Do(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// Schedule arranges for fn to run after delay.
func (l *Loop) Schedule(delay time.Duration, tag Tag, name string, fn func()) TimerID {
	if delay < 0 {
		delay = 0
	}
	l.nextID++
	l.seq++
	t := &timer{
		id:   l.nextID,
		at:   l.Now().Add(delay),
		seq:  l.seq,
		tag:  tag,
		name: name,
		fn:   fn,
	}
	heap.Push(&l.queue, t)
	l.byID[t.id] = t

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return t.id
}

// Cancel removes a pending timer. It reports whether the timer was pending.
func (l *Loop) Cancel(id TimerID) bool {
	t, ok := l.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&l.queue, t.index)
	delete(l.byID, id)
	return true
}

// CancelTag removes every pending timer carrying tag and returns how many
// were removed.
func (l *Loop) CancelTag(tag Tag) int {
	n := 0
	for id, t := range l.byID {
		if t.tag == tag {
			heap.Remove(&l.queue, t.index)
			delete(l.byID, id)
			n++
		}
	}
	return n
}

// CancelAll empties the queue.
func (l *Loop) CancelAll() int {
	n := len(l.queue)
	for i := range l.queue {
		l.queue[i] = nil
	}
	l.queue = l.queue[:0]
	clear(l.byID)
	return n
}

// Pending returns the number of queued timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// PendingTag returns the number of queued timers carrying tag.
func (l *Loop) PendingTag(tag Tag) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, t := range l.byID {
		if t.tag == tag {
			n++
		}
	}
	return n
}

// PendingNames lists the names of queued timers in firing order.
func (l *Loop) PendingNames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	timers := slices.Clone([]*timer(l.queue))
	slices.SortFunc(timers, func(a, b *timer) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	names := make([]string, len(timers))
	for i, t := range timers {
		names[i] = t.name
	}
	return names
}

// Advance moves a manual loop's clock forward by d, firing every timer that
// falls due on the way in order. Timers scheduled by those callbacks fire
// too if they fall inside the window.
func (l *Loop) Advance(d time.Duration) {
	if !l.manual {
		panic("sart: Advance called on a real-time loop")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	target := l.virtual.Add(d)
	for len(l.queue) > 0 && !l.queue[0].at.After(target) {
		t := l.pop()
		l.virtual = t.at
		t.fn()
	}
	l.virtual = target
}

// Run fires timers in real time until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if l.manual {
		panic("sart: Run called on a manual loop")
	}
	for {
		l.mu.Lock()
		now := time.Now()
		for len(l.queue) > 0 && !l.queue[0].at.After(now) {
			l.pop().fn()
		}
		wait := time.Duration(-1)
		if len(l.queue) > 0 {
			wait = time.Until(l.queue[0].at)
		}
		l.mu.Unlock()

		var fire <-chan time.Time
		var tm *time.Timer
		if wait >= 0 {
			tm = time.NewTimer(wait)
			fire = tm.C
		}

		select {
		case <-ctx.Done():
			if tm != nil {
				tm.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-fire:
		}
		if tm != nil {
			tm.Stop()
		}
	}
}

func (l *Loop) pop() *timer {
	t := heap.Pop(&l.queue).(*timer)
	delete(l.byID, t.id)
	return t
}
