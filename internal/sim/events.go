package sim

import (
	"container/heap"

	"github.com/diagsim/diagsim/internal/block"
)

// timeEps is the window within which two event times are treated as
// the same instant, absorbing float error from repeated tick addition.
const timeEps = 1e-9

// event is one entry in the scheduler's queue: either a clock tick,
// which applies Next to every block on that clock, or a declared
// discontinuity, which only restarts the solver.
type event struct {
	time  float64
	clock *block.Clock // nil for a pure discontinuity
	seq   int          // registration order, stable tie-break
}

// eventQueue is a min-heap ordered by (time, seq). Clock seq values
// follow clock registration order, so coincident ticks always fire in
// the order their blocks were compiled.
type eventQueue struct {
	events  []event
	nextSeq int
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(q)
	return q
}

func (q *eventQueue) Len() int { return len(q.events) }

func (q *eventQueue) Less(i, j int) bool {
	if q.events[i].time != q.events[j].time {
		return q.events[i].time < q.events[j].time
	}
	return q.events[i].seq < q.events[j].seq
}

func (q *eventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

func (q *eventQueue) Push(x any) {
	q.events = append(q.events, x.(event))
}

func (q *eventQueue) Pop() any {
	old := q.events
	n := len(old)
	item := old[n-1]
	q.events = old[:n-1]
	return item
}

// Schedule adds an event, preserving the seq of rescheduled clocks.
func (q *eventQueue) Schedule(e event) {
	heap.Push(q, e)
}

// ScheduleNew adds an event with the next registration sequence.
func (q *eventQueue) ScheduleNew(t float64, c *block.Clock) int {
	seq := q.nextSeq
	q.nextSeq++
	heap.Push(q, event{time: t, clock: c, seq: seq})
	return seq
}

// PeekTime returns the time of the earliest pending event.
func (q *eventQueue) PeekTime() (float64, bool) {
	if len(q.events) == 0 {
		return 0, false
	}
	return q.events[0].time, true
}

// PopAt removes and returns every event within timeEps of t, in seq
// order, so coincident ticks are handled in one scheduler iteration.
func (q *eventQueue) PopAt(t float64) []event {
	var due []event
	for len(q.events) > 0 && q.events[0].time <= t+timeEps {
		due = append(due, heap.Pop(q).(event))
	}
	return due
}
