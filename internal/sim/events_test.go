package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagsim/diagsim/internal/block"
)

func TestEventQueueOrdersByTime(t *testing.T) {
	q := newEventQueue()
	q.ScheduleNew(3, nil)
	q.ScheduleNew(1, nil)
	q.ScheduleNew(2, nil)

	tt, ok := q.PeekTime()
	require.True(t, ok)
	assert.Equal(t, 1.0, tt)

	var times []float64
	for q.Len() > 0 {
		for _, e := range q.PopAt(10) {
			times = append(times, e.time)
		}
	}
	assert.Equal(t, []float64{1, 2, 3}, times)
}

func TestEventQueueCoincidentTicksKeepRegistrationOrder(t *testing.T) {
	fast := block.NewClock(0.5, 0)
	slow := block.NewClock(1.0, 0)

	q := newEventQueue()
	fastSeq := q.ScheduleNew(fast.NextFire(0), fast)
	slowSeq := q.ScheduleNew(slow.NextFire(0), slow)

	due := q.PopAt(0.5)
	require.Len(t, due, 1)
	assert.Same(t, fast, due[0].clock)

	// both clocks land on t=1; the earlier-registered one fires first
	q.Schedule(event{time: fast.NextFire(0.5), clock: fast, seq: fastSeq})
	due = q.PopAt(1.0)
	require.Len(t, due, 2)
	assert.Same(t, fast, due[0].clock)
	assert.Same(t, slow, due[1].clock)
	assert.Equal(t, fastSeq, due[0].seq)
	assert.Equal(t, slowSeq, due[1].seq)
}

func TestEventQueueAbsorbsFloatDrift(t *testing.T) {
	q := newEventQueue()
	q.ScheduleNew(0.30000000000000004, nil)
	q.ScheduleNew(0.7, nil)

	due := q.PopAt(0.3)
	require.Len(t, due, 1, "times within the epsilon window pop together")

	_, ok := q.PeekTime()
	assert.True(t, ok)
	assert.Empty(t, q.PopAt(0.5))
}

func TestEventQueueEmptyPeek(t *testing.T) {
	q := newEventQueue()
	_, ok := q.PeekTime()
	assert.False(t, ok)
	assert.Empty(t, q.PopAt(1))
}
