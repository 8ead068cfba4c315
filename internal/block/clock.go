package block

import (
	"fmt"
	"math"
)

// Clock is a periodic source of discrete-time update instants. Clocked
// blocks reference a Clock; the scheduler queries NextFire to bound
// integration steps and applies Next on every owned block at each tick.
type Clock struct {
	Name   string
	Period float64
	Offset float64
}

func NewClock(period, offset float64) *Clock {
	return &Clock{
		Name:   fmt.Sprintf("clock.%gs", period),
		Period: period,
		Offset: offset,
	}
}

// NextFire returns the first tick strictly after t.
func (c *Clock) NextFire(t float64) float64 {
	if t < c.Offset {
		return c.Offset
	}
	k := math.Floor((t-c.Offset)/c.Period + 1e-12)
	next := c.Offset + (k+1)*c.Period
	// guard against accumulated float error placing next at or before t
	for next <= t {
		next += c.Period
	}
	return next
}

func (c *Clock) String() string {
	return c.Name
}
