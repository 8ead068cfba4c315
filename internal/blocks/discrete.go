package blocks

import "github.com/diagsim/diagsim/internal/block"

// ZOH samples its input at the ticks of its clock and holds the sample
// until the next tick. Output between ticks is the held state, so the
// block is a unit delay at the clock rate.
type ZOH struct {
	block.Base
	Clock *block.Clock
	X0    block.Signal

	x block.Signal
}

func NewZOH(clock *block.Clock, x0 block.Signal) *ZOH {
	b := &ZOH{
		Base:  block.NewBase("zoh", block.Clocked, 1, 1),
		Clock: clock,
		X0:    x0.Clone(),
	}
	b.Meta().NDStates = len(x0)
	return b
}

func (b *ZOH) Check() error {
	if b.Clock == nil {
		return block.ConfigErrorf(b.Meta().Name, "clock must not be nil")
	}
	if len(b.X0) == 0 {
		return block.ConfigErrorf(b.Meta().Name, "initial state must not be empty")
	}
	return nil
}

func (b *ZOH) Clone() block.Block {
	cp := *b
	cp.X0 = b.X0.Clone()
	cp.x = nil
	return &cp
}

func (b *ZOH) ClockOf() *block.Clock    { return b.Clock }
func (b *ZOH) InitDState() block.Signal { return b.X0.Clone() }
func (b *ZOH) SetDState(x block.Signal) { b.x = x }

func (b *ZOH) Output(_ float64, _ []block.Signal) []block.Signal {
	return []block.Signal{b.x.Clone()}
}

func (b *ZOH) Next(_ float64, in []block.Signal) block.Signal {
	return in[0].Clone()
}

// DIntegrator accumulates its input at clock ticks,
//
//	x[k+1] = x[k] + gain * T * u[k]
//
// where T is the clock period. Output between ticks is the held state.
type DIntegrator struct {
	block.Base
	Clock *block.Clock
	Gain  float64
	X0    block.Signal

	x block.Signal
}

func NewDIntegrator(clock *block.Clock, gain float64, x0 block.Signal) *DIntegrator {
	b := &DIntegrator{
		Base:  block.NewBase("dintegrator", block.Clocked, 1, 1),
		Clock: clock,
		Gain:  gain,
		X0:    x0.Clone(),
	}
	b.Meta().NDStates = len(x0)
	return b
}

func (b *DIntegrator) Check() error {
	if b.Clock == nil {
		return block.ConfigErrorf(b.Meta().Name, "clock must not be nil")
	}
	if len(b.X0) == 0 {
		return block.ConfigErrorf(b.Meta().Name, "initial state must not be empty")
	}
	return nil
}

func (b *DIntegrator) Clone() block.Block {
	cp := *b
	cp.X0 = b.X0.Clone()
	cp.x = nil
	return &cp
}

func (b *DIntegrator) ClockOf() *block.Clock    { return b.Clock }
func (b *DIntegrator) InitDState() block.Signal { return b.X0.Clone() }
func (b *DIntegrator) SetDState(x block.Signal) { b.x = x }

func (b *DIntegrator) Output(_ float64, _ []block.Signal) []block.Signal {
	return []block.Signal{b.x.Clone()}
}

func (b *DIntegrator) Next(_ float64, in []block.Signal) block.Signal {
	next := b.x.Clone()
	for i, v := range in[0] {
		next[i] += b.Gain * b.Clock.Period * v
	}
	return next
}
