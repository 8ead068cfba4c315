package blocks

import (
	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/diagram"
)

// Builder assembles a diagram from catalog blocks. Each factory method
// adds the block to the diagram and returns it so wiring can refer to
// it directly. Errors are latched: the first connection or construction
// error sticks and Compile reports it, so call chains need no error
// checks in between.
type Builder struct {
	d   *diagram.Diagram
	err error
}

func NewBuilder(name string) *Builder {
	return &Builder{d: diagram.New(name)}
}

// Diagram returns the underlying diagram.
func (b *Builder) Diagram() *diagram.Diagram { return b.d }

// Err returns the first latched error, if any.
func (b *Builder) Err() error { return b.err }

// Name overrides the auto-assigned name of the most recently added
// block.
func (b *Builder) Name(blk block.Block, name string) *Builder {
	blk.Meta().Name = name
	return b
}

// Connect wires a source endpoint to one or more destinations. Endpoints
// are blocks (port 0, or the whole bundle when the source is wide) or
// explicit Plugs.
func (b *Builder) Connect(src any, dests ...any) *Builder {
	if b.err == nil {
		b.err = b.d.Connect(src, dests...)
	}
	return b
}

// Compile compiles the assembled diagram, reporting any latched
// assembly error first.
func (b *Builder) Compile() (*diagram.Plan, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.d.Compile()
}

func (b *Builder) add(blk block.Block) { b.d.Add(blk) }

// Sources.

func (b *Builder) Constant(value ...float64) *Constant {
	blk := NewConstant(block.Signal(value))
	b.add(blk)
	return blk
}

func (b *Builder) Time() *Time {
	blk := NewTime()
	b.add(blk)
	return blk
}

func (b *Builder) Step(t, off, on float64) *Step {
	blk := NewStep(t, off, on)
	b.add(blk)
	return blk
}

func (b *Builder) Ramp(t, slope float64) *Ramp {
	blk := NewRamp(t, slope)
	b.add(blk)
	return blk
}

func (b *Builder) Waveform(wave string, freq float64) *Waveform {
	blk := NewWaveform(wave, freq)
	b.add(blk)
	return blk
}

func (b *Builder) Piecewise(times, values []float64) *Piecewise {
	blk := NewPiecewise(times, values)
	b.add(blk)
	return blk
}

// Functions.

func (b *Builder) Gain(k float64) *Gain {
	blk := NewGain(k)
	b.add(blk)
	return blk
}

func (b *Builder) Sum(signs string) *Sum {
	blk := NewSum(signs)
	b.add(blk)
	return blk
}

func (b *Builder) Prod(ops string) *Prod {
	blk := NewProd(ops)
	b.add(blk)
	return blk
}

func (b *Builder) Clip(min, max float64) *Clip {
	blk := NewClip(min, max)
	b.add(blk)
	return blk
}

func (b *Builder) Func(nin, nout int, f func(t float64, in []block.Signal) []block.Signal) *Func {
	blk := NewFunc(nin, nout, f)
	b.add(blk)
	return blk
}

func (b *Builder) Mux(nin int) *Mux {
	blk := NewMux(nin)
	b.add(blk)
	return blk
}

func (b *Builder) Demux(nout int) *Demux {
	blk := NewDemux(nout)
	b.add(blk)
	return blk
}

// Transfers.

func (b *Builder) Integrator(x0 ...float64) *Integrator {
	blk := NewIntegrator(block.Signal(x0))
	b.add(blk)
	return blk
}

func (b *Builder) LTISS(a, bm, c [][]float64, x0 ...float64) *LTISS {
	blk := NewLTISS(a, bm, c, block.Signal(x0))
	b.add(blk)
	return blk
}

func (b *Builder) LTISISO(num, den []float64) *LTISS {
	blk, err := NewLTISISO(num, den)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		// keep the chain usable: a placeholder that fails Check
		blk = NewLTISS(nil, nil, nil, nil)
	}
	b.add(blk)
	return blk
}

// Clocked.

func (b *Builder) ZOH(clock *block.Clock, x0 ...float64) *ZOH {
	blk := NewZOH(clock, block.Signal(x0))
	b.add(blk)
	return blk
}

func (b *Builder) DIntegrator(clock *block.Clock, gain float64, x0 ...float64) *DIntegrator {
	blk := NewDIntegrator(clock, gain, block.Signal(x0))
	b.add(blk)
	return blk
}

// Sinks.

func (b *Builder) Scope(nin int, labels ...string) *Scope {
	blk := NewScope(nin, labels...)
	b.add(blk)
	return blk
}

func (b *Builder) Print(format string) *Print {
	blk := NewPrint(format)
	b.add(blk)
	return blk
}

func (b *Builder) Stop(threshold float64) *Stop {
	blk := NewStop(threshold)
	b.add(blk)
	return blk
}

func (b *Builder) Watch() *Watch {
	blk := NewWatch()
	b.add(blk)
	return blk
}

// Connections.

func (b *Builder) Inport(nout int) *Inport {
	blk := NewInport(nout)
	b.add(blk)
	return blk
}

func (b *Builder) Outport(nin int) *Outport {
	blk := NewOutport(nin)
	b.add(blk)
	return blk
}

func (b *Builder) SubSystem(inner *diagram.Diagram) *SubSystem {
	blk := NewSubSystem(inner)
	b.add(blk)
	return blk
}

// Arithmetic sugar. Each helper adds the operator block and wires its
// operands, so y = x1 - x2 reads as b.SubOf(x1, x2).

// AddOf wires a two-input adder fed by x and y.
func (b *Builder) AddOf(x, y any) *Sum {
	s := b.Sum("++")
	b.Connect(x, block.PortOf(s, 0))
	b.Connect(y, block.PortOf(s, 1))
	return s
}

// SubOf wires a subtractor computing x - y.
func (b *Builder) SubOf(x, y any) *Sum {
	s := b.Sum("+-")
	b.Connect(x, block.PortOf(s, 0))
	b.Connect(y, block.PortOf(s, 1))
	return s
}

// MulOf wires a two-input multiplier fed by x and y.
func (b *Builder) MulOf(x, y any) *Prod {
	p := b.Prod("**")
	b.Connect(x, block.PortOf(p, 0))
	b.Connect(y, block.PortOf(p, 1))
	return p
}

// ScaleOf wires a gain of k driven by x.
func (b *Builder) ScaleOf(x any, k float64) *Gain {
	g := b.Gain(k)
	b.Connect(x, g)
	return g
}
