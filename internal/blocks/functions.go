package blocks

import (
	"math"
	"strings"

	"github.com/diagsim/diagsim/internal/block"
)

// Gain multiplies its input elementwise by a scalar.
type Gain struct {
	block.Base
	K float64
}

func NewGain(k float64) *Gain {
	return &Gain{Base: block.NewBase("gain", block.Function, 1, 1), K: k}
}

func (g *Gain) Clone() block.Block {
	cp := *g
	return &cp
}

func (g *Gain) Output(_ float64, in []block.Signal) []block.Signal {
	return []block.Signal{in[0].Scale(g.K)}
}

// Sum adds its inputs elementwise, one input per character in Signs:
// '+' adds, '-' subtracts. All inputs must share a width. With Angles
// set the result is wrapped into [-pi, pi), for summing headings.
type Sum struct {
	block.Base
	Signs  string
	Angles bool
}

func NewSum(signs string) *Sum {
	return &Sum{
		Base:  block.NewBase("sum", block.Function, len(signs), 1),
		Signs: signs,
	}
}

func (s *Sum) Check() error {
	if len(s.Signs) == 0 {
		return block.ConfigErrorf(s.Meta().Name, "signs must not be empty")
	}
	if strings.Trim(s.Signs, "+-") != "" {
		return block.ConfigErrorf(s.Meta().Name, "signs %q may only contain + and -", s.Signs)
	}
	return nil
}

func (s *Sum) Clone() block.Block {
	cp := *s
	return &cp
}

func (s *Sum) Output(_ float64, in []block.Signal) []block.Signal {
	out := make(block.Signal, len(in[0]))
	for i, sign := range s.Signs {
		for j, v := range in[i] {
			if sign == '-' {
				out[j] -= v
			} else {
				out[j] += v
			}
		}
	}
	if s.Angles {
		for j, v := range out {
			out[j] = wrapPi(v)
		}
	}
	return []block.Signal{out}
}

func wrapPi(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

// Prod multiplies and divides its inputs elementwise, one input per
// character in Ops: '*' multiplies, '/' divides.
type Prod struct {
	block.Base
	Ops string
}

func NewProd(ops string) *Prod {
	return &Prod{
		Base: block.NewBase("prod", block.Function, len(ops), 1),
		Ops:  ops,
	}
}

func (p *Prod) Check() error {
	if len(p.Ops) == 0 {
		return block.ConfigErrorf(p.Meta().Name, "ops must not be empty")
	}
	if strings.Trim(p.Ops, "*/") != "" {
		return block.ConfigErrorf(p.Meta().Name, "ops %q may only contain * and /", p.Ops)
	}
	return nil
}

func (p *Prod) Clone() block.Block {
	cp := *p
	return &cp
}

func (p *Prod) Output(_ float64, in []block.Signal) []block.Signal {
	out := make(block.Signal, len(in[0]))
	for i := range out {
		out[i] = 1
	}
	for i, op := range p.Ops {
		for j, v := range in[i] {
			if op == '/' {
				out[j] /= v
			} else {
				out[j] *= v
			}
		}
	}
	return []block.Signal{out}
}

// Clip saturates its input elementwise to [Min, Max].
type Clip struct {
	block.Base
	Min float64
	Max float64
}

func NewClip(min, max float64) *Clip {
	return &Clip{
		Base: block.NewBase("clip", block.Function, 1, 1),
		Min:  min,
		Max:  max,
	}
}

func (c *Clip) Check() error {
	if c.Min >= c.Max {
		return block.ConfigErrorf(c.Meta().Name, "min %g must be below max %g", c.Min, c.Max)
	}
	return nil
}

func (c *Clip) Clone() block.Block {
	cp := *c
	return &cp
}

func (c *Clip) Output(_ float64, in []block.Signal) []block.Signal {
	out := in[0].Clone()
	for i, v := range out {
		out[i] = math.Min(math.Max(v, c.Min), c.Max)
	}
	return []block.Signal{out}
}

// Func applies an arbitrary user function to its inputs. The function
// must be pure: the scheduler may call it at trial times an adaptive
// solver later rejects.
type Func struct {
	block.Base
	F func(t float64, in []block.Signal) []block.Signal
}

func NewFunc(nin, nout int, f func(t float64, in []block.Signal) []block.Signal) *Func {
	return &Func{Base: block.NewBase("func", block.Function, nin, nout), F: f}
}

func (f *Func) Check() error {
	if f.F == nil {
		return block.ConfigErrorf(f.Meta().Name, "function must not be nil")
	}
	return nil
}

func (f *Func) Clone() block.Block {
	cp := *f
	return &cp
}

func (f *Func) Output(t float64, in []block.Signal) []block.Signal {
	return f.F(t, in)
}

// Mux concatenates its inputs into one vector output.
type Mux struct {
	block.Base
}

func NewMux(nin int) *Mux {
	return &Mux{Base: block.NewBase("mux", block.Function, nin, 1)}
}

func (m *Mux) Clone() block.Block {
	cp := *m
	return &cp
}

func (m *Mux) Output(_ float64, in []block.Signal) []block.Signal {
	var out block.Signal
	for _, s := range in {
		out = append(out, s...)
	}
	return []block.Signal{out}
}

// Demux splits a vector input into scalar outputs, one per element.
// The input width must match the declared output count; compile
// rejects anything else.
type Demux struct {
	block.Base
}

func NewDemux(nout int) *Demux {
	return &Demux{Base: block.NewBase("demux", block.Function, 1, nout)}
}

func (d *Demux) Clone() block.Block {
	cp := *d
	return &cp
}

func (d *Demux) CheckInput(_ int, width int) error {
	if nout := d.Meta().NOut; width != nout {
		return block.ConfigErrorf(d.Meta().Name, "input width %d does not match %d outputs", width, nout)
	}
	return nil
}

func (d *Demux) Output(_ float64, in []block.Signal) []block.Signal {
	nout := d.Meta().NOut
	out := make([]block.Signal, nout)
	for i := range out {
		if i < len(in[0]) {
			out[i] = block.Scalar(in[0][i])
		} else {
			out[i] = block.Scalar(0)
		}
	}
	return out
}
