package blocks

import (
	"math"

	"github.com/diagsim/diagsim/internal/block"
)

// Integrator integrates its input, optionally saturating each state
// element to [Min[i], Max[i]]. Output is the state vector; with limits
// the derivative is forced to zero while a saturated element would be
// driven further out of range.
type Integrator struct {
	block.Base
	X0  block.Signal
	Min []float64
	Max []float64

	x block.Signal
}

func NewIntegrator(x0 block.Signal) *Integrator {
	b := &Integrator{
		Base: block.NewBase("integrator", block.Transfer, 1, 1),
		X0:   x0.Clone(),
	}
	b.Meta().NStates = len(x0)
	return b
}

// Limit installs per-element saturation bounds.
func (b *Integrator) Limit(min, max []float64) *Integrator {
	b.Min = append([]float64(nil), min...)
	b.Max = append([]float64(nil), max...)
	return b
}

func (b *Integrator) Check() error {
	if len(b.X0) == 0 {
		return block.ConfigErrorf(b.Meta().Name, "initial state must not be empty")
	}
	if b.Min != nil || b.Max != nil {
		if len(b.Min) != len(b.X0) || len(b.Max) != len(b.X0) {
			return block.ConfigErrorf(b.Meta().Name, "limits must match state dimension %d", len(b.X0))
		}
		for i := range b.Min {
			if b.Min[i] >= b.Max[i] {
				return block.ConfigErrorf(b.Meta().Name, "limit %d: min %g must be below max %g", i, b.Min[i], b.Max[i])
			}
		}
	}
	return nil
}

func (b *Integrator) Clone() block.Block {
	cp := *b
	cp.X0 = b.X0.Clone()
	cp.Min = append([]float64(nil), b.Min...)
	cp.Max = append([]float64(nil), b.Max...)
	cp.x = nil
	return &cp
}

func (b *Integrator) InitState() block.Signal { return b.X0.Clone() }
func (b *Integrator) SetState(x block.Signal) { b.x = x }

func (b *Integrator) Output(_ float64, _ []block.Signal) []block.Signal {
	out := b.x.Clone()
	if b.Min != nil {
		for i, v := range out {
			out[i] = math.Min(math.Max(v, b.Min[i]), b.Max[i])
		}
	}
	return []block.Signal{out}
}

func (b *Integrator) Derivative(_ float64, in []block.Signal) block.Signal {
	xd := in[0].Clone()
	if b.Min != nil {
		for i := range xd {
			if (b.x[i] <= b.Min[i] && xd[i] < 0) || (b.x[i] >= b.Max[i] && xd[i] > 0) {
				xd[i] = 0
			}
		}
	}
	return xd
}

// LTISS is a continuous-time linear system in state-space form,
//
//	dx/dt = A x + B u,  y = C x
//
// with one scalar input port per column of B and one scalar output port
// per row of C. Feedthrough is deliberately absent so the outputs depend
// only on state and the block can sit inside feedback loops.
type LTISS struct {
	block.Base
	A  [][]float64
	B  [][]float64
	C  [][]float64
	X0 block.Signal

	x block.Signal
}

func NewLTISS(a, b, c [][]float64, x0 block.Signal) *LTISS {
	nin, nout := 0, len(c)
	if len(b) > 0 {
		nin = len(b[0])
	}
	blk := &LTISS{
		Base: block.NewBase("lti_ss", block.Transfer, nin, nout),
		A:    copyMatrix(a),
		B:    copyMatrix(b),
		C:    copyMatrix(c),
		X0:   x0.Clone(),
	}
	blk.Meta().NStates = len(a)
	return blk
}

func (b *LTISS) Check() error {
	n := len(b.A)
	if n == 0 {
		return block.ConfigErrorf(b.Meta().Name, "A must not be empty")
	}
	for _, row := range b.A {
		if len(row) != n {
			return block.ConfigErrorf(b.Meta().Name, "A must be square")
		}
	}
	if len(b.B) != n {
		return block.ConfigErrorf(b.Meta().Name, "B must have %d rows", n)
	}
	for _, row := range b.B {
		if len(row) != b.Meta().NIn {
			return block.ConfigErrorf(b.Meta().Name, "B rows must have %d columns", b.Meta().NIn)
		}
	}
	for _, row := range b.C {
		if len(row) != n {
			return block.ConfigErrorf(b.Meta().Name, "C rows must have %d columns", n)
		}
	}
	if len(b.X0) != n {
		return block.ConfigErrorf(b.Meta().Name, "initial state must have %d elements", n)
	}
	return nil
}

func (b *LTISS) Clone() block.Block {
	cp := *b
	cp.A = copyMatrix(b.A)
	cp.B = copyMatrix(b.B)
	cp.C = copyMatrix(b.C)
	cp.X0 = b.X0.Clone()
	cp.x = nil
	return &cp
}

func (b *LTISS) InitState() block.Signal { return b.X0.Clone() }
func (b *LTISS) SetState(x block.Signal) { b.x = x }

func (b *LTISS) Output(_ float64, _ []block.Signal) []block.Signal {
	out := make([]block.Signal, len(b.C))
	for i, row := range b.C {
		v := 0.0
		for j, c := range row {
			v += c * b.x[j]
		}
		out[i] = block.Scalar(v)
	}
	return out
}

func (b *LTISS) Derivative(_ float64, in []block.Signal) block.Signal {
	n := len(b.A)
	xd := make(block.Signal, n)
	for i := 0; i < n; i++ {
		v := 0.0
		for j, a := range b.A[i] {
			v += a * b.x[j]
		}
		for j, bc := range b.B[i] {
			v += bc * in[j][0]
		}
		xd[i] = v
	}
	return xd
}

// NewLTISISO builds a single-input single-output transfer function
// N(s)/D(s) as an LTISS block in controller canonical form. The
// numerator degree must be below the denominator degree.
func NewLTISISO(num, den []float64) (*LTISS, error) {
	if len(den) < 2 {
		return nil, block.ConfigErrorf("lti_siso", "denominator degree must be at least 1")
	}
	if len(num) == 0 || len(num) >= len(den) {
		return nil, block.ConfigErrorf("lti_siso", "numerator degree must be below denominator degree")
	}
	if den[0] == 0 {
		return nil, block.ConfigErrorf("lti_siso", "leading denominator coefficient must be nonzero")
	}

	n := len(den) - 1
	a := make([]float64, n) // monic denominator coefficients, descending
	for i := 0; i < n; i++ {
		a[i] = den[i+1] / den[0]
	}
	c := make([]float64, n) // numerator padded to degree n-1, descending
	for i, v := range num {
		c[n-len(num)+i] = v / den[0]
	}

	A := make([][]float64, n)
	B := make([][]float64, n)
	for i := range A {
		A[i] = make([]float64, n)
		B[i] = []float64{0}
	}
	copy(A[0], a)
	for i := range A[0] {
		A[0][i] = -A[0][i]
	}
	for i := 1; i < n; i++ {
		A[i][i-1] = 1
	}
	B[0][0] = 1

	blk := NewLTISS(A, B, [][]float64{c}, make(block.Signal, n))
	blk.Meta().Type = "lti_siso"
	return blk, nil
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
