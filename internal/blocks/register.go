package blocks

import (
	"fmt"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/registry"
)

func positive(v any) error {
	if v.(float64) <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func positiveInt(v any) error {
	if v.(int) <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

// Register adds the whole block catalog to a registry. SubSystem and
// the user-function block are deliberately absent: one needs an inner
// diagram and the other a Go closure, neither of which a parameter map
// can carry; the schema loader handles subsystems itself.
func Register(r *registry.Registry) {
	r.MustAdd(registry.Type{
		Name: "constant",
		Params: []registry.Param{
			{Name: "value", Kind: registry.Floats},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewConstant(block.Signal(v.Floats("value"))), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "time",
		New: func(v registry.Values) (block.Block, error) {
			return NewTime(), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "step",
		Params: []registry.Param{
			{Name: "t", Kind: registry.Float, Default: 1.0},
			{Name: "off", Kind: registry.Float, Default: 0.0},
			{Name: "on", Kind: registry.Float, Default: 1.0},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewStep(v.Float("t"), v.Float("off"), v.Float("on")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "ramp",
		Params: []registry.Param{
			{Name: "t", Kind: registry.Float, Default: 0.0},
			{Name: "slope", Kind: registry.Float, Default: 1.0},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewRamp(v.Float("t"), v.Float("slope")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "waveform",
		Params: []registry.Param{
			{Name: "wave", Kind: registry.String, Default: WaveSquare},
			{Name: "freq", Kind: registry.Float, Default: 1.0, Validate: positive},
			{Name: "phase", Kind: registry.Float, Default: 0.0},
			{Name: "amplitude", Kind: registry.Float, Default: 1.0},
			{Name: "offset", Kind: registry.Float, Default: 0.0},
			{Name: "duty", Kind: registry.Float, Default: 0.5},
		},
		New: func(v registry.Values) (block.Block, error) {
			w := NewWaveform(v.String("wave"), v.Float("freq"))
			w.Phase = v.Float("phase")
			w.Amplitude = v.Float("amplitude")
			w.Offset = v.Float("offset")
			w.Duty = v.Float("duty")
			return w, nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "piecewise",
		Params: []registry.Param{
			{Name: "times", Kind: registry.Floats},
			{Name: "values", Kind: registry.Floats},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewPiecewise(v.Floats("times"), v.Floats("values")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "gain",
		Params: []registry.Param{
			{Name: "k", Kind: registry.Float},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewGain(v.Float("k")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "sum",
		Params: []registry.Param{
			{Name: "signs", Kind: registry.String, Default: "++"},
			{Name: "angles", Kind: registry.Bool, Default: false},
		},
		New: func(v registry.Values) (block.Block, error) {
			s := NewSum(v.String("signs"))
			s.Angles = v.Bool("angles")
			return s, nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "prod",
		Params: []registry.Param{
			{Name: "ops", Kind: registry.String, Default: "**"},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewProd(v.String("ops")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "clip",
		Params: []registry.Param{
			{Name: "min", Kind: registry.Float, Default: -1.0},
			{Name: "max", Kind: registry.Float, Default: 1.0},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewClip(v.Float("min"), v.Float("max")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "mux",
		Params: []registry.Param{
			{Name: "nin", Kind: registry.Int, Default: 2, Validate: positiveInt},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewMux(v.Int("nin")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "demux",
		Params: []registry.Param{
			{Name: "nout", Kind: registry.Int, Default: 2, Validate: positiveInt},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewDemux(v.Int("nout")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "integrator",
		Params: []registry.Param{
			{Name: "x0", Kind: registry.Floats, Default: []float64{0}},
			{Name: "min", Kind: registry.Floats, Default: []float64{}},
			{Name: "max", Kind: registry.Floats, Default: []float64{}},
		},
		New: func(v registry.Values) (block.Block, error) {
			b := NewIntegrator(block.Signal(v.Floats("x0")))
			if min, max := v.Floats("min"), v.Floats("max"); len(min) > 0 || len(max) > 0 {
				b.Limit(min, max)
			}
			return b, nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "lti_siso",
		Params: []registry.Param{
			{Name: "num", Kind: registry.Floats},
			{Name: "den", Kind: registry.Floats},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewLTISISO(v.Floats("num"), v.Floats("den"))
		},
	})

	r.MustAdd(registry.Type{
		Name: "zoh",
		Params: []registry.Param{
			{Name: "period", Kind: registry.Float, Validate: positive},
			{Name: "offset", Kind: registry.Float, Default: 0.0},
			{Name: "x0", Kind: registry.Floats, Default: []float64{0}},
		},
		New: func(v registry.Values) (block.Block, error) {
			c := block.NewClock(v.Float("period"), v.Float("offset"))
			return NewZOH(c, block.Signal(v.Floats("x0"))), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "dintegrator",
		Params: []registry.Param{
			{Name: "period", Kind: registry.Float, Validate: positive},
			{Name: "offset", Kind: registry.Float, Default: 0.0},
			{Name: "gain", Kind: registry.Float, Default: 1.0},
			{Name: "x0", Kind: registry.Floats, Default: []float64{0}},
		},
		New: func(v registry.Values) (block.Block, error) {
			c := block.NewClock(v.Float("period"), v.Float("offset"))
			return NewDIntegrator(c, v.Float("gain"), block.Signal(v.Floats("x0"))), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "scope",
		Params: []registry.Param{
			{Name: "nin", Kind: registry.Int, Default: 1, Validate: positiveInt},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewScope(v.Int("nin")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "print",
		Params: []registry.Param{
			{Name: "format", Kind: registry.String, Default: "%.6g"},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewPrint(v.String("format")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "stop",
		Params: []registry.Param{
			{Name: "threshold", Kind: registry.Float, Default: 0.0},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewStop(v.Float("threshold")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "watch",
		New: func(v registry.Values) (block.Block, error) {
			return NewWatch(), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "inport",
		Params: []registry.Param{
			{Name: "nout", Kind: registry.Int, Default: 1, Validate: positiveInt},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewInport(v.Int("nout")), nil
		},
	})

	r.MustAdd(registry.Type{
		Name: "outport",
		Params: []registry.Param{
			{Name: "nin", Kind: registry.Int, Default: 1, Validate: positiveInt},
		},
		New: func(v registry.Values) (block.Block, error) {
			return NewOutport(v.Int("nin")), nil
		},
	})
}

// Default returns a registry preloaded with the built-in catalog.
func Default() *registry.Registry {
	r := registry.New()
	Register(r)
	return r
}
