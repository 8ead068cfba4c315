package blocks

import (
	"math"

	"github.com/diagsim/diagsim/internal/block"
)

// Constant emits a fixed signal forever.
type Constant struct {
	block.Base
	Value block.Signal
}

func NewConstant(value block.Signal) *Constant {
	return &Constant{
		Base:  block.NewBase("constant", block.Source, 0, 1),
		Value: value,
	}
}

func (c *Constant) Check() error {
	if len(c.Value) == 0 {
		return block.ConfigErrorf(c.Meta().Name, "value must not be empty")
	}
	return nil
}

func (c *Constant) Clone() block.Block {
	cp := *c
	cp.Value = c.Value.Clone()
	return &cp
}

func (c *Constant) Output(_ float64, _ []block.Signal) []block.Signal {
	return []block.Signal{c.Value.Clone()}
}

// Time emits the current simulation time.
type Time struct {
	block.Base
}

func NewTime() *Time {
	return &Time{Base: block.NewBase("time", block.Source, 0, 1)}
}

func (t *Time) Clone() block.Block {
	cp := *t
	return &cp
}

func (t *Time) Output(now float64, _ []block.Signal) []block.Signal {
	return []block.Signal{block.Scalar(now)}
}

// Step emits Off until time T, then On. The transition time is declared
// as a discontinuity so an adaptive solver restarts at it instead of
// hunting for it.
type Step struct {
	block.Base
	T   float64
	Off float64
	On  float64
}

func NewStep(t, off, on float64) *Step {
	return &Step{
		Base: block.NewBase("step", block.Source, 0, 1),
		T:    t,
		Off:  off,
		On:   on,
	}
}

func (s *Step) Clone() block.Block {
	cp := *s
	return &cp
}

func (s *Step) Output(t float64, _ []block.Signal) []block.Signal {
	v := s.Off
	if t >= s.T {
		v = s.On
	}
	return []block.Signal{block.Scalar(v)}
}

func (s *Step) Events(t0, tf float64) []float64 {
	if s.T > t0 && s.T <= tf {
		return []float64{s.T}
	}
	return nil
}

// Ramp is zero until time T, then grows with the given slope.
type Ramp struct {
	block.Base
	T     float64
	Slope float64
}

func NewRamp(t, slope float64) *Ramp {
	return &Ramp{
		Base:  block.NewBase("ramp", block.Source, 0, 1),
		T:     t,
		Slope: slope,
	}
}

func (r *Ramp) Clone() block.Block {
	cp := *r
	return &cp
}

func (r *Ramp) Output(t float64, _ []block.Signal) []block.Signal {
	v := 0.0
	if t >= r.T {
		v = r.Slope * (t - r.T)
	}
	return []block.Signal{block.Scalar(v)}
}

func (r *Ramp) Events(t0, tf float64) []float64 {
	if r.T > t0 && r.T <= tf {
		return []float64{r.T}
	}
	return nil
}

// Waveform shapes supported by the Waveform source.
const (
	WaveSine     = "sine"
	WaveSquare   = "square"
	WaveTriangle = "triangle"
)

// Waveform emits a periodic signal. Square and triangle waves declare
// their corner times as discontinuities; a sine wave is smooth and
// declares none.
type Waveform struct {
	block.Base
	Wave      string
	Freq      float64
	Phase     float64 // fraction of a period, [0, 1)
	Amplitude float64
	Offset    float64
	Duty      float64 // square wave high fraction, (0, 1)
}

func NewWaveform(wave string, freq float64) *Waveform {
	return &Waveform{
		Base:      block.NewBase("waveform", block.Source, 0, 1),
		Wave:      wave,
		Freq:      freq,
		Amplitude: 1,
		Duty:      0.5,
	}
}

func (w *Waveform) Check() error {
	switch w.Wave {
	case WaveSine, WaveSquare, WaveTriangle:
	default:
		return block.ConfigErrorf(w.Meta().Name, "unknown wave %q", w.Wave)
	}
	if w.Freq <= 0 {
		return block.ConfigErrorf(w.Meta().Name, "frequency must be positive")
	}
	if w.Duty <= 0 || w.Duty >= 1 {
		return block.ConfigErrorf(w.Meta().Name, "duty must be in (0, 1)")
	}
	return nil
}

func (w *Waveform) Clone() block.Block {
	cp := *w
	return &cp
}

func (w *Waveform) Output(t float64, _ []block.Signal) []block.Signal {
	// phase within the current period, [0, 1)
	p := t*w.Freq - w.Phase
	p -= math.Floor(p)

	var v float64
	switch w.Wave {
	case WaveSine:
		v = math.Sin(2 * math.Pi * p)
	case WaveSquare:
		if p < w.Duty {
			v = 1
		} else {
			v = -1
		}
	case WaveTriangle:
		switch {
		case p < 0.25:
			v = 4 * p
		case p < 0.75:
			v = 2 - 4*p
		default:
			v = 4*p - 4
		}
	}
	return []block.Signal{block.Scalar(v*w.Amplitude + w.Offset)}
}

func (w *Waveform) Events(t0, tf float64) []float64 {
	if w.Wave == WaveSine {
		return nil
	}
	var corners []float64 // phase offsets within one period
	switch w.Wave {
	case WaveSquare:
		corners = []float64{0, w.Duty}
	case WaveTriangle:
		corners = []float64{0.25, 0.75}
	}
	period := 1 / w.Freq
	var out []float64
	first := math.Floor((t0 - w.Phase*period) / period)
	for k := first; ; k++ {
		base := (k + w.Phase) * period
		if base > tf {
			break
		}
		for _, c := range corners {
			t := base + c*period
			if t > t0 && t <= tf {
				out = append(out, t)
			}
		}
	}
	return out
}

// Piecewise interpolates linearly between (time, value) knots, holding
// the first value before the first knot and the last value after the
// last. Knot times are declared as discontinuities.
type Piecewise struct {
	block.Base
	Times  []float64
	Values []float64
}

func NewPiecewise(times, values []float64) *Piecewise {
	return &Piecewise{
		Base:   block.NewBase("piecewise", block.Source, 0, 1),
		Times:  append([]float64(nil), times...),
		Values: append([]float64(nil), values...),
	}
}

func (p *Piecewise) Check() error {
	if len(p.Times) == 0 || len(p.Times) != len(p.Values) {
		return block.ConfigErrorf(p.Meta().Name, "need equal, non-empty time and value lists")
	}
	for i := 1; i < len(p.Times); i++ {
		if p.Times[i] <= p.Times[i-1] {
			return block.ConfigErrorf(p.Meta().Name, "knot times must be strictly increasing")
		}
	}
	return nil
}

func (p *Piecewise) Clone() block.Block {
	cp := *p
	cp.Times = append([]float64(nil), p.Times...)
	cp.Values = append([]float64(nil), p.Values...)
	return &cp
}

func (p *Piecewise) Output(t float64, _ []block.Signal) []block.Signal {
	n := len(p.Times)
	switch {
	case t <= p.Times[0]:
		return []block.Signal{block.Scalar(p.Values[0])}
	case t >= p.Times[n-1]:
		return []block.Signal{block.Scalar(p.Values[n-1])}
	}
	i := 1
	for p.Times[i] < t {
		i++
	}
	f := (t - p.Times[i-1]) / (p.Times[i] - p.Times[i-1])
	v := p.Values[i-1] + f*(p.Values[i]-p.Values[i-1])
	return []block.Signal{block.Scalar(v)}
}

func (p *Piecewise) Events(t0, tf float64) []float64 {
	var out []float64
	for _, t := range p.Times {
		if t > t0 && t <= tf {
			out = append(out, t)
		}
	}
	return out
}
