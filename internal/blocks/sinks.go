package blocks

import (
	"fmt"
	"io"
	"os"

	"github.com/diagsim/diagsim/internal/block"
)

// Scope records its inputs and, when graphics are enabled, traces them
// through the run's display service. With graphics off it is inert; the
// recorded series stay available either way through Series.
type Scope struct {
	block.Base
	Labels []string

	times   []float64
	series  [][]float64
	tracers []block.Tracer
}

func NewScope(nin int, labels ...string) *Scope {
	return &Scope{
		Base:   block.NewBase("scope", block.Sink, nin, 0),
		Labels: append([]string(nil), labels...),
	}
}

func (s *Scope) Check() error {
	if len(s.Labels) != 0 && len(s.Labels) != s.Meta().NIn {
		return block.ConfigErrorf(s.Meta().Name, "need %d labels, got %d", s.Meta().NIn, len(s.Labels))
	}
	return nil
}

func (s *Scope) Clone() block.Block {
	cp := *s
	cp.Labels = append([]string(nil), s.Labels...)
	cp.times = nil
	cp.series = nil
	cp.tracers = nil
	return &cp
}

func (s *Scope) Output(_ float64, _ []block.Signal) []block.Signal { return nil }

func (s *Scope) label(i int) string {
	if i < len(s.Labels) {
		return s.Labels[i]
	}
	return fmt.Sprintf("in[%d]", i)
}

func (s *Scope) Start(env *block.Env) error {
	s.times = nil
	s.series = make([][]float64, s.Meta().NIn)
	s.tracers = nil
	if env.Graphics && env.Display != nil {
		for i := 0; i < s.Meta().NIn; i++ {
			s.tracers = append(s.tracers, env.Display.Trace(s.Meta().Name, s.label(i)))
		}
	}
	return nil
}

func (s *Scope) Step(t float64, in []block.Signal) error {
	s.times = append(s.times, t)
	for i, sig := range in {
		v := 0.0
		if len(sig) > 0 {
			v = sig[0]
		}
		s.series[i] = append(s.series[i], v)
		if s.tracers != nil {
			s.tracers[i].Sample(t, v)
		}
	}
	return nil
}

// Series returns the recorded times and per-input values.
func (s *Scope) Series() (times []float64, values [][]float64) {
	return s.times, s.series
}

// Print writes every sample of its input to a writer, one line per
// step. The writer defaults to standard output.
type Print struct {
	block.Base
	Format string
	W      io.Writer
}

func NewPrint(format string) *Print {
	if format == "" {
		format = "%.6g"
	}
	return &Print{
		Base:   block.NewBase("print", block.Sink, 1, 0),
		Format: format,
		W:      os.Stdout,
	}
}

func (p *Print) Clone() block.Block {
	cp := *p
	return &cp
}

func (p *Print) Output(_ float64, _ []block.Signal) []block.Signal { return nil }

func (p *Print) Step(t float64, in []block.Signal) error {
	fmt.Fprintf(p.W, "t=%-11.4g", t)
	for i, v := range in[0] {
		if i > 0 {
			fmt.Fprint(p.W, " ")
		}
		fmt.Fprintf(p.W, " "+p.Format, v)
	}
	fmt.Fprintln(p.W)
	return nil
}

// Stop requests cooperative termination of the run when its input rises
// above the threshold. The request takes effect after the current
// evaluation completes; it is not an error.
type Stop struct {
	block.Base
	Threshold float64

	stop func(string)
}

func NewStop(threshold float64) *Stop {
	return &Stop{
		Base:      block.NewBase("stop", block.Sink, 1, 0),
		Threshold: threshold,
	}
}

func (s *Stop) Clone() block.Block {
	cp := *s
	cp.stop = nil
	return &cp
}

func (s *Stop) Output(_ float64, _ []block.Signal) []block.Signal { return nil }

func (s *Stop) Start(env *block.Env) error {
	s.stop = env.RequestStop
	return nil
}

func (s *Stop) Step(_ float64, in []block.Signal) error {
	if len(in[0]) > 0 && in[0][0] > s.Threshold && s.stop != nil {
		s.stop(s.Meta().Name)
	}
	return nil
}

// Watch records the full vector arriving at its input so tests and the
// CLI can inspect a signal without attaching a display.
type Watch struct {
	block.Base

	times  []float64
	values []block.Signal
}

func NewWatch() *Watch {
	return &Watch{Base: block.NewBase("watch", block.Sink, 1, 0)}
}

func (w *Watch) Clone() block.Block {
	cp := *w
	cp.times = nil
	cp.values = nil
	return &cp
}

func (w *Watch) Output(_ float64, _ []block.Signal) []block.Signal { return nil }

func (w *Watch) Start(_ *block.Env) error {
	w.times = nil
	w.values = nil
	return nil
}

func (w *Watch) Step(t float64, in []block.Signal) error {
	w.times = append(w.times, t)
	w.values = append(w.values, in[0].Clone())
	return nil
}

// Series returns the recorded times and values.
func (w *Watch) Series() (times []float64, values []block.Signal) {
	return w.times, w.values
}
