// Package sim drives a compiled plan through time: continuous state is
// integrated between events, discrete state advances at clock ticks,
// and every declared discontinuity restarts the solver so no step ever
// crosses one.
package sim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/diagram"
	"github.com/diagsim/diagsim/internal/integrators"
)

// Scheduler runs one compiled plan. A Scheduler is single-use: block
// state lives in the plan's blocks, so concurrent runs need separate
// diagram copies.
type Scheduler struct {
	plan *diagram.Plan
	opts Options

	ev      *diagram.Evaluator
	solver  integrators.Solver
	targets []watchTarget

	stopped   bool
	stopBlock string
}

func New(p *diagram.Plan, opts Options) (*Scheduler, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	solver, err := integrators.New(opts.Solver)
	if err != nil {
		return nil, err
	}
	if _, ok := solver.(integrators.AdaptiveSolver); opts.Adaptive && !ok {
		return nil, fmt.Errorf("solver %s cannot step adaptively", opts.Solver)
	}

	s := &Scheduler{
		plan:   p,
		opts:   opts,
		ev:     diagram.NewEvaluator(p),
		solver: solver,
	}
	for _, spec := range opts.Watch {
		wt, err := resolveWatch(p, spec)
		if err != nil {
			return nil, err
		}
		s.targets = append(s.targets, wt)
	}
	return s, nil
}

// Run executes the plan for the configured duration and returns the
// recorded Results. Cooperative stops and reaching T are both normal
// completion; cancellation and numerical failures return the partial
// Results alongside the error.
func Run(ctx context.Context, p *diagram.Plan, opts Options) (*Results, error) {
	s, err := New(p, opts)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

func (s *Scheduler) Run(ctx context.Context) (*Results, error) {
	results := &Results{
		StateNames:  s.plan.StateNames,
		DStateNames: s.plan.DStateNames,
	}
	for _, wt := range s.targets {
		results.WatchNames = append(results.WatchNames, wt.name)
	}

	if err := s.start(); err != nil {
		return nil, err
	}

	queue := s.buildQueue()
	x := s.plan.InitialState()
	xd := s.plan.InitialDState()
	t := 0.0
	dt := s.opts.Dt

	deriv := func(tt float64, xx block.Signal) (block.Signal, error) {
		if err := s.ev.Eval(tt, xx, xd, s.opts.CheckFinite); err != nil {
			return nil, err
		}
		return s.ev.Derivatives(tt)
	}

	sample := func(tt float64, xx block.Signal) error {
		if err := s.ev.Eval(tt, xx, xd, s.opts.CheckFinite); err != nil {
			return err
		}
		watched := s.watchValues(tt)
		if err := s.ev.StepSinks(tt); err != nil {
			return err
		}
		results.sample(tt, xx, watched)
		if s.opts.OnSample != nil {
			s.opts.OnSample(tt, watched)
		}
		return nil
	}

	if err := sample(t, x); err != nil {
		return results, s.finish(results, err)
	}

	adaptive, _ := s.solver.(integrators.AdaptiveSolver)

	for t < s.opts.T-timeEps && !s.stopped {
		select {
		case <-ctx.Done():
			return results, s.finish(results, ctx.Err())
		default:
		}

		// never step past the next event or the end of the run
		tStop := s.opts.T
		if et, ok := queue.PeekTime(); ok && et < tStop {
			tStop = et
		}

		h := math.Min(dt, tStop-t)

		if s.opts.Adaptive {
			next, dtNext, ok, err := adaptive.StepAdaptive(deriv, t, x, h, s.opts.Tolerance)
			if err != nil {
				return results, s.finish(results, err)
			}
			if !ok {
				results.Rejected++
				dt = dtNext
				if dt < s.opts.MinStep {
					err := fmt.Errorf("t=%g: step shrank to %g: %w", t, dt, block.ErrStepTooSmall)
					return results, s.finish(results, err)
				}
				continue
			}
			x = next
			dt = math.Min(dtNext, s.opts.Dt)
		} else {
			next, err := s.solver.Step(deriv, t, x, h)
			if err != nil {
				return results, s.finish(results, err)
			}
			x = next
		}

		t += h
		if math.Abs(t-tStop) < timeEps {
			t = tStop
		}
		results.Steps++

		// sample at the accepted step, before any event updates:
		// a sample at an event instant records the clamped pre-event
		// values
		if err := sample(t, x); err != nil {
			return results, s.finish(results, err)
		}

		if due := queue.PopAt(t); len(due) > 0 {
			results.Events++
			for _, e := range due {
				if e.clock == nil {
					continue
				}
				xd = s.ev.NextDState(t, xd, e.clock)
				queue.Schedule(event{time: e.clock.NextFire(t), clock: e.clock, seq: e.seq})
			}
			// restart the solver on the far side of the discontinuity
			dt = s.opts.Dt
		}
	}

	if s.stopped {
		results.Stopped = true
		results.StopBlock = s.stopBlock
		logrus.WithFields(logrus.Fields{
			"diagram": s.plan.Name,
			"time":    t,
			"block":   s.stopBlock,
		}).Info("run stopped by block")
	}

	return results, s.finish(results, nil)
}

// start runs the Starter hooks with the shared run environment.
func (s *Scheduler) start() error {
	env := &block.Env{
		Graphics: s.opts.Graphics && s.opts.Display != nil,
		Display:  s.opts.Display,
		RequestStop: func(name string) {
			s.stopped = true
			s.stopBlock = name
		},
	}
	for _, b := range s.plan.Blocks {
		if st, ok := b.(block.Starter); ok {
			if err := st.Start(env); err != nil {
				return err
			}
		}
	}
	return nil
}

// finish runs the Finisher hooks and renders the display, preserving
// the first error.
func (s *Scheduler) finish(results *Results, runErr error) error {
	for _, b := range s.plan.Blocks {
		if fin, ok := b.(block.Finisher); ok {
			if err := fin.Done(); err != nil && runErr == nil {
				runErr = err
			}
		}
	}
	if s.opts.Graphics && s.opts.Display != nil {
		if err := s.opts.Display.Render(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr == nil {
		logrus.WithFields(logrus.Fields{
			"diagram":  s.plan.Name,
			"samples":  len(results.Time),
			"steps":    results.Steps,
			"rejected": results.Rejected,
			"events":   results.Events,
		}).Info("run complete")
	}
	return runErr
}

// buildQueue seeds the event queue with the first tick of every clock,
// in registration order, followed by every declared discontinuity in
// the run window.
func (s *Scheduler) buildQueue() *eventQueue {
	q := newEventQueue()
	for _, c := range s.plan.Clocks {
		q.ScheduleNew(c.NextFire(0), c)
	}
	times := s.plan.Events(0, s.opts.T)
	sort.Float64s(times)
	for i, t := range times {
		// collapse declared times that coincide within float error
		if i > 0 && t-times[i-1] <= timeEps {
			continue
		}
		q.ScheduleNew(t, nil)
	}
	return q
}

// watchValues evaluates the watched output ports at the current
// instant. Outputs are recomputed from the block's current inputs, so
// the recorded value is exactly what flowed along the wires.
func (s *Scheduler) watchValues(t float64) []float64 {
	if len(s.targets) == 0 {
		return nil
	}
	out := make([]float64, len(s.targets))
	for i, wt := range s.targets {
		vals := wt.b.Output(t, s.ev.Inputs(wt.b))
		if wt.port < len(vals) && len(vals[wt.port]) > 0 {
			out[i] = vals[wt.port][0]
		}
	}
	return out
}
