package sim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/blocks"
	"github.com/diagsim/diagsim/internal/diagram"
)

func compile(t *testing.T, b *blocks.Builder) *diagram.Plan {
	t.Helper()
	plan, err := b.Compile()
	require.NoError(t, err)
	return plan
}

func sampleAt(t *testing.T, r *Results, name string, at float64) float64 {
	t.Helper()
	series, ok := r.Series(name)
	require.True(t, ok, "series %s", name)
	for i, tt := range r.Time {
		if math.Abs(tt-at) < 1e-9 {
			return series[i]
		}
	}
	t.Fatalf("no sample at t=%g", at)
	return 0
}

func TestFirstOrderStepResponse(t *testing.T) {
	b := blocks.NewBuilder("step-response")
	src := b.Step(1, 0, 1)
	tf := b.LTISISO([]float64{0.5}, []float64{1, 0.5})
	w := b.Watch()
	b.Connect(src, tf)
	b.Connect(tf, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.Watch = []any{tf}
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)

	series, ok := res.Series("lti_siso.0[0]")
	require.True(t, ok)
	require.Len(t, series, len(res.Time))

	// quiescent then tracking 1 - exp(-(t-1)/2)
	for i, tt := range res.Time {
		if tt <= 1 {
			assert.InDelta(t, 0, series[i], 1e-9)
		} else {
			want := 1 - math.Exp(-0.5*(tt-1))
			assert.InDelta(t, want, series[i], 1e-3, "t=%g", tt)
		}
	}

	// the step instant is a declared event and is sampled exactly
	assert.Contains(t, res.Time, 1.0)
	assert.GreaterOrEqual(t, res.Events, 1)
}

func TestSumSubtracts(t *testing.T) {
	b := blocks.NewBuilder("difference")
	a := b.Constant(5)
	c := b.Constant(2)
	diff := b.SubOf(a, c)
	w := b.Watch()
	b.Connect(diff, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.T = 1
	opts.Watch = []any{diff}
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)

	series, _ := res.Series("sum.0[0]")
	for _, v := range series {
		assert.Equal(t, 3.0, v)
	}
	assert.NoError(t, res.StopCause())
}

func TestDiscreteAccumulator(t *testing.T) {
	b := blocks.NewBuilder("accumulator")
	src := b.Constant(2)
	di := b.DIntegrator(block.NewClock(0.5, 0), 1, 0)
	w := b.Watch()
	b.Connect(src, di)
	b.Connect(di, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.Watch = []any{di}
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)

	// each tick adds gain * period * input = 1 * 0.5 * 2
	assert.Equal(t, 0.0, sampleAt(t, res, "dintegrator.0[0]", 0.5), "event samples record the pre-tick value")
	assert.Equal(t, 1.0, sampleAt(t, res, "dintegrator.0[0]", 1.0))
	assert.Equal(t, 8.0, sampleAt(t, res, "dintegrator.0[0]", 4.5))
	assert.Equal(t, 9.0, sampleAt(t, res, "dintegrator.0[0]", 5.0))

	assert.Equal(t, 10, res.Events, "one event per tick in (0, 5]")
	assert.Equal(t, []string{"dintegrator.0.X0"}, res.DStateNames)
}

func TestStopBlockEndsRunEarly(t *testing.T) {
	b := blocks.NewBuilder("guarded")
	src := b.Ramp(0, 1)
	stop := b.Stop(2)
	b.Connect(src, stop)
	b.Name(stop, "guard")
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.T = 10
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err, "a requested stop is not a failure")

	assert.True(t, res.Stopped)
	assert.Equal(t, "guard", res.StopBlock)
	assert.ErrorIs(t, res.StopCause(), block.ErrStopRequested)
	assert.Contains(t, res.StopCause().Error(), "guard")
	last := res.Time[len(res.Time)-1]
	assert.Greater(t, last, 2.0)
	assert.Less(t, last, 10.0)
}

func TestAdaptiveMinStepAbort(t *testing.T) {
	b := blocks.NewBuilder("stiff")
	src := b.Waveform(blocks.WaveSine, 5)
	integ := b.Integrator(0)
	w := b.Watch()
	b.Connect(src, integ)
	b.Connect(integ, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.Tolerance = 1e-14
	opts.MinStep = 0.05
	res, err := Run(context.Background(), plan, opts)
	require.ErrorIs(t, err, block.ErrStepTooSmall)
	require.NotNil(t, res, "partial results survive the abort")
	assert.GreaterOrEqual(t, res.Rejected, 1)
}

func TestFixedStepRK45OnFastSignal(t *testing.T) {
	b := blocks.NewBuilder("fast")
	src := b.Waveform(blocks.WaveSine, 10)
	integ := b.Integrator(0)
	w := b.Watch()
	b.Connect(src, integ)
	b.Connect(integ, w)
	plan := compile(t, b)

	// a fixed half-second step badly undersamples a 10 Hz input; the
	// run degrades in accuracy but must complete with a finite state
	opts := DefaultOptions()
	opts.Solver = "rk45"
	opts.Adaptive = false
	opts.Dt = 0.5
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)

	require.NotEmpty(t, res.Time)
	_, x := res.Final()
	require.Len(t, x, 1)
	assert.False(t, math.IsNaN(x[0]))
	assert.Equal(t, 5.0, res.Time[len(res.Time)-1])
}

func TestContextCancellation(t *testing.T) {
	b := blocks.NewBuilder("cancelled")
	src := b.Constant(1)
	integ := b.Integrator(0)
	w := b.Watch()
	b.Connect(src, integ)
	b.Connect(integ, w)
	plan := compile(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, plan, DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Time, 1, "only the initial sample was recorded")
}

func TestFixedStepEuler(t *testing.T) {
	b := blocks.NewBuilder("euler")
	src := b.Constant(1)
	integ := b.Integrator(0)
	w := b.Watch()
	b.Connect(src, integ)
	b.Connect(integ, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.Solver = "euler"
	opts.Adaptive = false
	opts.T = 1
	opts.Dt = 0.1
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)

	assert.Equal(t, 10, res.Steps)
	_, x := res.Final()
	require.Len(t, x, 1)
	assert.InDelta(t, 1.0, x[0], 1e-9, "euler is exact for a constant derivative")
}

func TestAdaptiveRequiresCapableSolver(t *testing.T) {
	b := blocks.NewBuilder("wrong-solver")
	src := b.Constant(1)
	w := b.Watch()
	b.Connect(src, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.Solver = "rk4"
	_, err := New(plan, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adaptively")
}

func TestWatchResolution(t *testing.T) {
	b := blocks.NewBuilder("watched")
	src := b.Constant(1, 2)
	demux := b.Demux(2)
	w := b.Watch()
	b.Connect(src, demux)
	b.Connect(block.PortOf(demux, 0), w)
	b.Connect(block.PortOf(demux, 1), b.Watch())
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.T = 1
	opts.Watch = []any{"demux.0[1]", block.PortOf(demux, 0), src}
	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"demux.0[1]", "demux.0[0]", "constant.0[0]"}, res.WatchNames)

	second, _ := res.Series("demux.0[1]")
	assert.Equal(t, 2.0, second[0])
}

func TestWatchErrors(t *testing.T) {
	b := blocks.NewBuilder("bad-watch")
	src := b.Constant(1)
	w := b.Watch()
	b.Connect(src, w)
	plan := compile(t, b)

	opts := DefaultOptions()
	opts.Watch = []any{"missing"}
	_, err := New(plan, opts)
	assert.ErrorIs(t, err, block.ErrConfiguration)

	opts.Watch = []any{"constant.0[3]"}
	_, err = New(plan, opts)
	assert.ErrorIs(t, err, block.ErrConfiguration)
}

type renderCounter struct {
	traces   int
	samples  int
	rendered bool
}

func (r *renderCounter) Trace(name, label string) block.Tracer {
	r.traces++
	return r
}
func (r *renderCounter) Sample(t, v float64) { r.samples++ }
func (r *renderCounter) Render() error       { r.rendered = true; return nil }

func TestGraphicsRendersScopes(t *testing.T) {
	b := blocks.NewBuilder("displayed")
	src := b.Constant(1)
	scope := b.Scope(1, "y")
	b.Connect(src, scope)
	plan := compile(t, b)

	disp := &renderCounter{}
	opts := DefaultOptions()
	opts.T = 1
	opts.Graphics = true
	opts.Display = disp

	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)

	assert.True(t, disp.rendered)
	assert.Equal(t, 1, disp.traces)
	assert.Equal(t, len(res.Time), disp.samples)
}

func TestOnSampleCallback(t *testing.T) {
	b := blocks.NewBuilder("observed")
	src := b.Constant(4)
	w := b.Watch()
	b.Connect(src, w)
	plan := compile(t, b)

	var seen []float64
	opts := DefaultOptions()
	opts.T = 1
	opts.Watch = []any{src}
	opts.OnSample = func(tt float64, watched []float64) {
		seen = append(seen, watched[0])
	}

	res, err := Run(context.Background(), plan, opts)
	require.NoError(t, err)
	require.Len(t, seen, len(res.Time))
	assert.Equal(t, 4.0, seen[0])
}

func TestBatchRunsInOptionOrder(t *testing.T) {
	b := blocks.NewBuilder("batch")
	src := b.Constant(1)
	integ := b.Integrator(0)
	w := b.Watch()
	b.Connect(src, integ)
	b.Connect(integ, w)
	require.NoError(t, b.Err())

	fixed := DefaultOptions()
	fixed.Solver = "rk4"
	fixed.Adaptive = false
	fixed.T = 1

	adaptive := DefaultOptions()
	adaptive.T = 1

	results, err := NewBatch(b.Diagram(), fixed, adaptive).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		_, x := res.Final()
		assert.InDelta(t, 1.0, x[0], 1e-6)
	}
}
