package sim

import (
	"fmt"

	"github.com/diagsim/diagsim/internal/block"
)

// Options configures one run. The zero value is not runnable; start
// from DefaultOptions.
type Options struct {
	// Solver names the integration method: euler, rk4 or rk45.
	Solver string

	// T is the duration of the run.
	T float64

	// Dt is the fixed step size, and the maximum step when Adaptive.
	Dt float64

	// Adaptive enables error-controlled stepping; requires a solver
	// with an embedded error estimate.
	Adaptive bool

	// Tolerance is the adaptive local error bound.
	Tolerance float64

	// MinStep aborts the run when the adaptive step shrinks below it,
	// which is the usual symptom of a discontinuity nobody declared.
	MinStep float64

	// CheckFinite validates outputs and states for NaN/Inf each step.
	CheckFinite bool

	// Watch lists signals to record: "name" or "name[port]" strings,
	// Plugs, or Blocks (output port 0).
	Watch []any

	// Graphics enables scope rendering through Display.
	Graphics bool

	// Display is the display service for scopes, nil for headless runs.
	Display block.Display

	// OnSample, when set, observes every accepted sample as it is
	// recorded; the values follow the Watch list order.
	OnSample func(t float64, watched []float64)
}

func DefaultOptions() Options {
	return Options{
		Solver:      "rk45",
		T:           5,
		Dt:          0.1,
		Adaptive:    true,
		Tolerance:   1e-6,
		MinStep:     1e-12,
		CheckFinite: true,
	}
}

func (o *Options) validate() error {
	if o.T <= 0 {
		return fmt.Errorf("duration must be positive, got %g", o.T)
	}
	if o.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", o.Dt)
	}
	if o.Adaptive && o.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if o.Adaptive && o.MinStep <= 0 {
		return fmt.Errorf("min step must be positive for adaptive stepping")
	}
	return nil
}
