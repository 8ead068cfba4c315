// Package integrators provides the fixed-step and adaptive ODE solvers
// that advance the global continuous state between events.
package integrators

import (
	"fmt"
	"sort"

	"github.com/diagsim/diagsim/internal/block"
)

// Derivative evaluates the global state derivative at time t. It may be
// called at trial points a solver later rejects, so it must be free of
// side effects.
type Derivative func(t float64, x block.Signal) (block.Signal, error)

// Solver advances the state by one fixed step.
type Solver interface {
	Name() string
	Step(f Derivative, t float64, x block.Signal, dt float64) (block.Signal, error)
}

// AdaptiveSolver additionally estimates local error and proposes the
// next step size. ok reports whether the step met the tolerance; a
// rejected step must be retried from the same state at dtNext.
type AdaptiveSolver interface {
	Solver
	StepAdaptive(f Derivative, t float64, x block.Signal, dt, tol float64) (next block.Signal, dtNext float64, ok bool, err error)
}

var factories = map[string]func() Solver{
	"euler": func() Solver { return NewEuler() },
	"rk4":   func() Solver { return NewRK4() },
	"rk45":  func() Solver { return NewRK45() },
}

// New returns a solver by name.
func New(name string) (Solver, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver: %s", name)
	}
	return fn(), nil
}

// List returns the known solver names, sorted.
func List() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
