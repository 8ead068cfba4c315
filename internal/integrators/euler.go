package integrators

import "github.com/diagsim/diagsim/internal/block"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(f Derivative, t float64, x block.Signal, dt float64) (block.Signal, error) {
	dx, err := f(t, x)
	if err != nil {
		return nil, err
	}
	result := make(block.Signal, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result, nil
}
