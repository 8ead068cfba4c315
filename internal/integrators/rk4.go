package integrators

import "github.com/diagsim/diagsim/internal/block"

type RK4 struct {
	k1, k2, k3, k4 block.Signal
	scratch        block.Signal
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(block.Signal, n)
		r.k2 = make(block.Signal, n)
		r.k3 = make(block.Signal, n)
		r.k4 = make(block.Signal, n)
		r.scratch = make(block.Signal, n)
	}
}

func (r *RK4) Step(f Derivative, t float64, x block.Signal, dt float64) (block.Signal, error) {
	n := len(x)
	r.ensureScratch(n)

	k1, err := f(t, x)
	if err != nil {
		return nil, err
	}
	copy(r.k1, k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	k2, err := f(t+dt*0.5, r.scratch)
	if err != nil {
		return nil, err
	}
	copy(r.k2, k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	k3, err := f(t+dt*0.5, r.scratch)
	if err != nil {
		return nil, err
	}
	copy(r.k3, k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	k4, err := f(t+dt, r.scratch)
	if err != nil {
		return nil, err
	}
	copy(r.k4, k4)

	result := make(block.Signal, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result, nil
}
