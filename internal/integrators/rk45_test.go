package integrators

import (
	"math"
	"testing"

	"github.com/diagsim/diagsim/internal/block"
)

// harmonic oscillator: x'' = -x
func oscillator(t float64, x block.Signal) (block.Signal, error) {
	return block.Signal{x[1], -x[0]}, nil
}

func oscillatorEnergy(x block.Signal) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	x := block.Signal{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		var err error
		x, err = integrator.Step(oscillator, float64(i)*dt, x, dt)
		if err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	x := block.Signal{1.0, 0.0}

	initialEnergy := oscillatorEnergy(x)
	dt := 0.01

	for i := 0; i < 10000; i++ {
		var err error
		x, err = integrator.Step(oscillator, float64(i)*dt, x, dt)
		if err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
	}

	finalEnergy := oscillatorEnergy(x)
	drift := math.Abs(finalEnergy-initialEnergy) / initialEnergy

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	x0 := block.Signal{1.0, 0.0}

	x, newDt, ok, err := integrator.StepAdaptive(oscillator, 0, x0, 0.1, 1e-8)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if newDt <= 0 {
		t.Fatalf("StepAdaptive returned invalid dt: %f", newDt)
	}

	// retry at the proposed step until the tolerance is met
	dt := newDt
	for !ok {
		x, dt, ok, err = integrator.StepAdaptive(oscillator, 0, x0, dt, 1e-8)
		if err != nil {
			t.Fatalf("StepAdaptive returned error: %v", err)
		}
	}

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
}

func TestRK45_RejectsCoarseStep(t *testing.T) {
	integrator := NewRK45()
	x0 := block.Signal{1.0, 0.0}

	_, newDt, ok, err := integrator.StepAdaptive(oscillator, 0, x0, 1.0, 1e-12)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if ok {
		t.Error("expected a 1.0s step at tol 1e-12 to be rejected")
	}
	if newDt >= 1.0 {
		t.Errorf("rejected step should shrink dt, got %f", newDt)
	}
}

func TestRK45_RejectedStepStillComputesState(t *testing.T) {
	integrator := NewRK45()
	x0 := block.Signal{1.0, 0.0}

	x, _, ok, err := integrator.StepAdaptive(oscillator, 0, x0, 1.0, 1e-12)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if ok {
		t.Fatal("expected the step to be rejected")
	}
	if len(x) != len(x0) {
		t.Fatalf("rejected step returned state of length %d, want %d", len(x), len(x0))
	}
	if !x.IsValid() {
		t.Error("rejected step returned invalid state")
	}
}

func TestRK45_FixedCoarseStep(t *testing.T) {
	integrator := NewRK45()
	x := block.Signal{1.0, 0.0}

	// a step this coarse fails the internal tolerance; fixed-step use
	// must still get the computed state back
	for i := 0; i < 10; i++ {
		var err error
		x, err = integrator.Step(oscillator, float64(i)*0.5, x, 0.5)
		if err != nil {
			t.Fatalf("Step returned error: %v", err)
		}
		if len(x) != 2 {
			t.Fatalf("Step returned state of length %d, want 2", len(x))
		}
	}

	if !x.IsValid() {
		t.Error("fixed-step RK45 produced invalid state")
	}
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()

	x4 := block.Signal{1.0, 0.0}
	x45 := block.Signal{1.0, 0.0}
	dt := 0.1

	for i := 0; i < 100; i++ {
		var err error
		x4, err = rk4.Step(oscillator, float64(i)*dt, x4, dt)
		if err != nil {
			t.Fatalf("RK4 step: %v", err)
		}
		x45, err = rk45.Step(oscillator, float64(i)*dt, x45, dt)
		if err != nil {
			t.Fatalf("RK45 step: %v", err)
		}
	}

	t.Logf("RK4 final: [%.6f, %.6f]", x4[0], x4[1])
	t.Logf("RK45 final: [%.6f, %.6f]", x45[0], x45[1])

	e4 := oscillatorEnergy(x4)
	e45 := oscillatorEnergy(x45)

	if math.Abs(e45-1.0) > math.Abs(e4-1.0) {
		t.Log("Warning: RK45 not more accurate than RK4 for this case")
	}
}
