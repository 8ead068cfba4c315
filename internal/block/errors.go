package block

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the engine. Structural problems are always
// surfaced at compile time, numerical problems abort a run.
var (
	// ErrConfiguration indicates bad block parameters.
	ErrConfiguration = errors.New("diagsim: invalid block configuration")

	// ErrWiring indicates an illegal connection between ports.
	ErrWiring = errors.New("diagsim: illegal connection")

	// ErrUnconnectedPort indicates an input port with no incoming wire.
	ErrUnconnectedPort = errors.New("diagsim: unconnected input port")

	// ErrStructural indicates a malformed diagram, e.g. a recursive
	// subsystem inclusion.
	ErrStructural = errors.New("diagsim: malformed diagram")

	// ErrAlgebraicLoop indicates a zero-delay cycle among blocks.
	ErrAlgebraicLoop = errors.New("diagsim: algebraic loop")

	// ErrNumerical indicates a non-finite state or output mid-run.
	ErrNumerical = errors.New("diagsim: non-finite value")

	// ErrStepTooSmall indicates the adaptive step fell below the minimum.
	ErrStepTooSmall = errors.New("diagsim: step size below minimum")

	// ErrStopRequested reports cooperative early termination; it is not
	// a failure.
	ErrStopRequested = errors.New("diagsim: stop requested")
)

// ConfigError reports invalid parameters on a named block.
type ConfigError struct {
	Block  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("block %q: %s", e.Block, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// ConfigErrorf builds a ConfigError for the named block.
func ConfigErrorf(name, format string, args ...any) error {
	return &ConfigError{Block: name, Reason: fmt.Sprintf(format, args...)}
}

// WiringError identifies the offending endpoints of an illegal connection.
type WiringError struct {
	From   string
	To     string
	Reason string
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("cannot connect %s to %s: %s", e.From, e.To, e.Reason)
}

func (e *WiringError) Unwrap() error { return ErrWiring }

// UnconnectedPortError names the block and input port missing a wire.
type UnconnectedPortError struct {
	Block string
	Port  int
}

func (e *UnconnectedPortError) Error() string {
	return fmt.Sprintf("block %q input %d is not connected", e.Block, e.Port)
}

func (e *UnconnectedPortError) Unwrap() error { return ErrUnconnectedPort }

// StructuralError reports a malformed diagram.
type StructuralError struct {
	Diagram string
	Reason  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("diagram %q: %s", e.Diagram, e.Reason)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// AlgebraicLoopError lists every block on a zero-delay cycle.
type AlgebraicLoopError struct {
	Cycle []string
}

func (e *AlgebraicLoopError) Error() string {
	return "algebraic loop: " + strings.Join(e.Cycle, " -> ")
}

func (e *AlgebraicLoopError) Unwrap() error { return ErrAlgebraicLoop }

// NumericalError carries full diagnostic context for a non-finite value
// detected mid-integration.
type NumericalError struct {
	Block string
	Time  float64
	State Signal
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("non-finite value in block %q at t=%.6g", e.Block, e.Time)
}

func (e *NumericalError) Unwrap() error { return ErrNumerical }
