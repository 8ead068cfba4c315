package block

import "fmt"

// Kind classifies a block by its capabilities.
type Kind int

const (
	Source Kind = iota
	Sink
	Function
	Transfer
	Clocked
	Subsystem
)

func (k Kind) String() string {
	switch k {
	case Source:
		return "source"
	case Sink:
		return "sink"
	case Function:
		return "function"
	case Transfer:
		return "transfer"
	case Clocked:
		return "clocked"
	case Subsystem:
		return "subsystem"
	}
	return "unknown"
}

// Meta is the fixed shape of a block. Port and state counts are set at
// construction and never renegotiated; ID and Name are assigned when the
// block is added to a diagram.
type Meta struct {
	ID       int
	Name     string
	Type     string
	Kind     Kind
	NIn      int
	NOut     int
	NStates  int
	NDStates int
}

func (m *Meta) String() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Type
}

// Block is the common contract of every block in a diagram.
//
// Output must be a pure function of time, inputs and declared state:
// Source and Function blocks use t and in, Transfer and Clocked blocks
// use only their state (set by the scheduler before evaluation), and
// Sink blocks return nil.
type Block interface {
	Meta() *Meta
	Check() error
	Clone() Block
	Output(t float64, in []Signal) []Signal
}

// Continuous is a Transfer block: it owns continuous state and
// contributes a derivative to the global ODE.
type Continuous interface {
	Block
	InitState() Signal
	SetState(x Signal)
	Derivative(t float64, in []Signal) Signal
}

// Discrete is a Clocked block: it owns discrete state updated only at
// the ticks of its clock via Next.
type Discrete interface {
	Block
	ClockOf() *Clock
	InitDState() Signal
	SetDState(x Signal)
	Next(t float64, in []Signal) Signal
}

// Stepper is implemented by Sink blocks; Step is the only place a block
// may have externally visible side effects.
type Stepper interface {
	Block
	Step(t float64, in []Signal) error
}

// EventSource is implemented by blocks whose output or derivative is
// discontinuous at known instants. Events returns the times in (t0, tf]
// the integrator must not step over.
type EventSource interface {
	Events(t0, tf float64) []float64
}

// InChecker is implemented by blocks that constrain the width of an
// incoming signal beyond port count; compile calls it with the widths
// inferred by the probe evaluation.
type InChecker interface {
	CheckInput(port, width int) error
}

// Starter and Finisher are optional lifecycle hooks invoked by the
// scheduler at Initializing and Finalizing.
type Starter interface {
	Start(env *Env) error
}

type Finisher interface {
	Done() error
}

// Env carries run-wide collaborators handed to blocks at start.
type Env struct {
	// Graphics enables display-service rendering by sinks.
	Graphics bool

	// Display is the external display service, nil when graphics are off.
	Display Display

	// RequestStop asks the scheduler to end the run cooperatively after
	// the current evaluation completes.
	RequestStop func(block string)
}

// Display is the external service scope-like sinks draw through. The
// scheduler acquires it at Initializing and releases it at Finalizing;
// blocks only ever call Trace.
type Display interface {
	Trace(block, label string) Tracer
	Render() error
}

// Tracer accepts time samples for one displayed series.
type Tracer interface {
	Sample(t, v float64)
}

// Base carries the Meta shared by all catalog blocks and a no-op Check.
type Base struct {
	meta Meta
}

func NewBase(typ string, kind Kind, nin, nout int) Base {
	return Base{meta: Meta{Type: typ, Kind: kind, NIn: nin, NOut: nout}}
}

func (b *Base) Meta() *Meta  { return &b.meta }
func (b *Base) Check() error { return nil }

func (b *Base) String() string {
	return fmt.Sprintf("%s(%s)", b.meta.String(), b.meta.Type)
}
