package blocks

import (
	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/diagram"
)

// Inport marks where a subsystem's external inputs enter its inner
// diagram; each output port carries one external input. It only ever
// exists inside a subsystem and is wired away by compilation.
type Inport struct {
	block.Base
}

func NewInport(nout int) *Inport {
	return &Inport{Base: block.NewBase(diagram.InportType, block.Source, 0, nout)}
}

func (b *Inport) Clone() block.Block {
	cp := *b
	return &cp
}

func (b *Inport) Output(_ float64, _ []block.Signal) []block.Signal {
	// never evaluated: compilation replaces its outputs with the outer
	// sources feeding the enclosing subsystem
	out := make([]block.Signal, b.Meta().NOut)
	for i := range out {
		out[i] = block.Scalar(0)
	}
	return out
}

// Outport marks where a subsystem's outputs leave its inner diagram.
// Like Inport it is wired away by compilation.
type Outport struct {
	block.Base
}

func NewOutport(nin int) *Outport {
	return &Outport{Base: block.NewBase(diagram.OutportType, block.Sink, nin, 0)}
}

func (b *Outport) Clone() block.Block {
	cp := *b
	return &cp
}

func (b *Outport) Output(_ float64, _ []block.Signal) []block.Signal { return nil }

// SubSystem embeds another diagram as a single block. Compilation
// replaces it with a deep copy of the inner diagram, so the same inner
// diagram can be embedded many times without shared state, and the
// inner diagram itself is never mutated.
type SubSystem struct {
	block.Base
	inner *diagram.Diagram
}

func NewSubSystem(inner *diagram.Diagram) *SubSystem {
	nin, nout := 0, 0
	for _, b := range inner.Blocks {
		switch b.Meta().Type {
		case diagram.InportType:
			nin = b.Meta().NOut
		case diagram.OutportType:
			nout = b.Meta().NIn
		}
	}
	return &SubSystem{
		Base:  block.NewBase("subsystem", block.Subsystem, nin, nout),
		inner: inner,
	}
}

func (b *SubSystem) Check() error {
	if b.inner == nil {
		return block.ConfigErrorf(b.Meta().Name, "inner diagram must not be nil")
	}
	return nil
}

// Clone shares the inner diagram pointer: compilation deep-copies the
// inner diagram itself when inlining, so the placeholder has no state
// of its own to isolate.
func (b *SubSystem) Clone() block.Block {
	cp := *b
	return &cp
}

func (b *SubSystem) Inner() *diagram.Diagram { return b.inner }

func (b *SubSystem) Output(_ float64, _ []block.Signal) []block.Signal {
	// never evaluated: compilation inlines the inner diagram
	return nil
}
