package diagram

import (
	"fmt"

	"github.com/diagsim/diagsim/internal/block"
)

// Block type tags with structural meaning during flattening.
const (
	InportType  = "inport"
	OutportType = "outport"
)

// Inliner is implemented by subsystem blocks: placeholders that embed a
// whole referenced diagram, replaced by its contents at compile time.
type Inliner interface {
	block.Block
	Inner() *Diagram
}

// Wire is a directed connection from one output port to one input port.
// Width is the inferred signal width, filled in by the compile-time
// probe evaluation.
type Wire struct {
	ID    int
	Name  string
	Start block.Plug
	End   block.Plug
	Width int
}

func (w *Wire) String() string {
	return fmt.Sprintf("wire.%d: %s --> %s", w.ID, w.Start, w.End)
}

// Diagram owns an ordered collection of blocks and wires.
type Diagram struct {
	Name   string
	Blocks []block.Block
	Wires  []*Wire

	counter map[string]int
	member  map[block.Block]bool
	taken   map[block.Block]map[int]bool // input ports already wired

	plan *Plan
}

func New(name string) *Diagram {
	return &Diagram{
		Name:    name,
		counter: make(map[string]int),
		member:  make(map[block.Block]bool),
		taken:   make(map[block.Block]map[int]bool),
	}
}

// Add registers a block into the diagram, assigning its id and, when it
// has no name yet, an automatic "type.N" name.
func (d *Diagram) Add(b block.Block) block.Block {
	m := b.Meta()
	m.ID = len(d.Blocks)
	if m.Name == "" {
		i := d.counter[m.Type]
		d.counter[m.Type]++
		m.Name = fmt.Sprintf("%s.%d", m.Type, i)
	}
	d.Blocks = append(d.Blocks, b)
	d.member[b] = true
	return b
}

// Plan returns the compiled plan, or nil before Compile succeeds.
func (d *Diagram) Plan() *Plan { return d.plan }

func (d *Diagram) String() string {
	return fmt.Sprintf("diagram %q with %d blocks and %d wires", d.Name, len(d.Blocks), len(d.Wires))
}

// endpoint normalizes a connect argument: a Block means its port 0.
func endpoint(v any) (block.Plug, error) {
	switch x := v.(type) {
	case block.Plug:
		return x, nil
	case block.Block:
		return block.PortOf(x, 0), nil
	default:
		return block.Plug{}, &block.WiringError{From: fmt.Sprintf("%v", v), To: "", Reason: "endpoint must be a Block or Plug"}
	}
}

// Connect wires one source port (or slice) to one or more destinations.
// A slice of width W connects element-wise to a slice of width W, or to
// a block whose input count is W. Each destination input port accepts
// at most one wire; fan-out from a source is unlimited.
func (d *Diagram) Connect(src any, dests ...any) error {
	start, err := endpoint(src)
	if err != nil {
		return err
	}
	if !d.member[start.Block] {
		return &block.WiringError{From: start.String(), To: "", Reason: "source block is not part of this diagram"}
	}
	sm := start.Block.Meta()
	if start.Lo < 0 || start.Hi > sm.NOut {
		return &block.WiringError{From: start.String(), To: "", Reason: fmt.Sprintf("block has %d output ports", sm.NOut)}
	}
	if sm.NOut == 0 {
		return &block.WiringError{From: start.String(), To: "", Reason: "source endpoint has no output ports"}
	}

	for _, dv := range dests {
		end, err := endpoint(dv)
		if err != nil {
			return err
		}
		// a bundle wired to a bare block spreads over all its inputs
		if _, bare := dv.(block.Block); bare && start.Width() > 1 {
			end = block.SliceOf(end.Block, 0, start.Width())
		}
		if err := d.connectOne(start, end); err != nil {
			return err
		}
	}
	return nil
}

func (d *Diagram) connectOne(start, end block.Plug) error {
	if !d.member[end.Block] {
		return &block.WiringError{From: start.String(), To: end.String(), Reason: "destination block is not part of this diagram"}
	}
	em := end.Block.Meta()
	if em.NIn == 0 {
		return &block.WiringError{From: start.String(), To: end.String(), Reason: "destination endpoint has no input ports"}
	}
	if end.Lo < 0 || end.Hi > em.NIn {
		return &block.WiringError{From: start.String(), To: end.String(), Reason: fmt.Sprintf("block has %d input ports", em.NIn)}
	}
	if start.Width() != end.Width() {
		return &block.WiringError{
			From:   start.String(),
			To:     end.String(),
			Reason: fmt.Sprintf("width mismatch: %d vs %d", start.Width(), end.Width()),
		}
	}

	sp := start.Ports()
	ep := end.Ports()
	for i := range sp {
		if err := d.addWire(block.PortOf(start.Block, sp[i]), block.PortOf(end.Block, ep[i])); err != nil {
			return err
		}
	}
	return nil
}

func (d *Diagram) addWire(start, end block.Plug) error {
	ports := d.taken[end.Block]
	if ports == nil {
		ports = make(map[int]bool)
		d.taken[end.Block] = ports
	}
	if ports[end.Lo] {
		return &block.WiringError{From: start.String(), To: end.String(), Reason: "input port already driven"}
	}
	ports[end.Lo] = true

	w := &Wire{ID: len(d.Wires), Start: start, End: end}
	w.Name = fmt.Sprintf("wire.%d", w.ID)
	d.Wires = append(d.Wires, w)
	return nil
}
