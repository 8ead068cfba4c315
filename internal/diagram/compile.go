package diagram

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/diagsim/diagsim/internal/block"
)

// Plan is the immutable result of compiling a diagram: the flattened
// block and wire lists, the level-grouped evaluation order, and the
// global state layout.
type Plan struct {
	Name   string
	Blocks []block.Block
	Wires  []*Wire

	// Levels groups output-producing blocks so that every block's
	// zero-delay parents sit in an earlier level. Sinks are stepped
	// separately, after each accepted integration step.
	Levels    [][]block.Block
	Sinks     []block.Stepper
	Transfers []block.Continuous
	Sampled   []block.Discrete

	// Clocks in registration order, with the blocks each one owns.
	Clocks      []*block.Clock
	ClockBlocks map[*block.Clock][]block.Discrete

	NStates     int
	NDStates    int
	StateNames  []string
	DStateNames []string

	stateOffset  map[block.Block]int
	dstateOffset map[block.Block]int
	outgoing     [][]*Wire // by block id
	incoming     [][]*Wire // by block id, indexed by input port
	byName       map[string]block.Block
}

// BlockByName resolves a flattened block by its (possibly
// subsystem-prefixed) name.
func (p *Plan) BlockByName(name string) (block.Block, bool) {
	b, ok := p.byName[name]
	return b, ok
}

// StateOffset returns the offset of a transfer block's slice in the
// global continuous state vector.
func (p *Plan) StateOffset(b block.Block) (int, bool) {
	off, ok := p.stateOffset[b]
	return off, ok
}

// InitialState assembles the global continuous initial-state vector.
func (p *Plan) InitialState() block.Signal {
	x := make(block.Signal, 0, p.NStates)
	for _, tb := range p.Transfers {
		x = append(x, tb.InitState()...)
	}
	return x
}

// InitialDState assembles the global discrete initial-state vector.
func (p *Plan) InitialDState() block.Signal {
	x := make(block.Signal, 0, p.NDStates)
	for _, db := range p.Sampled {
		x = append(x, db.InitDState()...)
	}
	return x
}

// Events collects the discontinuity instants declared by blocks over
// the open-closed interval (t0, tf].
func (p *Plan) Events(t0, tf float64) []float64 {
	var times []float64
	for _, b := range p.Blocks {
		if es, ok := b.(block.EventSource); ok {
			for _, t := range es.Events(t0, tf) {
				if t > t0 && t <= tf {
					times = append(times, t)
				}
			}
		}
	}
	return times
}

// Compile validates the diagram and produces its execution plan.
// All structural errors are raised here; a compiled diagram runs
// without structural surprises.
func (d *Diagram) Compile() (*Plan, error) {
	blks, wires, err := flatten(d, []*Diagram{d}, "")
	if err != nil {
		return nil, err
	}

	for i, b := range blks {
		b.Meta().ID = i
	}
	for i, w := range wires {
		w.ID = i
		w.Name = fmt.Sprintf("wire.%d", i)
	}

	p := &Plan{
		Name:         d.Name,
		Blocks:       blks,
		Wires:        wires,
		ClockBlocks:  make(map[*block.Clock][]block.Discrete),
		stateOffset:  make(map[block.Block]int),
		dstateOffset: make(map[block.Block]int),
		byName:       make(map[string]block.Block),
	}

	// block-specific parameter checks
	for _, b := range blks {
		if err := b.Check(); err != nil {
			return nil, err
		}
		if prev, dup := p.byName[b.Meta().Name]; dup {
			return nil, &block.StructuralError{
				Diagram: d.Name,
				Reason:  fmt.Sprintf("duplicate block name %q (ids %d and %d)", b.Meta().Name, prev.Meta().ID, b.Meta().ID),
			}
		}
		p.byName[b.Meta().Name] = b
	}

	if err := p.linkWires(); err != nil {
		return nil, err
	}
	if err := p.checkComplete(); err != nil {
		return nil, err
	}
	if err := p.findAlgebraicLoops(); err != nil {
		return nil, err
	}
	if err := p.schedule(); err != nil {
		return nil, err
	}
	if err := p.layoutState(); err != nil {
		return nil, err
	}

	// probe evaluation at t=0, sinks suppressed: surfaces bad parameter
	// interactions now and infers wire value widths for the report
	ev := NewEvaluator(p)
	if err := ev.Eval(0, p.InitialState(), p.InitialDState(), false); err != nil {
		return nil, err
	}
	if _, err := ev.Derivatives(0); err != nil {
		return nil, err
	}
	for _, w := range p.Wires {
		ic, ok := w.End.Block.(block.InChecker)
		if !ok {
			continue
		}
		if err := ic.CheckInput(w.End.Lo, w.Width); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"diagram": d.Name,
		"blocks":  len(p.Blocks),
		"wires":   len(p.Wires),
		"states":  p.NStates,
		"dstates": p.NDStates,
	}).Info("compiled")

	d.plan = p
	return p, nil
}

// flatten recursively replaces every subsystem block with a deep copy
// of its referenced diagram, rewiring the inport/outport boundary
// blocks away. The top-level diagram's own blocks are kept by pointer;
// only subsystem contents are cloned, so two instantiations of the same
// subsystem never alias state.
func flatten(d *Diagram, ancestors []*Diagram, prefix string) ([]block.Block, []*Wire, error) {
	// work on wire copies so the authored diagram survives compilation
	wires := make([]*Wire, 0, len(d.Wires))
	for _, w := range d.Wires {
		cw := *w
		wires = append(wires, &cw)
	}

	if prefix != "" {
		for _, b := range d.Blocks {
			m := b.Meta()
			m.Name = prefix + "/" + m.Name
		}
	}

	var blks []block.Block
	for _, b := range d.Blocks {
		sub, ok := b.(Inliner)
		if !ok {
			blks = append(blks, b)
			continue
		}

		inner := sub.Inner()
		for _, a := range ancestors {
			if a == inner {
				return nil, nil, &block.StructuralError{
					Diagram: d.Name,
					Reason:  fmt.Sprintf("subsystem %q includes diagram %q recursively", sub.Meta().Name, inner.Name),
				}
			}
		}

		ssBlocks, ssWires, err := flatten(inner.deepCopy(), append(ancestors, inner), sub.Meta().Name)
		if err != nil {
			return nil, nil, err
		}

		inport, outport, err := boundary(ssBlocks, sub)
		if err != nil {
			return nil, nil, err
		}

		// outer sources feeding the subsystem's inputs
		srcFor := make(map[int]block.Plug)
		wires = filterWires(wires, func(w *Wire) bool {
			if w.End.Block == sub {
				srcFor[w.End.Lo] = w.Start
				return false
			}
			return true
		})

		// inner sources feeding the outport's inputs
		innerSrc := make(map[int]block.Plug)
		ssWires = filterWires(ssWires, func(w *Wire) bool {
			if w.End.Block == outport {
				innerSrc[w.End.Lo] = w.Start
				return false
			}
			return true
		})

		// inport outputs become direct connections from the outer sources
		ssWires = filterWires(ssWires, func(w *Wire) bool {
			if w.Start.Block == inport {
				s, present := srcFor[w.Start.Lo]
				if !present {
					return false // caught by the completeness check
				}
				w.Start = s
			}
			return true
		})

		// outer consumers of the subsystem read the inner sources directly
		wires = filterWires(wires, func(w *Wire) bool {
			if w.Start.Block == sub {
				s, present := innerSrc[w.Start.Lo]
				if !present {
					return false
				}
				w.Start = s
			}
			return true
		})

		for _, ib := range ssBlocks {
			if ib != inport && ib != outport {
				blks = append(blks, ib)
			}
		}
		wires = append(wires, ssWires...)
	}

	return blks, wires, nil
}

// boundary locates the single inport and outport of a flattened
// subsystem and checks their port counts against the placeholder.
func boundary(blks []block.Block, sub Inliner) (inport, outport block.Block, err error) {
	for _, b := range blks {
		switch b.Meta().Type {
		case InportType:
			if inport != nil {
				return nil, nil, &block.StructuralError{Diagram: sub.Inner().Name, Reason: "subsystem has more than one inport block"}
			}
			inport = b
		case OutportType:
			if outport != nil {
				return nil, nil, &block.StructuralError{Diagram: sub.Inner().Name, Reason: "subsystem has more than one outport block"}
			}
			outport = b
		}
	}
	if inport == nil && sub.Meta().NIn > 0 {
		return nil, nil, &block.StructuralError{Diagram: sub.Inner().Name, Reason: "subsystem has inputs but no inport block"}
	}
	if outport == nil {
		return nil, nil, &block.StructuralError{Diagram: sub.Inner().Name, Reason: "subsystem has no outport block"}
	}
	if inport != nil && inport.Meta().NOut != sub.Meta().NIn {
		return nil, nil, &block.StructuralError{
			Diagram: sub.Inner().Name,
			Reason:  fmt.Sprintf("inport has %d ports but subsystem %q has %d inputs", inport.Meta().NOut, sub.Meta().Name, sub.Meta().NIn),
		}
	}
	if outport.Meta().NIn != sub.Meta().NOut {
		return nil, nil, &block.StructuralError{
			Diagram: sub.Inner().Name,
			Reason:  fmt.Sprintf("outport has %d ports but subsystem %q has %d outputs", outport.Meta().NIn, sub.Meta().Name, sub.Meta().NOut),
		}
	}
	// dummy inport with zero subsystem inputs is tolerated
	if inport == nil {
		inport = &nilBlock{}
	}
	return inport, outport, nil
}

// nilBlock is a placeholder that never matches a wire endpoint.
type nilBlock struct{ block.Base }

func (n *nilBlock) Clone() block.Block                            { c := *n; return &c }
func (n *nilBlock) Output(float64, []block.Signal) []block.Signal { return nil }

func filterWires(ws []*Wire, keep func(*Wire) bool) []*Wire {
	out := ws[:0]
	for _, w := range ws {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// Copy returns an independent deep copy of the diagram: every block is
// cloned and every wire remapped onto the clones. Concurrent runs of
// the same authored diagram each compile their own copy so block state
// is never shared.
func (d *Diagram) Copy() *Diagram { return d.deepCopy() }

// deepCopy clones every block and remaps wires onto the clones.
func (d *Diagram) deepCopy() *Diagram {
	c := New(d.Name)
	remap := make(map[block.Block]block.Block, len(d.Blocks))
	for _, b := range d.Blocks {
		nb := b.Clone()
		remap[b] = nb
		c.Blocks = append(c.Blocks, nb)
		c.member[nb] = true
	}
	for _, w := range d.Wires {
		cw := *w
		cw.Start = block.Plug{Block: remap[w.Start.Block], Lo: w.Start.Lo, Hi: w.Start.Hi}
		cw.End = block.Plug{Block: remap[w.End.Block], Lo: w.End.Lo, Hi: w.End.Hi}
		c.Wires = append(c.Wires, &cw)
	}
	return c
}

// linkWires indexes wires by their endpoint blocks.
func (p *Plan) linkWires() error {
	p.outgoing = make([][]*Wire, len(p.Blocks))
	p.incoming = make([][]*Wire, len(p.Blocks))
	for i, b := range p.Blocks {
		p.incoming[i] = make([]*Wire, b.Meta().NIn)
	}
	for _, w := range p.Wires {
		sm := w.Start.Block.Meta()
		em := w.End.Block.Meta()
		if sm.ID >= len(p.Blocks) || p.Blocks[sm.ID] != w.Start.Block {
			return &block.StructuralError{Diagram: p.Name, Reason: fmt.Sprintf("%s starts at unreferenced block %q", w, sm.Name)}
		}
		if em.ID >= len(p.Blocks) || p.Blocks[em.ID] != w.End.Block {
			return &block.StructuralError{Diagram: p.Name, Reason: fmt.Sprintf("%s ends at unreferenced block %q", w, em.Name)}
		}
		p.outgoing[sm.ID] = append(p.outgoing[sm.ID], w)
		if p.incoming[em.ID][w.End.Lo] != nil {
			return &block.WiringError{From: w.Start.String(), To: w.End.String(), Reason: "input port already driven"}
		}
		p.incoming[em.ID][w.End.Lo] = w
	}
	return nil
}

// checkComplete verifies every input port has exactly one incoming wire.
func (p *Plan) checkComplete() error {
	for i, b := range p.Blocks {
		for port, w := range p.incoming[i] {
			if w == nil {
				return &block.UnconnectedPortError{Block: b.Meta().Name, Port: port}
			}
		}
	}
	return nil
}

// findAlgebraicLoops searches the zero-delay subgraph, which contains
// only Function-to-Function edges: Transfer and Clocked outputs depend
// on their own state, not their same-instant inputs, so they break any
// cycle they sit on.
func (p *Plan) findAlgebraicLoops() error {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(p.Blocks))
	var stack []block.Block

	var visit func(b block.Block) *block.AlgebraicLoopError
	visit = func(b block.Block) *block.AlgebraicLoopError {
		id := b.Meta().ID
		color[id] = grey
		stack = append(stack, b)
		for _, w := range p.outgoing[id] {
			dst := w.End.Block
			if dst.Meta().Kind != block.Function {
				continue
			}
			switch color[dst.Meta().ID] {
			case white:
				if err := visit(dst); err != nil {
					return err
				}
			case grey:
				// extract the cycle from the path stack
				var cycle []string
				seen := false
				for _, sb := range stack {
					if sb == dst {
						seen = true
					}
					if seen {
						cycle = append(cycle, sb.Meta().Name)
					}
				}
				cycle = append(cycle, dst.Meta().Name)
				return &block.AlgebraicLoopError{Cycle: cycle}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, b := range p.Blocks {
		if b.Meta().Kind == block.Function && color[b.Meta().ID] == white {
			if err := visit(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// schedule assigns every block to an evaluation level: sources and
// stateful blocks first (their outputs need no same-instant inputs),
// then repeated sweeps placing each block once all its parents have a
// level. The result is a topological order of the zero-delay graph.
func (p *Plan) schedule() error {
	const unassigned = -1
	level := make([]int, len(p.Blocks))
	parents := make([][]block.Block, len(p.Blocks))
	for i := range p.Blocks {
		level[i] = unassigned
		for _, w := range p.incoming[i] {
			parents[i] = append(parents[i], w.Start.Block)
		}
	}

	var group []block.Block
	for _, b := range p.Blocks {
		switch b.Meta().Kind {
		case block.Source, block.Transfer, block.Clocked:
			level[b.Meta().ID] = 0
			group = append(group, b)
		}
	}
	p.Levels = append(p.Levels, group)

	for seq := 1; ; seq++ {
		group = nil
		for _, b := range p.Blocks {
			id := b.Meta().ID
			if level[id] != unassigned {
				continue
			}
			ready := true
			for _, parent := range parents[id] {
				if pl := level[parent.Meta().ID]; pl == unassigned || pl >= seq {
					ready = false
					break
				}
			}
			if ready {
				group = append(group, b)
			}
		}
		if len(group) == 0 {
			break
		}
		var execGroup []block.Block
		for _, b := range group {
			level[b.Meta().ID] = seq
			if b.Meta().Kind != block.Sink {
				execGroup = append(execGroup, b)
			}
		}
		if len(execGroup) > 0 {
			p.Levels = append(p.Levels, execGroup)
		}
	}

	// every block must have been scheduled after the loop check
	for _, b := range p.Blocks {
		if level[b.Meta().ID] == unassigned {
			return &block.AlgebraicLoopError{Cycle: []string{b.Meta().Name}}
		}
	}

	for _, b := range p.Blocks {
		if s, ok := b.(block.Stepper); ok && b.Meta().Kind == block.Sink {
			p.Sinks = append(p.Sinks, s)
		}
	}
	return nil
}

// layoutState assigns each stateful block a contiguous slice of the
// global continuous and discrete state vectors.
func (p *Plan) layoutState() error {
	for _, b := range p.Blocks {
		m := b.Meta()
		if tb, ok := b.(block.Continuous); ok && m.Kind == block.Transfer {
			if len(tb.InitState()) != m.NStates {
				return &block.ConfigError{Block: m.Name, Reason: fmt.Sprintf("initial state has %d elements, block declares %d", len(tb.InitState()), m.NStates)}
			}
			p.stateOffset[b] = p.NStates
			p.Transfers = append(p.Transfers, tb)
			for i := 0; i < m.NStates; i++ {
				p.StateNames = append(p.StateNames, fmt.Sprintf("%s.x%d", m.Name, i))
			}
			p.NStates += m.NStates
		}
		if db, ok := b.(block.Discrete); ok && m.Kind == block.Clocked {
			if db.ClockOf() == nil {
				return &block.ConfigError{Block: m.Name, Reason: "clocked block has no clock"}
			}
			if len(db.InitDState()) != m.NDStates {
				return &block.ConfigError{Block: m.Name, Reason: fmt.Sprintf("initial state has %d elements, block declares %d", len(db.InitDState()), m.NDStates)}
			}
			p.dstateOffset[b] = p.NDStates
			p.Sampled = append(p.Sampled, db)
			for i := 0; i < m.NDStates; i++ {
				p.DStateNames = append(p.DStateNames, fmt.Sprintf("%s.X%d", m.Name, i))
			}
			p.NDStates += m.NDStates

			c := db.ClockOf()
			if _, known := p.ClockBlocks[c]; !known {
				p.Clocks = append(p.Clocks, c)
			}
			p.ClockBlocks[c] = append(p.ClockBlocks[c], db)
		}
	}
	return nil
}
