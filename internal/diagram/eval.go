package diagram

import (
	"fmt"

	"github.com/diagsim/diagsim/internal/block"
)

// Evaluator executes a compiled plan at one instant: it scatters the
// global state vectors to the stateful blocks, invokes every
// output-producing block in level order, and copies each output along
// its outgoing wires into the destinations' input slots.
type Evaluator struct {
	plan   *Plan
	inputs [][]block.Signal // by block id, per input port
}

func NewEvaluator(p *Plan) *Evaluator {
	inputs := make([][]block.Signal, len(p.Blocks))
	for i, b := range p.Blocks {
		inputs[i] = make([]block.Signal, b.Meta().NIn)
	}
	return &Evaluator{plan: p, inputs: inputs}
}

// Eval evaluates the whole plan at time t with continuous state x and
// discrete state xd. Sinks are not stepped here; after Eval returns,
// every input slot holds a valid same-instant value.
func (e *Evaluator) Eval(t float64, x, xd block.Signal, checkFinite bool) error {
	for _, tb := range e.plan.Transfers {
		off := e.plan.stateOffset[tb]
		tb.SetState(x[off : off+tb.Meta().NStates])
	}
	for _, db := range e.plan.Sampled {
		off := e.plan.dstateOffset[db]
		db.SetDState(xd[off : off+db.Meta().NDStates])
	}

	for _, level := range e.plan.Levels {
		for _, b := range level {
			m := b.Meta()
			out := b.Output(t, e.inputs[m.ID])
			if len(out) != m.NOut {
				return &block.ConfigError{
					Block:  m.Name,
					Reason: fmt.Sprintf("output has %d values, block declares %d ports", len(out), m.NOut),
				}
			}
			if checkFinite {
				for _, v := range out {
					if !v.IsValid() {
						return &block.NumericalError{Block: m.Name, Time: t, State: x.Clone()}
					}
				}
			}
			for _, w := range e.plan.outgoing[m.ID] {
				v := out[w.Start.Lo]
				w.Width = len(v)
				e.inputs[w.End.Block.Meta().ID][w.End.Lo] = v
			}
		}
	}
	return nil
}

// Derivatives gathers the continuous state derivative from every
// transfer block, in state-layout order. Eval must have run first so
// block inputs are current.
func (e *Evaluator) Derivatives(t float64) (block.Signal, error) {
	xd := make(block.Signal, 0, e.plan.NStates)
	for _, tb := range e.plan.Transfers {
		m := tb.Meta()
		d := tb.Derivative(t, e.inputs[m.ID])
		if len(d) != m.NStates {
			return nil, &block.ConfigError{
				Block:  m.Name,
				Reason: fmt.Sprintf("derivative has %d elements, block declares %d states", len(d), m.NStates),
			}
		}
		xd = append(xd, d...)
	}
	return xd, nil
}

// NextDState computes the updated global discrete state for the blocks
// owned by one clock, leaving other clocks' slices untouched.
func (e *Evaluator) NextDState(t float64, xd block.Signal, c *block.Clock) block.Signal {
	next := xd.Clone()
	for _, db := range e.plan.ClockBlocks[c] {
		m := db.Meta()
		off := e.plan.dstateOffset[db]
		copy(next[off:off+m.NDStates], db.Next(t, e.inputs[m.ID]))
	}
	return next
}

// StepSinks invokes the Step side effect of every sink with its
// current inputs, in deterministic diagram order.
func (e *Evaluator) StepSinks(t float64) error {
	for _, s := range e.plan.Sinks {
		if err := s.Step(t, e.inputs[s.Meta().ID]); err != nil {
			return err
		}
	}
	return nil
}

// Inputs exposes the current input values of one block, used for watch
// recording and diagnostics.
func (e *Evaluator) Inputs(b block.Block) []block.Signal {
	return e.inputs[b.Meta().ID]
}
