package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/blocks"
	"github.com/diagsim/diagsim/internal/diagram"
)

// Save serializes an authored diagram to the persisted JSON format.
// Blocks are laid out on a simple grid; a round trip through Load
// yields an equivalent diagram, not an identical file.
func Save(d *diagram.Diagram) ([]byte, error) {
	f := File{
		CreatedBy:    "diagsim",
		CreationTime: time.Now().Format(time.RFC3339),
		SceneWidth:   2000,
		SceneHeight:  1200,
	}

	socketID := 0
	socketOf := make(map[block.Block]struct{ in, out []int })

	for i, b := range d.Blocks {
		m := b.Meta()
		pb := Block{
			ID:        i,
			BlockType: m.Type,
			Title:     m.Name,
			PosX:      float64(200 * (i % 8)),
			PosY:      float64(150 * (i / 8)),
		}
		ports := struct{ in, out []int }{}
		for p := 0; p < m.NIn; p++ {
			pb.Inputs = append(pb.Inputs, Socket{ID: socketID, Index: p})
			ports.in = append(ports.in, socketID)
			socketID++
		}
		for p := 0; p < m.NOut; p++ {
			pb.Outputs = append(pb.Outputs, Socket{ID: socketID, Index: p})
			ports.out = append(ports.out, socketID)
			socketID++
		}
		params, err := paramsOf(b)
		if err != nil {
			return nil, err
		}
		pb.Parameters = params
		socketOf[b] = ports
		f.Blocks = append(f.Blocks, pb)
	}

	for i, w := range d.Wires {
		start, okS := socketOf[w.Start.Block]
		end, okE := socketOf[w.End.Block]
		if !okS || !okE {
			return nil, fmt.Errorf("schema: wire %d references a block outside the diagram", i)
		}
		f.Wires = append(f.Wires, Wire{
			ID:          i,
			StartSocket: start.out[w.Start.Lo],
			EndSocket:   end.in[w.End.Lo],
		})
	}

	return json.MarshalIndent(&f, "", "    ")
}

// SaveFile writes the serialized diagram to disk.
func SaveFile(d *diagram.Diagram, path string) error {
	data, err := Save(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// paramsOf extracts the persistable parameters of a catalog block as
// [name, value] pairs matching the registry schema of its type.
func paramsOf(b block.Block) ([][2]any, error) {
	switch v := b.(type) {
	case *blocks.Constant:
		return pairs("value", []float64(v.Value)), nil
	case *blocks.Time:
		return nil, nil
	case *blocks.Step:
		return pairs("t", v.T, "off", v.Off, "on", v.On), nil
	case *blocks.Ramp:
		return pairs("t", v.T, "slope", v.Slope), nil
	case *blocks.Waveform:
		return pairs("wave", v.Wave, "freq", v.Freq, "phase", v.Phase,
			"amplitude", v.Amplitude, "offset", v.Offset, "duty", v.Duty), nil
	case *blocks.Piecewise:
		return pairs("times", v.Times, "values", v.Values), nil
	case *blocks.Gain:
		return pairs("k", v.K), nil
	case *blocks.Sum:
		return pairs("signs", v.Signs, "angles", v.Angles), nil
	case *blocks.Prod:
		return pairs("ops", v.Ops), nil
	case *blocks.Clip:
		return pairs("min", v.Min, "max", v.Max), nil
	case *blocks.Mux:
		return pairs("nin", v.Meta().NIn), nil
	case *blocks.Demux:
		return pairs("nout", v.Meta().NOut), nil
	case *blocks.Integrator:
		p := pairs("x0", []float64(v.X0))
		if v.Min != nil {
			p = append(p, pairs("min", v.Min, "max", v.Max)...)
		}
		return p, nil
	case *blocks.LTISS:
		if v.Meta().Type != "lti_siso" {
			return nil, fmt.Errorf("schema: block %q: state-space blocks cannot be persisted, use lti_siso", v.Meta().Name)
		}
		// controller canonical form is reversible: the first row of A
		// carries the monic denominator, the C row the numerator
		den := []float64{1}
		for _, a := range v.A[0] {
			den = append(den, -a)
		}
		return pairs("num", append([]float64(nil), v.C[0]...), "den", den), nil
	case *blocks.ZOH:
		return pairs("period", v.Clock.Period, "offset", v.Clock.Offset, "x0", []float64(v.X0)), nil
	case *blocks.DIntegrator:
		return pairs("period", v.Clock.Period, "offset", v.Clock.Offset,
			"gain", v.Gain, "x0", []float64(v.X0)), nil
	case *blocks.Scope:
		return pairs("nin", v.Meta().NIn), nil
	case *blocks.Print:
		return pairs("format", v.Format), nil
	case *blocks.Stop:
		return pairs("threshold", v.Threshold), nil
	case *blocks.Watch:
		return nil, nil
	case *blocks.Inport:
		return pairs("nout", v.Meta().NOut), nil
	case *blocks.Outport:
		return pairs("nin", v.Meta().NIn), nil
	}
	return nil, fmt.Errorf("schema: block %q has unsupported type %q", b.Meta().Name, b.Meta().Type)
}

func pairs(kv ...any) [][2]any {
	out := make([][2]any, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, [2]any{kv[i], kv[i+1]})
	}
	return out
}
