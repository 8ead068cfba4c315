// Package schema reads and writes the persisted diagram format: a JSON
// document with visual-editor provenance, carrying blocks (type, title,
// position, parameters as [name, value] pairs, sockets with stable
// ids), and wires referencing socket ids. Loading ignores layout and
// reconstructs the in-memory diagram from types, parameters and socket
// wiring alone.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/diagram"
	"github.com/diagsim/diagsim/internal/registry"
)

// ConnectorType names the editor's pass-through routing block. It
// carries no behavior; loading splices its single input to its single
// output.
const ConnectorType = "CONNECTOR"

// MainType names the editor's settings pseudo-block, skipped entirely.
const MainType = "MAIN"

// File is the top-level persisted document.
type File struct {
	ID             int     `json:"id"`
	CreatedBy      string  `json:"created_by,omitempty"`
	CreationTime   string  `json:"creation_time,omitempty"`
	SimulationTime float64 `json:"simulation_time,omitempty"`
	SceneWidth     float64 `json:"scene_width"`
	SceneHeight    float64 `json:"scene_height"`
	Blocks         []Block `json:"blocks"`
	Wires          []Wire  `json:"wires"`
}

// Block is one persisted block.
type Block struct {
	ID        int      `json:"id"`
	BlockType string   `json:"block_type"`
	Title     string   `json:"title"`
	PosX      float64  `json:"pos_x"`
	PosY      float64  `json:"pos_y"`
	Flipped   bool     `json:"flipped,omitempty"`
	Inputs    []Socket `json:"inputs"`
	Outputs   []Socket `json:"outputs"`

	// Parameters is a list of [name, value] pairs, preserving the
	// editor's declaration order.
	Parameters [][2]any `json:"parameters"`
}

// Socket is one persisted port endpoint with a file-wide unique id.
type Socket struct {
	ID    int `json:"id"`
	Index int `json:"index"`
}

// Wire joins two sockets by id.
type Wire struct {
	ID          int `json:"id"`
	StartSocket int `json:"start_socket"`
	EndSocket   int `json:"end_socket"`
}

// Load reconstructs a diagram from persisted JSON, instantiating every
// block through the registry. Connector blocks are resolved away;
// positions, flips and scene dimensions are ignored.
func Load(data []byte, name string, reg *registry.Registry) (*diagram.Diagram, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return f.Diagram(name, reg)
}

// LoadFile reads and reconstructs a diagram from a file on disk.
func LoadFile(path string, reg *registry.Registry) (*diagram.Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(path[strings.LastIndexByte(path, '/')+1:], ".json")
	return Load(data, name, reg)
}

// Diagram builds the in-memory diagram described by the file.
func (f *File) Diagram(name string, reg *registry.Registry) (*diagram.Diagram, error) {
	d := diagram.New(name)

	outPlug := make(map[int]block.Plug)  // output socket id -> source plug
	inPlug := make(map[int]block.Plug)   // input socket id -> destination plug
	inputsOf := make(map[int][]Socket)   // real block id -> its input sockets
	connector := make(map[int]int)       // connector output socket -> its input socket
	wireStart := make(map[int]int)       // end socket id -> start socket id

	for _, pb := range f.Blocks {
		switch pb.BlockType {
		case MainType:
			continue
		case ConnectorType:
			if len(pb.Inputs) != 1 || len(pb.Outputs) != 1 {
				return nil, fmt.Errorf("schema: connector %d must have one input and one output", pb.ID)
			}
			connector[pb.Outputs[0].ID] = pb.Inputs[0].ID
			continue
		}

		params := make(map[string]any, len(pb.Parameters))
		for _, pair := range pb.Parameters {
			pname, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("schema: block %q has a non-string parameter name", pb.Title)
			}
			params[pname] = pair[1]
		}

		blk, err := reg.Build(strings.ToLower(pb.BlockType), params)
		if err != nil {
			return nil, err
		}
		d.Add(blk)
		if pb.Title != "" {
			blk.Meta().Name = pb.Title
		}

		m := blk.Meta()
		if len(pb.Inputs) != m.NIn || len(pb.Outputs) != m.NOut {
			return nil, block.ConfigErrorf(m.Name, "file declares %d inputs and %d outputs, block has %d and %d",
				len(pb.Inputs), len(pb.Outputs), m.NIn, m.NOut)
		}
		for _, s := range pb.Outputs {
			outPlug[s.ID] = block.PortOf(blk, s.Index)
		}
		for _, s := range pb.Inputs {
			inPlug[s.ID] = block.PortOf(blk, s.Index)
		}
		inputsOf[pb.ID] = pb.Inputs
	}

	for _, w := range f.Wires {
		wireStart[w.EndSocket] = w.StartSocket
	}

	// wire every real input port back to a real output, hopping over
	// connectors
	for _, pb := range f.Blocks {
		for _, in := range inputsOf[pb.ID] {
			startID, wired := wireStart[in.ID]
			if !wired {
				continue // surfaced by the compile completeness check
			}
			hops := 0
			for {
				inSocket, isConnector := connector[startID]
				if !isConnector {
					break
				}
				startID, wired = wireStart[inSocket]
				if !wired {
					return nil, fmt.Errorf("schema: connector chain into socket %d is broken", in.ID)
				}
				if hops++; hops > len(f.Blocks) {
					return nil, fmt.Errorf("schema: connector cycle into socket %d", in.ID)
				}
			}
			src, ok := outPlug[startID]
			if !ok {
				return nil, fmt.Errorf("schema: wire into socket %d starts at unknown socket %d", in.ID, startID)
			}
			if err := d.Connect(src, inPlug[in.ID]); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}
