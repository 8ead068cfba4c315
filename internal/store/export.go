package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/diagsim/diagsim/internal/sim"
)

type ExportData struct {
	Diagram  string  `json:"diagram"`
	Solver   string  `json:"solver"`
	Dt       float64 `json:"dt"`
	Duration float64 `json:"duration"`

	StateNames []string `json:"state_names"`
	WatchNames []string `json:"watch_names,omitempty"`

	Times   []float64   `json:"times"`
	States  [][]float64 `json:"states"`
	Watched [][]float64 `json:"watched,omitempty"`

	Steps  int `json:"steps"`
	Events int `json:"events"`
}

func exportData(diagramName string, opts sim.Options, results *sim.Results) ExportData {
	return ExportData{
		Diagram:    diagramName,
		Solver:     opts.Solver,
		Dt:         opts.Dt,
		Duration:   opts.T,
		StateNames: results.StateNames,
		WatchNames: results.WatchNames,
		Times:      results.Time,
		States:     results.State,
		Watched:    results.Watched,
		Steps:      results.Steps,
		Events:     results.Events,
	}
}

// ExportJSON writes a run as one self-contained JSON document.
func ExportJSON(path string, diagramName string, opts sim.Options, results *sim.Results) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeExport(file, diagramName, opts, results)
}

// ExportJSONTo writes the export document to an arbitrary writer,
// which the CLI points at stdout.
func ExportJSONTo(w io.Writer, diagramName string, opts sim.Options, results *sim.Results) error {
	return writeExport(w, diagramName, opts, results)
}

func writeExport(w io.Writer, diagramName string, opts sim.Options, results *sim.Results) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(diagramName, opts, results))
}
