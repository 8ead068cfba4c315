package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diagsim/diagsim/internal/sim"
)

func sampleResults() *sim.Results {
	return &sim.Results{
		Time: []float64{0.0, 0.1},
		State: [][]float64{
			{1.0, 0.0},
			{0.9, -0.1},
		},
		StateNames: []string{"plant.x0", "plant.x1"},
		WatchNames: []string{"gain.0[0]"},
		Watched: [][]float64{
			{0.5},
			{0.45},
		},
		Steps:  2,
		Events: 1,
	}
}

func sampleOptions() sim.Options {
	opts := sim.DefaultOptions()
	opts.Solver = "rk4"
	opts.Dt = 0.1
	opts.T = 1.0
	return opts
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("feedback", sampleOptions(), sampleResults())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Diagram != "feedback" {
		t.Errorf("expected diagram 'feedback', got '%s'", meta.Diagram)
	}
	if meta.Solver != "rk4" {
		t.Errorf("expected solver rk4, got %s", meta.Solver)
	}
	if meta.Samples != 2 || meta.Events != 1 {
		t.Errorf("unexpected counters: %+v", meta)
	}
	if len(meta.StateNames) != 2 || meta.StateNames[0] != "plant.x0" {
		t.Errorf("state names not persisted: %v", meta.StateNames)
	}

	times, rows, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(times) != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 samples, got %d times and %d rows", len(times), len(rows))
	}
	// time + 2 states + 1 watched -> 3 value columns
	if len(rows[0]) != 3 {
		t.Errorf("expected 3 columns, got %d", len(rows[0]))
	}
	if rows[1][2] != 0.45 {
		t.Errorf("watched column not persisted: %v", rows[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save("a", sampleOptions(), sampleResults()); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestExportFromStoredRun(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	runID, err := st.Save("feedback", sampleOptions(), sampleResults())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// rebuild results from the stored columns the way the CLI does
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	times, rows, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatal(err)
	}
	results := &sim.Results{
		StateNames: meta.StateNames,
		WatchNames: meta.WatchNames,
		Time:       times,
		Steps:      meta.Steps,
		Events:     meta.Events,
	}
	ns := len(meta.StateNames)
	for _, row := range rows {
		results.State = append(results.State, row[:ns])
		results.Watched = append(results.Watched, row[ns:])
	}

	var buf strings.Builder
	opts := sim.Options{Solver: meta.Solver, Dt: meta.Dt, T: meta.Duration}
	if err := ExportJSONTo(&buf, meta.Diagram, opts, results); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var exported ExportData
	if err := json.Unmarshal([]byte(buf.String()), &exported); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	want := sampleResults()
	if exported.Diagram != "feedback" || exported.Solver != "rk4" {
		t.Errorf("unexpected export header: %+v", exported)
	}
	if len(exported.States) != 2 || exported.States[1][0] != want.State[1][0] {
		t.Errorf("states did not survive the round trip: %v", exported.States)
	}
	if len(exported.Watched) != 2 || exported.Watched[1][0] != want.Watched[1][0] {
		t.Errorf("watched did not survive the round trip: %v", exported.Watched)
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, "feedback", sampleOptions(), sampleResults()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var exported ExportData
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if exported.Diagram != "feedback" || len(exported.Times) != 2 {
		t.Errorf("unexpected export: %+v", exported)
	}
	if len(exported.Watched) != 2 {
		t.Errorf("watched series missing from export: %+v", exported.Watched)
	}
}
