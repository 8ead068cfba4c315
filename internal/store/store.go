// Package store persists run results on disk: one directory per run
// holding metadata.json and samples.csv, plus a standalone JSON export.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/diagsim/diagsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Diagram   string    `json:"diagram"`
	Timestamp time.Time `json:"timestamp"`
	Solver    string    `json:"solver"`
	Dt        float64   `json:"dt"`
	Duration  float64   `json:"duration"`
	Adaptive  bool      `json:"adaptive"`

	StateNames []string `json:"state_names"`
	WatchNames []string `json:"watch_names,omitempty"`

	Samples  int    `json:"samples"`
	Steps    int    `json:"steps"`
	Rejected int    `json:"rejected"`
	Events   int    `json:"events"`
	Stopped  bool   `json:"stopped,omitempty"`
	StopBy   string `json:"stopped_by,omitempty"`
}

// Save persists one run and returns its generated id. The CSV carries
// one row per sample: time, then state columns named by the layout,
// then watched columns.
func (s *Store) Save(diagramName string, opts sim.Options, results *sim.Results) (string, error) {
	runID := fmt.Sprintf("%s_%d", diagramName, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Diagram:    diagramName,
		Timestamp:  time.Now(),
		Solver:     opts.Solver,
		Dt:         opts.Dt,
		Duration:   opts.T,
		Adaptive:   opts.Adaptive,
		StateNames: results.StateNames,
		WatchNames: results.WatchNames,
		Samples:    len(results.Time),
		Steps:      results.Steps,
		Rejected:   results.Rejected,
		Events:     results.Events,
		Stopped:    results.Stopped,
		StopBy:     results.StopBlock,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"time"}
	header = append(header, results.StateNames...)
	header = append(header, results.WatchNames...)
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range results.Time {
		row := []string{strconv.FormatFloat(results.Time[i], 'g', -1, 64)}
		for _, val := range results.State[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if i < len(results.Watched) {
			for _, val := range results.Watched[i] {
				row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// List returns metadata of every stored run, skipping unreadable
// entries.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSamples reads back the recorded rows of one run.
func (s *Store) LoadSamples(runID string) (times []float64, rows [][]float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				row = append(row, 0)
				continue
			}
			row = append(row, val)
		}
		times = append(times, t)
		rows = append(rows, row)
	}
	return times, rows, nil
}
