// Package metrics summarizes recorded run series: per-signal extrema,
// mean, RMS and final value, computed after a run completes.
package metrics

import (
	"math"

	"github.com/diagsim/diagsim/internal/sim"
)

// Summary holds the statistics of one recorded series.
type Summary struct {
	Name  string
	Min   float64
	Max   float64
	Mean  float64
	RMS   float64
	Final float64
}

// Summarize computes a Summary per state and watched column, in layout
// order. Runs with no samples yield nil.
func Summarize(r *sim.Results) []Summary {
	if len(r.Time) == 0 {
		return nil
	}
	var out []Summary
	for i, name := range r.StateNames {
		out = append(out, column(name, r.State, i))
	}
	for i, name := range r.WatchNames {
		out = append(out, column(name, r.Watched, i))
	}
	return out
}

func column(name string, rows [][]float64, col int) Summary {
	s := Summary{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
	n := 0
	sumSq := 0.0
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		v := row[col]
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		s.Mean += v
		sumSq += v * v
		s.Final = v
		n++
	}
	if n == 0 {
		return Summary{Name: name}
	}
	s.Mean /= float64(n)
	s.RMS = math.Sqrt(sumSq / float64(n))
	return s
}
