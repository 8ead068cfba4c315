package sim

import (
	"fmt"

	"github.com/diagsim/diagsim/internal/block"
)

// Results holds everything recorded over one run. Rows of State and
// Watched are aligned with Time; State columns follow the compiled
// state layout and are named by StateNames.
type Results struct {
	Time  []float64
	State [][]float64

	StateNames  []string
	DStateNames []string

	// Watched series in Watch list order, one row per sample.
	WatchNames []string
	Watched    [][]float64

	// Steps counts accepted integration steps, Rejected the adaptive
	// retries, Events the handled event instants.
	Steps    int
	Rejected int
	Events   int

	// Stopped reports cooperative termination and the block that
	// requested it.
	Stopped   bool
	StopBlock string
}

// Series returns the recorded watch series with the given name.
func (r *Results) Series(name string) ([]float64, bool) {
	for i, n := range r.WatchNames {
		if n == name {
			out := make([]float64, len(r.Watched))
			for j, row := range r.Watched {
				out[j] = row[i]
			}
			return out, true
		}
	}
	return nil, false
}

// StateSeries returns the recorded series of one named state variable.
func (r *Results) StateSeries(name string) ([]float64, bool) {
	for i, n := range r.StateNames {
		if n == name {
			out := make([]float64, len(r.State))
			for j, row := range r.State {
				out[j] = row[i]
			}
			return out, true
		}
	}
	return nil, false
}

// StopCause reports why a run ended before its full duration: an error
// wrapping block.ErrStopRequested that names the requesting block, or
// nil when the run completed. Run itself returns nil in this case; the
// stop is not a failure.
func (r *Results) StopCause() error {
	if !r.Stopped {
		return nil
	}
	return fmt.Errorf("%s: %w", r.StopBlock, block.ErrStopRequested)
}

// Final returns the last recorded time and state row.
func (r *Results) Final() (float64, []float64) {
	if len(r.Time) == 0 {
		return 0, nil
	}
	return r.Time[len(r.Time)-1], r.State[len(r.State)-1]
}

func (r *Results) sample(t float64, x []float64, watched []float64) {
	r.Time = append(r.Time, t)
	r.State = append(r.State, append([]float64(nil), x...))
	if watched != nil {
		r.Watched = append(r.Watched, watched)
	}
}
