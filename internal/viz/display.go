package viz

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/diagsim/diagsim/internal/block"
)

const (
	chartWidth  = 72
	chartHeight = 12
)

// Display collects named time series during a run and renders one chart
// per traced block when the run finalizes. It implements the display
// service contract consumed by scope sinks.
type Display struct {
	mu     sync.Mutex
	w      io.Writer
	traces []*trace
}

type trace struct {
	block string
	label string
	times []float64
	vals  []float64
}

// NewDisplay returns a Display writing charts to w. A nil writer
// defaults to stdout.
func NewDisplay(w io.Writer) *Display {
	if w == nil {
		w = os.Stdout
	}
	return &Display{w: w}
}

// Trace registers a series for the named block and returns the tracer
// the block feeds samples into.
func (d *Display) Trace(name, label string) block.Tracer {
	d.mu.Lock()
	defer d.mu.Unlock()
	tr := &trace{block: name, label: label}
	d.traces = append(d.traces, tr)
	return tr
}

func (tr *trace) Sample(t, v float64) {
	tr.times = append(tr.times, t)
	tr.vals = append(tr.vals, v)
}

// Render plots every trace grouped by block. Traces belonging to the
// same block share one chart with a common legend.
func (d *Display) Render() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	byBlock := make(map[string][]*trace)
	var order []string
	for _, tr := range d.traces {
		if _, seen := byBlock[tr.block]; !seen {
			order = append(order, tr.block)
		}
		byBlock[tr.block] = append(byBlock[tr.block], tr)
	}

	for _, name := range order {
		group := byBlock[name]
		if err := d.renderGroup(name, group); err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) renderGroup(name string, group []*trace) error {
	series := make([][]float64, 0, len(group))
	labels := make([]string, 0, len(group))
	for _, tr := range group {
		if len(tr.vals) < 2 {
			continue
		}
		series = append(series, tr.vals)
		labels = append(labels, tr.label)
	}
	if len(series) == 0 {
		return nil
	}

	var chart string
	if len(series) == 1 {
		chart = asciigraph.Plot(series[0],
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption(timeCaption(group[0].times)))
	} else {
		chart = asciigraph.PlotMany(series,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption(timeCaption(group[0].times)))
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(name))
	b.WriteString("\n")
	b.WriteString(legendStyle.Render(strings.Join(labels, "  ")))
	b.WriteString("\n")
	b.WriteString(chartStyle.Render(chart))
	b.WriteString("\n\n")
	_, err := io.WriteString(d.w, b.String())
	return err
}

func timeCaption(times []float64) string {
	if len(times) == 0 {
		return ""
	}
	return fmt.Sprintf("t = %.3g .. %.3g", times[0], times[len(times)-1])
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	legendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	chartStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)
