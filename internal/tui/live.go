// Package tui shows watched signals live while a run is in progress.
//
// A [Live] view is wired into the run through the per-sample callback in
// the simulation options. Samples are forwarded to the Bubble Tea program
// from the scheduler goroutine; the view renders a sparkline and the
// current value per watched signal plus overall progress.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diagsim/diagsim/internal/viz"
)

const historyCap = 240

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Live drives a terminal view of watched signals for one run.
type Live struct {
	program *tea.Program
}

type sampleMsg struct {
	t       float64
	watched []float64
}

type doneMsg struct{ err error }

// NewLive builds a view for the given watch labels over a run ending at
// tFinal.
func NewLive(title string, labels []string, tFinal float64) *Live {
	m := model{
		title:   title,
		labels:  labels,
		tFinal:  tFinal,
		history: make([][]float64, len(labels)),
		started: time.Now(),
	}
	return &Live{program: tea.NewProgram(m)}
}

// OnSample forwards one accepted-step sample to the view. Safe to call
// from the scheduler goroutine.
func (l *Live) OnSample(t float64, watched []float64) {
	vals := make([]float64, len(watched))
	copy(vals, watched)
	l.program.Send(sampleMsg{t: t, watched: vals})
}

// Done tells the view the run ended; the view stays up until the user
// quits so the final state remains readable.
func (l *Live) Done(err error) {
	l.program.Send(doneMsg{err: err})
}

// Run blocks until the user quits the view.
func (l *Live) Run() error {
	_, err := l.program.Run()
	return err
}

type model struct {
	title   string
	labels  []string
	tFinal  float64
	t       float64
	history [][]float64
	done    bool
	runErr  error
	started time.Time
	samples int
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case sampleMsg:
		m.t = msg.t
		m.samples++
		for i := range m.labels {
			if i >= len(msg.watched) {
				break
			}
			m.history[i] = append(m.history[i], msg.watched[i])
			if len(m.history[i]) > historyCap {
				m.history[i] = m.history[i][1:]
			}
		}
	case doneMsg:
		m.done = true
		m.runErr = msg.err
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(cyan.Render(m.title) + "\n\n")

	status := green.Render("running")
	if m.done {
		if m.runErr != nil {
			status = yellow.Render("failed: " + m.runErr.Error())
		} else {
			status = dim.Render("complete")
		}
	}
	progress := 0.0
	if m.tFinal > 0 {
		progress = m.t / m.tFinal
	}
	s.WriteString(fmt.Sprintf("  %s  t=%.3f/%.3f  %s\n\n",
		viz.ProgressBar(progress, 30), m.t, m.tFinal, status))

	for i, label := range m.labels {
		hist := m.history[i]
		cur := 0.0
		if len(hist) > 0 {
			cur = hist[len(hist)-1]
		}
		s.WriteString(fmt.Sprintf("  %s %s %s\n",
			white.Render(fmt.Sprintf("%-16s", label)),
			viz.Sparkline(hist, 40),
			dim.Render(fmt.Sprintf("% .4g", cur))))
	}

	s.WriteString(dim.Render(fmt.Sprintf("\n  %d samples, %.1fs elapsed",
		m.samples, time.Since(m.started).Seconds())))
	s.WriteString(dim.Render("\n  q: quit"))
	return s.String()
}
