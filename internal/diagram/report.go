package diagram

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/diagsim/diagsim/internal/block"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))

// Report writes a tabular summary of the compiled blocks, wires and
// clocked blocks. Diagnostic output only, nothing parses it.
func (p *Plan) Report(out io.Writer) {
	fmt.Fprintln(out, headerStyle.Render("Blocks"))
	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tname\tnin\tnout\tnstate\tndstate\ttype")
	for _, b := range p.Blocks {
		m := b.Meta()
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			m.ID, m.Name, m.NIn, m.NOut, m.NStates, m.NDStates, m.Type)
	}
	tw.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Wires"))
	tw = tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tfrom\tto\tdescription\ttype")
	for _, w := range p.Wires {
		typ := "??"
		if w.Width == 1 {
			typ = "float"
		} else if w.Width > 1 {
			typ = fmt.Sprintf("float[%d]", w.Width)
		}
		fmt.Fprintf(tw, "%d\t%d[%d]\t%d[%d]\t%s --> %s\t%s\n",
			w.ID,
			w.Start.Block.Meta().ID, w.Start.Lo,
			w.End.Block.Meta().ID, w.End.Lo,
			w.Start, w.End, typ)
	}
	tw.Flush()

	if p.NDStates > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, headerStyle.Render("Clocked blocks"))
		tw = tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "id\tblock\tclock\tperiod\toffset")
		for _, db := range p.Sampled {
			c := db.ClockOf()
			fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%g\n", db.Meta().ID, db.Meta().Name, c.Name, c.Period, c.Offset)
		}
		tw.Flush()
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Schedule"))
	tw = tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "sequence\tblocks")
	for seq, group := range p.Levels {
		names := make([]string, 0, len(group))
		for _, b := range group {
			names = append(names, b.Meta().Name)
		}
		fmt.Fprintf(tw, "%d\t%s\n", seq, strings.Join(names, ", "))
	}
	tw.Flush()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "State variables:          %d\n", p.NStates)
	fmt.Fprintf(out, "Discrete state variables: %d\n", p.NDStates)
}

// Dotfile writes a GraphViz representation of the wiring, processable
// with dot or neato.
func (p *Plan) Dotfile(out io.Writer) {
	fmt.Fprintln(out, "digraph G {")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    graph [splines=ortho, rankdir=LR]")
	fmt.Fprintln(out, "    node [shape=box]")
	fmt.Fprintln(out)
	for _, b := range p.Blocks {
		m := b.Meta()
		shape := "box"
		switch m.Kind {
		case block.Source:
			shape = "box3d"
		case block.Sink:
			shape = "folder"
		case block.Transfer, block.Clocked:
			shape = "component"
		}
		fmt.Fprintf(out, "    %q [shape=%s, xlabel=%q]\n", m.Name, shape, m.Type)
	}
	fmt.Fprintln(out)
	for _, w := range p.Wires {
		fmt.Fprintf(out, "    %q -> %q\n", w.Start.Block.Meta().Name, w.End.Block.Meta().Name)
	}
	fmt.Fprintln(out, "}")
}

// PlanDotfile writes the wiring like Dotfile, but clusters blocks by
// their evaluation level so the schedule is visible in the layout.
func (p *Plan) PlanDotfile(out io.Writer) {
	fmt.Fprintln(out, "digraph G {")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    graph [rankdir=LR]")
	fmt.Fprintln(out, "    node [shape=box]")
	for seq, group := range p.Levels {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "    subgraph cluster_%d {\n", seq)
		fmt.Fprintf(out, "        label = \"level %d\"\n", seq)
		for _, b := range group {
			fmt.Fprintf(out, "        %q\n", b.Meta().Name)
		}
		fmt.Fprintln(out, "    }")
	}
	if len(p.Sinks) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "    subgraph cluster_sinks {")
		fmt.Fprintln(out, "        label = \"sinks\"")
		for _, b := range p.Sinks {
			fmt.Fprintf(out, "        %q\n", b.Meta().Name)
		}
		fmt.Fprintln(out, "    }")
	}
	fmt.Fprintln(out)
	for _, w := range p.Wires {
		fmt.Fprintf(out, "    %q -> %q\n", w.Start.Block.Meta().Name, w.End.Block.Meta().Name)
	}
	fmt.Fprintln(out, "}")
}
