package diagram_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/blocks"
)

func TestReportListsBlocksWiresAndClocks(t *testing.T) {
	b := blocks.NewBuilder("reported")
	src := b.Constant(2)
	di := b.DIntegrator(block.NewClock(0.5, 0.1), 1, 0)
	w := b.Watch()
	b.Connect(src, di)
	b.Connect(di, w)
	plan, err := b.Compile()
	require.NoError(t, err)

	var buf strings.Builder
	plan.Report(&buf)
	out := buf.String()

	assert.Contains(t, out, "constant.0")
	assert.Contains(t, out, "dintegrator.0")
	assert.Contains(t, out, "Clocked blocks")
	assert.Contains(t, out, "0.5")
	assert.Contains(t, out, "Discrete state variables: 1")
}

func TestDotfileEmitsWiring(t *testing.T) {
	b := blocks.NewBuilder("dotted")
	src := b.Constant(1)
	g := b.Gain(2)
	w := b.Watch()
	b.Connect(src, g)
	b.Connect(g, w)
	plan, err := b.Compile()
	require.NoError(t, err)

	var buf strings.Builder
	plan.Dotfile(&buf)
	out := buf.String()
	assert.Contains(t, out, "digraph G {")
	assert.Contains(t, out, `"constant.0" -> "gain.0"`)

	buf.Reset()
	plan.PlanDotfile(&buf)
	out = buf.String()
	assert.Contains(t, out, "cluster_0")
	assert.Contains(t, out, "cluster_sinks")
	assert.Contains(t, out, `"watch.0"`)
}
