package diagram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagsim/diagsim/internal/block"
	"github.com/diagsim/diagsim/internal/blocks"
	"github.com/diagsim/diagsim/internal/diagram"
)

func TestConnectWidthMismatch(t *testing.T) {
	d := diagram.New("widths")
	demux := d.Add(blocks.NewDemux(3))
	sum := d.Add(blocks.NewSum("++"))

	err := d.Connect(block.SliceOf(demux, 0, 3), block.SliceOf(sum, 0, 2))
	require.ErrorIs(t, err, block.ErrWiring)
	assert.Contains(t, err.Error(), "width mismatch")
}

func TestConnectSliceSpreadsOverBareBlock(t *testing.T) {
	d := diagram.New("spread")
	demux := d.Add(blocks.NewDemux(2)).(*blocks.Demux)
	sum := d.Add(blocks.NewSum("++"))

	require.NoError(t, d.Connect(block.SliceOf(demux, 0, 2), sum))
	assert.Len(t, d.Wires, 2)
	assert.Equal(t, 0, d.Wires[0].End.Lo)
	assert.Equal(t, 1, d.Wires[1].End.Lo)
}

func TestConnectRejectsDoubleDrive(t *testing.T) {
	d := diagram.New("fanin")
	a := d.Add(blocks.NewConstant(block.Signal{1}))
	b := d.Add(blocks.NewConstant(block.Signal{2}))
	g := d.Add(blocks.NewGain(1))

	require.NoError(t, d.Connect(a, g))
	err := d.Connect(b, g)
	require.ErrorIs(t, err, block.ErrWiring)
	assert.Contains(t, err.Error(), "already driven")
}

func TestConnectAllowsFanOut(t *testing.T) {
	d := diagram.New("fanout")
	a := d.Add(blocks.NewConstant(block.Signal{1}))
	g1 := d.Add(blocks.NewGain(1))
	g2 := d.Add(blocks.NewGain(2))

	require.NoError(t, d.Connect(a, g1, g2))
	assert.Len(t, d.Wires, 2)
}

func TestConnectForeignBlock(t *testing.T) {
	d := diagram.New("foreign")
	other := blocks.NewConstant(block.Signal{1})
	g := d.Add(blocks.NewGain(1))

	assert.ErrorIs(t, d.Connect(other, g), block.ErrWiring)
}

func TestConnectSinkAsSource(t *testing.T) {
	d := diagram.New("sink-src")
	w := d.Add(blocks.NewWatch())
	g := d.Add(blocks.NewGain(1))

	assert.ErrorIs(t, d.Connect(w, g), block.ErrWiring)
}

func TestCompileUnconnectedPort(t *testing.T) {
	d := diagram.New("incomplete")
	a := d.Add(blocks.NewConstant(block.Signal{1}))
	sum := d.Add(blocks.NewSum("++"))
	w := d.Add(blocks.NewWatch())
	require.NoError(t, d.Connect(a, block.PortOf(sum, 0)))
	require.NoError(t, d.Connect(sum, w))

	_, err := d.Compile()
	require.ErrorIs(t, err, block.ErrUnconnectedPort)

	var upe *block.UnconnectedPortError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, 1, upe.Port)
}

func TestCompileDuplicateNames(t *testing.T) {
	d := diagram.New("dups")
	a := d.Add(blocks.NewConstant(block.Signal{1}))
	b := d.Add(blocks.NewConstant(block.Signal{2}))
	a.Meta().Name = "same"
	b.Meta().Name = "same"
	w := d.Add(blocks.NewWatch())
	w2 := d.Add(blocks.NewWatch())
	require.NoError(t, d.Connect(a, w))
	require.NoError(t, d.Connect(b, w2))

	_, err := d.Compile()
	assert.ErrorIs(t, err, block.ErrStructural)
}

func TestCompileAlgebraicLoop(t *testing.T) {
	d := diagram.New("loop")
	g1 := d.Add(blocks.NewGain(1))
	g2 := d.Add(blocks.NewGain(-1))
	g1.Meta().Name = "fwd"
	g2.Meta().Name = "back"
	require.NoError(t, d.Connect(g1, g2))
	require.NoError(t, d.Connect(g2, g1))

	_, err := d.Compile()
	require.ErrorIs(t, err, block.ErrAlgebraicLoop)

	var ale *block.AlgebraicLoopError
	require.ErrorAs(t, err, &ale)
	assert.Contains(t, ale.Cycle, "fwd")
	assert.Contains(t, ale.Cycle, "back")
}

func TestCompileLegalCycleThroughTransfer(t *testing.T) {
	d := diagram.New("feedback")
	src := d.Add(blocks.NewStep(1, 0, 1))
	sum := d.Add(blocks.NewSum("+-"))
	integ := d.Add(blocks.NewIntegrator(block.Signal{0}))
	w := d.Add(blocks.NewWatch())
	require.NoError(t, d.Connect(src, block.PortOf(sum, 0)))
	require.NoError(t, d.Connect(integ, block.PortOf(sum, 1)))
	require.NoError(t, d.Connect(sum, integ))
	require.NoError(t, d.Connect(integ, w))

	plan, err := d.Compile()
	require.NoError(t, err, "the integrator breaks the cycle")
	assert.Equal(t, 1, plan.NStates)
	assert.Equal(t, []string{"integrator.0.x0"}, plan.StateNames)
}

func TestCompileLevelsAreTopological(t *testing.T) {
	d := diagram.New("levels")
	src := d.Add(blocks.NewConstant(block.Signal{1}))
	g1 := d.Add(blocks.NewGain(2))
	g2 := d.Add(blocks.NewGain(3))
	sum := d.Add(blocks.NewSum("++"))
	w := d.Add(blocks.NewWatch())
	require.NoError(t, d.Connect(src, g1))
	require.NoError(t, d.Connect(g1, g2))
	require.NoError(t, d.Connect(g1, block.PortOf(sum, 0)))
	require.NoError(t, d.Connect(g2, block.PortOf(sum, 1)))
	require.NoError(t, d.Connect(sum, w))

	plan, err := d.Compile()
	require.NoError(t, err)

	level := make(map[string]int)
	for i, group := range plan.Levels {
		for _, b := range group {
			level[b.Meta().Name] = i
		}
	}
	assert.Less(t, level[src.Meta().Name], level[g1.Meta().Name])
	assert.Less(t, level[g1.Meta().Name], level[g2.Meta().Name])
	assert.Less(t, level[g2.Meta().Name], level[sum.Meta().Name])

	// sinks never appear in the evaluation levels
	_, scheduled := level[w.Meta().Name]
	assert.False(t, scheduled)
	assert.Len(t, plan.Sinks, 1)
}

func TestPlanEventsWindow(t *testing.T) {
	d := diagram.New("events")
	s1 := d.Add(blocks.NewStep(1, 0, 1))
	s2 := d.Add(blocks.NewStep(3, 0, 1))
	sum := d.Add(blocks.NewSum("++"))
	w := d.Add(blocks.NewWatch())
	require.NoError(t, d.Connect(s1, block.PortOf(sum, 0)))
	require.NoError(t, d.Connect(s2, block.PortOf(sum, 1)))
	require.NoError(t, d.Connect(sum, w))

	plan, err := d.Compile()
	require.NoError(t, err)

	assert.ElementsMatch(t, []float64{1, 3}, plan.Events(0, 5))
	assert.ElementsMatch(t, []float64{3}, plan.Events(1, 5), "left end is exclusive")
	assert.Empty(t, plan.Events(3, 5))
}

func TestDiagramCopyIsIndependent(t *testing.T) {
	d := diagram.New("copy")
	g := d.Add(blocks.NewGain(2)).(*blocks.Gain)
	c := d.Add(blocks.NewConstant(block.Signal{1}))
	w := d.Add(blocks.NewWatch())
	require.NoError(t, d.Connect(c, g))
	require.NoError(t, d.Connect(g, w))

	cp := d.Copy()
	require.Len(t, cp.Blocks, 3)
	for i := range cp.Blocks {
		assert.NotSame(t, d.Blocks[i], cp.Blocks[i])
	}
	for _, cw := range cp.Wires {
		assert.True(t, containsBlock(cp.Blocks, cw.Start.Block))
		assert.True(t, containsBlock(cp.Blocks, cw.End.Block))
	}

	g.K = 99
	assert.Equal(t, 2.0, cp.Blocks[0].(*blocks.Gain).K)
}

func TestCompileRejectsDemuxWidthMismatch(t *testing.T) {
	b := blocks.NewBuilder("narrow")
	src := b.Constant(1, 2)
	demux := b.Demux(3)
	b.Connect(src, demux)
	for i := 0; i < 3; i++ {
		b.Connect(block.PortOf(demux, i), b.Watch())
	}
	require.NoError(t, b.Err())

	_, err := b.Compile()
	require.ErrorIs(t, err, block.ErrConfiguration)
	assert.Contains(t, err.Error(), "width 2 does not match 3 outputs")
}

func containsBlock(bs []block.Block, b block.Block) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}
