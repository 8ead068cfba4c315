package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagsim/diagsim/internal/block"
)

func TestBuilderAssemblesAndCompiles(t *testing.T) {
	b := NewBuilder("feedback")
	src := b.Step(1, 0, 1)
	sum := b.Sum("+-")
	plant := b.Integrator(0)
	w := b.Watch()
	b.Connect(src, block.PortOf(sum, 0))
	b.Connect(plant, block.PortOf(sum, 1))
	b.Connect(sum, plant)
	b.Connect(plant, w)

	plan, err := b.Compile()
	require.NoError(t, err)
	assert.Equal(t, 1, plan.NStates)
	assert.Len(t, plan.Sinks, 1)
}

func TestBuilderSugarWiring(t *testing.T) {
	b := NewBuilder("sugar")
	x := b.Constant(5)
	y := b.Constant(2)
	diff := b.SubOf(x, y)
	scaled := b.ScaleOf(diff, 3)
	w := b.Watch()
	b.Connect(scaled, w)

	require.NoError(t, b.Err())
	assert.Equal(t, "+-", diff.Signs)
	assert.Equal(t, 3.0, scaled.K)

	_, err := b.Compile()
	require.NoError(t, err)
}

func TestBuilderLatchesFirstError(t *testing.T) {
	b := NewBuilder("broken")
	c := b.Constant(1)
	w := b.Watch()
	b.Connect(w, c) // sinks have no outputs
	b.Connect(c, w) // fine, but the first error must stick

	_, err := b.Compile()
	assert.ErrorIs(t, err, block.ErrWiring)
}

func TestBuilderLTISISOLatchesConstructionError(t *testing.T) {
	b := NewBuilder("bad-tf")
	b.LTISISO([]float64{1, 2}, []float64{1, 1}) // improper

	_, err := b.Compile()
	assert.ErrorIs(t, err, block.ErrConfiguration)
}

func TestBuilderName(t *testing.T) {
	b := NewBuilder("named")
	g := b.Gain(2)
	b.Name(g, "forward")
	assert.Equal(t, "forward", g.Meta().Name)
}
