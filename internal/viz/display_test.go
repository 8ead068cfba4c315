package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayRendersTracedSeries(t *testing.T) {
	var out strings.Builder
	d := NewDisplay(&out)

	tr := d.Trace("scope", "y[0]")
	for i := 0; i <= 100; i++ {
		tt := float64(i) * 0.05
		tr.Sample(tt, math.Sin(tt))
	}

	require.NoError(t, d.Render())
	got := out.String()
	assert.Contains(t, got, "scope")
	assert.Contains(t, got, "y[0]")
	assert.Contains(t, got, "t = 0 .. 5")
}

func TestDisplayGroupsTracesByBlock(t *testing.T) {
	var out strings.Builder
	d := NewDisplay(&out)

	a := d.Trace("scope", "a")
	b := d.Trace("scope", "b")
	for i := 0; i < 10; i++ {
		a.Sample(float64(i), float64(i))
		b.Sample(float64(i), float64(-i))
	}

	require.NoError(t, d.Render())
	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "a  b"), "both labels share one legend")
}

func TestDisplaySkipsEmptyTraces(t *testing.T) {
	var out strings.Builder
	d := NewDisplay(&out)

	d.Trace("scope", "never sampled")
	require.NoError(t, d.Render())
	assert.Empty(t, out.String())
}

func TestSparkline(t *testing.T) {
	vals := make([]float64, 40)
	for i := range vals {
		vals[i] = float64(i)
	}
	s := Sparkline(vals, 20)
	assert.NotEmpty(t, s)

	assert.Equal(t, strings.Repeat("─", 8), Sparkline(nil, 8))
}

func TestSeriesSVG(t *testing.T) {
	times := []float64{0, 1, 2, 3}
	vals := []float64{0, 1, 0, -1}
	svg := SeriesSVG(times, vals, 200, 100, "#00ff88")
	assert.Contains(t, svg, "<svg")
	assert.Contains(t, svg, "#00ff88")

	assert.Empty(t, SeriesSVG(times[:1], vals[:1], 200, 100, "#fff"))
}
