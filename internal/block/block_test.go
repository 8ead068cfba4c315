package block

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalClone(t *testing.T) {
	s := Signal{1, 2, 3}
	c := s.Clone()
	c[0] = 9
	assert.Equal(t, 1.0, s[0])
}

func TestSignalIsValid(t *testing.T) {
	assert.True(t, Signal{1, -2, 0}.IsValid())
	assert.False(t, Signal{1, math.NaN()}.IsValid())
	assert.False(t, Signal{math.Inf(1)}.IsValid())
}

func TestSignalNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Signal{3, 4}.Norm(), 1e-12)
}

func TestPlugWidthAndPorts(t *testing.T) {
	b := &Base{meta: Meta{Type: "gain", Name: "g"}}
	p := PortOf(blockOf(b), 2)
	assert.Equal(t, 1, p.Width())
	assert.Equal(t, []int{2}, p.Ports())
	assert.Equal(t, "g[2]", p.String())

	sl := SliceOf(blockOf(b), 1, 4)
	assert.Equal(t, 3, sl.Width())
	assert.Equal(t, []int{1, 2, 3}, sl.Ports())
	assert.Equal(t, "g[1:4]", sl.String())
}

// blockOf adapts a bare Base into a Block for plug tests.
type baseBlock struct{ *Base }

func (b baseBlock) Clone() Block                      { return b }
func (b baseBlock) Output(float64, []Signal) []Signal { return nil }

func blockOf(base *Base) Block { return baseBlock{base} }

func TestClockNextFire(t *testing.T) {
	c := NewClock(0.5, 0)
	assert.InDelta(t, 0.5, c.NextFire(0), 1e-12, "first tick is strictly after zero")
	assert.InDelta(t, 1.0, c.NextFire(0.5), 1e-12)
	assert.InDelta(t, 1.0, c.NextFire(0.7), 1e-12)
}

func TestClockNextFireWithOffset(t *testing.T) {
	c := NewClock(1, 0.25)
	assert.InDelta(t, 0.25, c.NextFire(0), 1e-12)
	assert.InDelta(t, 1.25, c.NextFire(0.25), 1e-12)
	assert.InDelta(t, 1.25, c.NextFire(1.0), 1e-12)
}

func TestClockNextFireFloatDrift(t *testing.T) {
	c := NewClock(0.1, 0)
	t0 := 0.0
	for i := 0; i < 1000; i++ {
		next := c.NextFire(t0)
		assert.Greater(t, next, t0)
		t0 = next
	}
	assert.InDelta(t, 100.0, t0, 1e-6)
}

func TestErrorUnwrapping(t *testing.T) {
	var err error = &ConfigError{Block: "g", Reason: "bad gain"}
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "g")

	err = ConfigErrorf("sum", "signs %q", "+*")
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), `"+*"`)

	err = &WiringError{From: "a[0]", To: "b[0]", Reason: "width mismatch"}
	assert.ErrorIs(t, err, ErrWiring)

	err = &UnconnectedPortError{Block: "sum", Port: 1}
	assert.ErrorIs(t, err, ErrUnconnectedPort)

	err = &StructuralError{Diagram: "d", Reason: "recursive inclusion"}
	assert.ErrorIs(t, err, ErrStructural)

	err = &AlgebraicLoopError{Cycle: []string{"a", "b", "a"}}
	assert.ErrorIs(t, err, ErrAlgebraicLoop)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrWiring, ErrConfiguration))
	assert.False(t, errors.Is(ErrAlgebraicLoop, ErrStructural))
}
