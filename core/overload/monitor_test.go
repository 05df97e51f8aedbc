package overload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/substation/core/model"
)

func TestLatchMonotonic(t *testing.T) {
	m := NewMonitor(0)
	assert.Equal(t, 130.0, m.Threshold())

	latched, newly := m.Evaluate([3]float64{131, 120, 130})
	assert.Equal(t, [3]bool{true, false, false}, latched)
	assert.Equal(t, [3]bool{true, false, false}, newly)

	for _, c := range []float64{100, 0, 129.99} {
		latched, newly = m.Evaluate([3]float64{c, c, c})
		assert.True(t, latched[0], "latch must stay on at %f", c)
		assert.False(t, newly[0])
	}
}

func TestThresholdIsStrict(t *testing.T) {
	m := NewMonitor(130)
	latched, _ := m.Evaluate([3]float64{130, 130, 130})
	assert.Equal(t, [3]bool{}, latched)
}

func TestReset(t *testing.T) {
	m := NewMonitor(130)
	m.Evaluate([3]float64{200, 200, 200})
	assert.NoError(t, m.Reset(2))
	assert.Equal(t, [3]bool{true, false, true}, m.Latched())

	_, newly := m.Evaluate([3]float64{200, 200, 200})
	assert.Equal(t, [3]bool{false, true, false}, newly)

	m.ResetAll()
	assert.Equal(t, [3]bool{}, m.Latched())
	assert.ErrorIs(t, m.Reset(4), model.ErrInvalidDevice)
}

func TestTransformerCurrents(t *testing.T) {
	got := TransformerCurrents([4]float64{1, 2, 3, 4})
	assert.Equal(t, [3]float64{1, 2, 3}, got)
}
