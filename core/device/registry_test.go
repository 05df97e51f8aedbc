package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/substation/core/model"
)

func TestInitialState(t *testing.T) {
	r := NewRegistry()
	var s model.Snapshot
	r.Fill(&s)
	for i, b := range s.Breakers {
		assert.Equal(t, model.BreakerClosed, b, "breaker%d", i+1)
		assert.False(t, s.Flash.Breakers[i])
	}
	for _, c := range s.Capacitors {
		assert.Equal(t, model.CapacitorOff, c)
	}
	assert.Equal(t, [model.NumTaps]int{}, s.Taps)
	assert.Equal(t, [model.NumBuses]bool{}, r.Faults())
}

func TestToggleBreaker(t *testing.T) {
	r := NewRegistry()
	st, err := r.ToggleBreaker(2)
	require.NoError(t, err)
	assert.Equal(t, model.BreakerOpen, st)
	flash, err := r.ConsumeFlash(model.Breaker(2))
	require.NoError(t, err)
	assert.True(t, flash)

	st, err = r.ToggleBreaker(2)
	require.NoError(t, err)
	assert.Equal(t, model.BreakerClosed, st)
}

func TestToggleBreakerInvalid(t *testing.T) {
	r := NewRegistry()
	for _, id := range []int{0, 7, -1} {
		_, err := r.ToggleBreaker(id)
		assert.True(t, errors.Is(err, model.ErrInvalidDevice), "id %d", id)
	}
}

func TestTripBreakerNeverCloses(t *testing.T) {
	r := NewRegistry()
	wasClosed, err := r.TripBreaker(1)
	require.NoError(t, err)
	assert.True(t, wasClosed)
	wasClosed, err = r.TripBreaker(1)
	require.NoError(t, err)
	assert.False(t, wasClosed)
	st, _ := r.Breaker(1)
	assert.Equal(t, model.BreakerOpen, st)
}

func TestConsumeFlashOnce(t *testing.T) {
	r := NewRegistry()
	_, _ = r.ToggleBreaker(5)
	first, _ := r.ConsumeFlash(model.Breaker(5))
	second, _ := r.ConsumeFlash(model.Breaker(5))
	assert.True(t, first)
	assert.False(t, second)
}

func TestPeekFlashDoesNotReset(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.FlashTransformer(3))
	v, err := r.PeekFlash(model.Transformer(3))
	require.NoError(t, err)
	assert.True(t, v)
	v, _ = r.ConsumeFlash(model.Transformer(3))
	assert.True(t, v)
}

func TestConsumeFlashInvalidDevice(t *testing.T) {
	r := NewRegistry()
	_, err := r.ConsumeFlash(model.DeviceID{Kind: model.KindCapacitor, Index: 1})
	assert.ErrorIs(t, err, model.ErrInvalidDevice)
	_, err = r.ConsumeFlash(model.Transformer(4))
	assert.ErrorIs(t, err, model.ErrInvalidDevice)
}

func TestCapacitorToggle(t *testing.T) {
	r := NewRegistry()
	st, err := r.ToggleCapacitor(4)
	require.NoError(t, err)
	assert.Equal(t, model.CapacitorOn, st)
	st, _ = r.ToggleCapacitor(4)
	assert.Equal(t, model.CapacitorOff, st)
	_, err = r.ToggleCapacitor(5)
	assert.ErrorIs(t, err, model.ErrInvalidDevice)
}

func TestSetTap(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetTap(1, 10))
	pos, _ := r.Tap(1)
	assert.Equal(t, 10, pos)

	err := r.SetTap(1, 11)
	assert.ErrorIs(t, err, model.ErrOutOfRange)
	pos, _ = r.Tap(1)
	assert.Equal(t, 10, pos, "rejected call leaves previous value")

	assert.ErrorIs(t, r.SetTap(1, -1), model.ErrOutOfRange)
	assert.ErrorIs(t, r.SetTap(5, 3), model.ErrInvalidDevice)
}

func TestSetFault(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.SetFault(3, true))
	assert.Equal(t, [model.NumBuses]bool{false, false, true, false}, r.Faults())
	assert.ErrorIs(t, r.SetFault(0, true), model.ErrInvalidDevice)
}
