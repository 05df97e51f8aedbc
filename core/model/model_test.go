package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceID(t *testing.T) {
	cases := []struct {
		in   string
		want DeviceID
	}{
		{"breaker1", Breaker(1)},
		{"Breaker6", Breaker(6)},
		{"transformer3", Transformer(3)},
		{"cap4", DeviceID{Kind: KindCapacitor, Index: 4}},
		{"tap2", DeviceID{Kind: KindTap, Index: 2}},
		{"bus1", DeviceID{Kind: KindBus, Index: 1}},
	}
	for _, c := range cases {
		got, err := ParseDeviceID(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got)
		assert.Equal(t, c.want.String(), got.String())
	}
}

func TestParseDeviceIDInvalid(t *testing.T) {
	for _, in := range []string{"breaker7", "breaker0", "transformer4", "relay1", "breaker", ""} {
		_, err := ParseDeviceID(in)
		if !errors.Is(err, ErrInvalidDevice) {
			t.Errorf("%q: expected ErrInvalidDevice, got %v", in, err)
		}
	}
}

func TestClassifyFlow(t *testing.T) {
	assert.Equal(t, FlowNormal, ClassifyFlow(1, 109.99).Level)
	assert.Equal(t, 2, ClassifyFlow(1, 100).Width)
	assert.Equal(t, FlowElevated, ClassifyFlow(2, 110).Level)
	assert.Equal(t, FlowElevated, ClassifyFlow(2, 124.99).Level)
	lf := ClassifyFlow(3, 125)
	assert.Equal(t, FlowHeavy, lf.Level)
	assert.Equal(t, 6, lf.Width)
	assert.Equal(t, 3, lf.Line)
}

func TestChannels(t *testing.T) {
	ch := Channels()
	assert.Len(t, ch, 14)
	assert.Equal(t, Channel("voltage_bus1"), ch[0])
	assert.Equal(t, ChannelPressure, ch[len(ch)-1])
	assert.Equal(t, 400.0, GaugeDefault(VoltageChannel(2)))
	assert.Equal(t, 120.0, GaugeDefault(CurrentChannel(4)))
	assert.Equal(t, 60.0, GaugeDefault(ChannelTemperature))
	assert.Equal(t, 101325.0, GaugeDefault(ChannelPressure))
}

func TestAlarmActive(t *testing.T) {
	assert.False(t, AlarmNone.Active())
	assert.True(t, AlarmFaultDetected.Active())
}
