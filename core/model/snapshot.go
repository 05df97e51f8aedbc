package model

import (
	"fmt"
	"time"
)

// Channel names one history time series.
type Channel string

const (
	ChannelTemperature Channel = "temp"
	ChannelPressure    Channel = "sf6"
)

// VoltageChannel returns the voltage channel of bus i (1-based).
func VoltageChannel(bus int) Channel { return Channel(fmt.Sprintf("voltage_bus%d", bus)) }

// CurrentChannel returns the current channel of bus i (1-based).
func CurrentChannel(bus int) Channel { return Channel(fmt.Sprintf("current_bus%d", bus)) }

// LoadChannel returns the load channel of bus i (1-based).
func LoadChannel(bus int) Channel { return Channel(fmt.Sprintf("load_bus%d", bus)) }

// Channels lists every history channel in display order.
func Channels() []Channel {
	out := make([]Channel, 0, 3*NumBuses+2)
	for i := 1; i <= NumBuses; i++ {
		out = append(out, VoltageChannel(i), CurrentChannel(i), LoadChannel(i))
	}
	return append(out, ChannelTemperature, ChannelPressure)
}

// GaugeDefault is the value displayed for a channel that has no samples yet.
func GaugeDefault(c Channel) float64 {
	switch {
	case c == ChannelTemperature:
		return 60
	case c == ChannelPressure:
		return 101325
	case len(c) > 7 && c[:7] == "voltage":
		return 400
	case len(c) > 7 && c[:7] == "current":
		return 120
	default:
		return DefaultLoadMW
	}
}

// BusMeasurement holds the per-tick values of one bus.
type BusMeasurement struct {
	Bus       int     `json:"bus"`
	LoadMW    float64 `json:"load_mw"`
	VoltageKV float64 `json:"voltage_kv"`
	CurrentA  float64 `json:"current_a"`
	Faulted   bool    `json:"faulted"`
	// Tripped is set on the tick that opened the bus breaker.
	Tripped   bool    `json:"tripped"`
}

// FlashFlags mirrors the pending one-shot indicators at snapshot time.
type FlashFlags struct {
	Breakers     [NumBreakers]bool     `json:"breakers"`
	Transformers [NumTransformers]bool `json:"transformers"`
}

// Snapshot is a read-only view of the substation after a tick.
type Snapshot struct {
	Seq          uint64                        `json:"seq"`
	Time         time.Time                     `json:"time"`
	Buses        [NumBuses]BusMeasurement      `json:"buses"`
	TemperatureC float64                       `json:"temperature_c"`
	PressurePa   float64                       `json:"pressure_pa"`
	Alarm        AlarmState                    `json:"alarm"`
	AlarmRaised  bool                          `json:"alarm_raised"`
	Breakers     [NumBreakers]BreakerState     `json:"breakers"`
	Capacitors   [NumCapacitors]CapacitorState `json:"capacitors"`
	Taps         [NumTaps]int                  `json:"taps"`
	Flash        FlashFlags                    `json:"flash"`
	Overload     [NumTransformers]bool         `json:"overload"`
	Lines        [NumTransformers]LineFlow     `json:"lines"`
}

// Currents returns the bus currents in index order.
func (s Snapshot) Currents() [NumBuses]float64 {
	var out [NumBuses]float64
	for i, b := range s.Buses {
		out[i] = b.CurrentA
	}
	return out
}
