package model

import "fmt"

// Fixed topology of the simulated substation.
const (
	NumBuses        = 4
	NumBreakers     = 6
	NumCapacitors   = 4
	NumTaps         = 4
	NumTransformers = 3
)

// HistoryCapacity is the number of samples kept per history channel.
const HistoryCapacity = 50

// Operating limits accepted by the engine.
const (
	MinLoadMW = 50.0
	MaxLoadMW = 200.0
	MinTap    = 0
	MaxTap    = 10
)

// DefaultLoadMW is the initial load setpoint of every bus.
const DefaultLoadMW = 100.0

// DefaultOverloadThresholdA is the transformer current limit above which the
// overload latch is set.
const DefaultOverloadThresholdA = 130.0

// BreakerState is the switching position of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
)

// String returns a human-readable representation of the breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "Closed"
	case BreakerOpen:
		return "Open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s BreakerState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes "Closed" or "Open".
func (s *BreakerState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Closed":
		*s = BreakerClosed
	case "Open":
		*s = BreakerOpen
	default:
		return fmt.Errorf("%w: breaker state %q", ErrInvalidInput, b)
	}
	return nil
}

// CapacitorState is the switching position of a capacitor bank.
type CapacitorState int

const (
	CapacitorOff CapacitorState = iota
	CapacitorOn
)

func (s CapacitorState) String() string {
	switch s {
	case CapacitorOff:
		return "Off"
	case CapacitorOn:
		return "On"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its name.
func (s CapacitorState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes "On" or "Off".
func (s *CapacitorState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Off":
		*s = CapacitorOff
	case "On":
		*s = CapacitorOn
	default:
		return fmt.Errorf("%w: capacitor state %q", ErrInvalidInput, b)
	}
	return nil
}

// AlarmState is the single system-wide alarm annunciator.
type AlarmState string

const (
	AlarmNone          AlarmState = "None"
	AlarmFaultDetected AlarmState = "Fault Detected"
)

// Active reports whether an alarm is raised.
func (a AlarmState) Active() bool { return a != "" && a != AlarmNone }
