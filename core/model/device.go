package model

import (
	"fmt"
	"strconv"
	"strings"
)

// DeviceKind identifies a class of substation equipment.
type DeviceKind string

const (
	KindBreaker     DeviceKind = "breaker"
	KindCapacitor   DeviceKind = "cap"
	KindTap         DeviceKind = "tap"
	KindTransformer DeviceKind = "transformer"
	KindBus         DeviceKind = "bus"
)

// Count returns how many devices of the kind exist in the topology.
func (k DeviceKind) Count() int {
	switch k {
	case KindBreaker:
		return NumBreakers
	case KindCapacitor:
		return NumCapacitors
	case KindTap:
		return NumTaps
	case KindTransformer:
		return NumTransformers
	case KindBus:
		return NumBuses
	default:
		return 0
	}
}

// DeviceID addresses one device. Index is 1-based.
type DeviceID struct {
	Kind  DeviceKind
	Index int
}

// Breaker returns the id of breaker i.
func Breaker(i int) DeviceID { return DeviceID{Kind: KindBreaker, Index: i} }

// Transformer returns the id of transformer j.
func Transformer(j int) DeviceID { return DeviceID{Kind: KindTransformer, Index: j} }

// Valid reports whether the id refers to an existing device.
func (d DeviceID) Valid() bool {
	return d.Index >= 1 && d.Index <= d.Kind.Count()
}

func (d DeviceID) String() string {
	return string(d.Kind) + strconv.Itoa(d.Index)
}

// MarshalText encodes the id as e.g. "breaker3".
func (d DeviceID) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes ids produced by MarshalText.
func (d *DeviceID) UnmarshalText(b []byte) error {
	id, err := ParseDeviceID(string(b))
	if err != nil {
		return err
	}
	*d = id
	return nil
}

// ParseDeviceID parses names such as "breaker1", "transformer3" or "tap2".
func ParseDeviceID(s string) (DeviceID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range []DeviceKind{KindBreaker, KindCapacitor, KindTap, KindTransformer, KindBus} {
		rest, ok := strings.CutPrefix(s, string(k))
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			break
		}
		id := DeviceID{Kind: k, Index: n}
		if !id.Valid() {
			return DeviceID{}, fmt.Errorf("%w: %s", ErrInvalidDevice, s)
		}
		return id, nil
	}
	return DeviceID{}, fmt.Errorf("%w: %q", ErrInvalidDevice, s)
}
