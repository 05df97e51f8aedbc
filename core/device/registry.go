// Package device holds the switching state of the substation equipment.
package device

import (
	"fmt"

	"github.com/kilianp07/substation/core/model"
)

// Registry stores breaker, capacitor and tap positions, fault injection
// flags and the one-shot flash indicators. Indices in the public API are
// 1-based. Registry is not safe for concurrent use.
type Registry struct {
	breakers   [model.NumBreakers]model.BreakerState
	capacitors [model.NumCapacitors]model.CapacitorState
	taps       [model.NumTaps]int
	faults     [model.NumBuses]bool

	breakerFlash     [model.NumBreakers]bool
	transformerFlash [model.NumTransformers]bool
}

// NewRegistry returns a registry with all breakers closed, capacitors off,
// taps at 0 and no faults injected.
func NewRegistry() *Registry { return &Registry{} }

func checkIndex(kind model.DeviceKind, id int) error {
	if !(model.DeviceID{Kind: kind, Index: id}).Valid() {
		return fmt.Errorf("%w: %s%d", model.ErrInvalidDevice, kind, id)
	}
	return nil
}

// Breaker returns the state of breaker id.
func (r *Registry) Breaker(id int) (model.BreakerState, error) {
	if err := checkIndex(model.KindBreaker, id); err != nil {
		return 0, err
	}
	return r.breakers[id-1], nil
}

// ToggleBreaker flips breaker id and raises its flash flag.
func (r *Registry) ToggleBreaker(id int) (model.BreakerState, error) {
	if err := checkIndex(model.KindBreaker, id); err != nil {
		return 0, err
	}
	if r.breakers[id-1] == model.BreakerClosed {
		r.breakers[id-1] = model.BreakerOpen
	} else {
		r.breakers[id-1] = model.BreakerClosed
	}
	r.breakerFlash[id-1] = true
	return r.breakers[id-1], nil
}

// TripBreaker forces breaker id open and raises its flash flag. It reports
// whether the breaker was closed before the trip.
func (r *Registry) TripBreaker(id int) (bool, error) {
	if err := checkIndex(model.KindBreaker, id); err != nil {
		return false, err
	}
	wasClosed := r.breakers[id-1] == model.BreakerClosed
	r.breakers[id-1] = model.BreakerOpen
	r.breakerFlash[id-1] = true
	return wasClosed, nil
}

// ToggleCapacitor flips capacitor bank id.
func (r *Registry) ToggleCapacitor(id int) (model.CapacitorState, error) {
	if err := checkIndex(model.KindCapacitor, id); err != nil {
		return 0, err
	}
	if r.capacitors[id-1] == model.CapacitorOff {
		r.capacitors[id-1] = model.CapacitorOn
	} else {
		r.capacitors[id-1] = model.CapacitorOff
	}
	return r.capacitors[id-1], nil
}

// Tap returns the position of tap changer id.
func (r *Registry) Tap(id int) (int, error) {
	if err := checkIndex(model.KindTap, id); err != nil {
		return 0, err
	}
	return r.taps[id-1], nil
}

// SetTap overwrites the position of tap changer id.
func (r *Registry) SetTap(id, position int) error {
	if err := checkIndex(model.KindTap, id); err != nil {
		return err
	}
	if position < model.MinTap || position > model.MaxTap {
		return fmt.Errorf("%w: tap%d position %d not in [%d,%d]", model.ErrOutOfRange, id, position, model.MinTap, model.MaxTap)
	}
	r.taps[id-1] = position
	return nil
}

// SetFault sets the persistent fault injection flag of bus id.
func (r *Registry) SetFault(bus int, faulted bool) error {
	if err := checkIndex(model.KindBus, bus); err != nil {
		return err
	}
	r.faults[bus-1] = faulted
	return nil
}

// Faults returns the persistent fault flags in bus order.
func (r *Registry) Faults() [model.NumBuses]bool { return r.faults }

// FlashTransformer raises the flash flag of transformer id.
func (r *Registry) FlashTransformer(id int) error {
	if err := checkIndex(model.KindTransformer, id); err != nil {
		return err
	}
	r.transformerFlash[id-1] = true
	return nil
}

func (r *Registry) flashSlot(dev model.DeviceID) (*bool, error) {
	switch dev.Kind {
	case model.KindBreaker:
		if dev.Valid() {
			return &r.breakerFlash[dev.Index-1], nil
		}
	case model.KindTransformer:
		if dev.Valid() {
			return &r.transformerFlash[dev.Index-1], nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no flash indicator", model.ErrInvalidDevice, dev)
}

// ConsumeFlash returns the flash flag of dev and resets it.
func (r *Registry) ConsumeFlash(dev model.DeviceID) (bool, error) {
	slot, err := r.flashSlot(dev)
	if err != nil {
		return false, err
	}
	v := *slot
	*slot = false
	return v, nil
}

// PeekFlash returns the flash flag of dev without resetting it.
func (r *Registry) PeekFlash(dev model.DeviceID) (bool, error) {
	slot, err := r.flashSlot(dev)
	if err != nil {
		return false, err
	}
	return *slot, nil
}

// Fill copies the device state into s.
func (r *Registry) Fill(s *model.Snapshot) {
	s.Breakers = r.breakers
	s.Capacitors = r.capacitors
	s.Taps = r.taps
	s.Flash = model.FlashFlags{Breakers: r.breakerFlash, Transformers: r.transformerFlash}
}
