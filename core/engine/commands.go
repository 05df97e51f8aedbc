package engine

import (
	"fmt"

	"github.com/kilianp07/substation/core/model"
)

// ToggleBreaker flips breaker id between Closed and Open.
func (e *Engine) ToggleBreaker(id int) (model.BreakerState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.devices.ToggleBreaker(id)
	if err != nil {
		return 0, err
	}
	e.log.Infof("breaker%d toggled to %s", id, st)
	return st, nil
}

// ToggleCapacitor flips capacitor bank id between Off and On.
func (e *Engine) ToggleCapacitor(id int) (model.CapacitorState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.devices.ToggleCapacitor(id)
	if err != nil {
		return 0, err
	}
	e.log.Infof("cap%d toggled to %s", id, st)
	return st, nil
}

// SetTap sets tap changer id to position.
func (e *Engine) SetTap(id, position int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.devices.SetTap(id, position); err != nil {
		return err
	}
	e.log.Infof("tap%d set to %d", id, position)
	return nil
}

// SetFaultFlag sets the fault injection flag consumed by subsequent Steps.
func (e *Engine) SetFaultFlag(bus int, faulted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.devices.SetFault(bus, faulted); err != nil {
		return err
	}
	e.log.Infof("bus%d fault injection set to %t", bus, faulted)
	return nil
}

// SetLoad changes the load setpoint of bus used by Step.
func (e *Engine) SetLoad(bus int, mw float64) error {
	if !(model.DeviceID{Kind: model.KindBus, Index: bus}).Valid() {
		return fmt.Errorf("%w: bus%d", model.ErrInvalidDevice, bus)
	}
	if err := checkLoad(bus, mw); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads[bus-1] = mw
	return nil
}

// Loads returns the current load setpoints.
func (e *Engine) Loads() [model.NumBuses]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

// ConsumeFlash returns the flash flag of dev and resets it.
func (e *Engine) ConsumeFlash(dev model.DeviceID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.devices.ConsumeFlash(dev)
}

// GetHistory returns the samples of channel c, oldest first.
func (e *Engine) GetHistory(c model.Channel) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Snapshot(c)
}

// GetAllHistory returns every history channel.
func (e *Engine) GetAllHistory() map[model.Channel][]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.All()
}

// GetAlarm returns the system alarm.
func (e *Engine) GetAlarm() model.AlarmState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alarm
}

// ClearAlarm resets the system alarm. A fault still injected raises it again
// on the next tick.
func (e *Engine) ClearAlarm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alarm.Active() {
		e.log.Infof("alarm %q cleared", e.alarm)
	}
	e.alarm = model.AlarmNone
}

// ResetOverload clears the overload latch of transformer id, or all latches
// when id is 0.
func (e *Engine) ResetOverload(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id == 0 {
		e.monitor.ResetAll()
		return nil
	}
	return e.monitor.Reset(id)
}
