// Package engine computes the per-tick state of the simulated substation.
//
// An Engine owns the device registry, the trend history and the overload
// monitor. Every exported method takes the same mutex, so ticks and
// operator commands never interleave.
package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kilianp07/substation/core/device"
	"github.com/kilianp07/substation/core/history"
	"github.com/kilianp07/substation/core/logger"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/core/overload"
	"github.com/kilianp07/substation/core/random"
)

// Electrical constants of the reference substation.
const (
	NominalVoltageKV  = 400.0
	VoltageJitterKV   = 5.0
	BaseCurrentA      = 120.0
	ReferenceLoadMW   = 100.0
	CurrentPerMW      = 0.3
	CurrentJitterA    = 5.0
	FaultCurrentA     = 30.0
	NominalTempC      = 60.0
	TempJitterC       = 5.0
	NominalPressurePa = 101325.0
	PressureJitterPa  = 200.0
)

// TickInput carries the control inputs of one tick. Both slices must hold
// exactly one value per bus.
type TickInput struct {
	Loads  []float64 `json:"loads"`
	Faults []bool    `json:"faults"`
}

// Engine is the substation state machine.
type Engine struct {
	mu      sync.Mutex
	rnd     random.Source
	devices *device.Registry
	history *history.Buffer
	monitor *overload.Monitor
	loads   [model.NumBuses]float64
	alarm   model.AlarmState
	seq     uint64
	last    model.Snapshot
	now     func() time.Time
	log     logger.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock sets the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = logger.OrNop(l) }
}

// New creates an Engine from cfg. A nil src selects a generator seeded from
// cfg.Seed. cfg is expected to have passed Validate; missing setpoints fall
// back to the defaults.
func New(cfg Config, src random.Source, opts ...Option) *Engine {
	cfg.SetDefaults()
	if src == nil {
		src = random.NewSeeded(cfg.Seed)
	}
	e := &Engine{
		rnd:     src,
		devices: device.NewRegistry(),
		history: history.New(model.HistoryCapacity),
		monitor: overload.NewMonitor(cfg.OverloadThresholdA),
		alarm:   model.AlarmNone,
		now:     time.Now,
		log:     logger.NopLogger{},
	}
	for i := range e.loads {
		e.loads[i] = model.DefaultLoadMW
		if i < len(cfg.InitialLoadMW) && checkLoad(i+1, cfg.InitialLoadMW[i]) == nil {
			e.loads[i] = cfg.InitialLoadMW[i]
		}
	}
	for _, o := range opts {
		o(e)
	}
	e.last = e.snapshotLocked()
	return e
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func validate(in TickInput) error {
	if len(in.Loads) != model.NumBuses {
		return fmt.Errorf("%w: expected %d loads, got %d", model.ErrInvalidInput, model.NumBuses, len(in.Loads))
	}
	if len(in.Faults) != model.NumBuses {
		return fmt.Errorf("%w: expected %d fault flags, got %d", model.ErrInvalidInput, model.NumBuses, len(in.Faults))
	}
	for i, l := range in.Loads {
		if err := checkLoad(i+1, l); err != nil {
			return fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
		}
	}
	return nil
}

// Tick computes one sampling period from in. A rejected input leaves the
// engine unchanged.
func (e *Engine) Tick(in TickInput) (model.Snapshot, error) {
	if err := validate(in); err != nil {
		return model.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickLocked(in.Loads, in.Faults), nil
}

// Step ticks with the stored load setpoints and the persistent fault flags.
func (e *Engine) Step() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	faults := e.devices.Faults()
	return e.tickLocked(e.loads[:], faults[:])
}

func (e *Engine) tickLocked(loads []float64, faults []bool) model.Snapshot {
	var buses [model.NumBuses]model.BusMeasurement
	var tripped [model.NumBuses]bool
	raised := false
	for i := 0; i < model.NumBuses; i++ {
		bus := i + 1
		voltage := round2(NominalVoltageKV + e.rnd.Uniform(-VoltageJitterKV, VoltageJitterKV))
		current := BaseCurrentA + (loads[i]-ReferenceLoadMW)*CurrentPerMW + e.rnd.Uniform(-CurrentJitterA, CurrentJitterA)
		if faults[i] {
			current += FaultCurrentA
			wasClosed, _ := e.devices.TripBreaker(bus)
			if wasClosed {
				e.log.Warnf("breaker%d tripped on bus%d fault", bus, bus)
			}
			tripped[i] = wasClosed
			if e.alarm == model.AlarmNone {
				raised = true
			}
			e.alarm = model.AlarmFaultDetected
		}
		current = round2(current)

		e.history.Append(model.LoadChannel(bus), loads[i])
		e.history.Append(model.VoltageChannel(bus), voltage)
		e.history.Append(model.CurrentChannel(bus), current)
		buses[i] = model.BusMeasurement{Bus: bus, LoadMW: loads[i], VoltageKV: voltage, CurrentA: current, Faulted: faults[i], Tripped: tripped[i]}
	}

	temp := round2(NominalTempC + e.rnd.Uniform(-TempJitterC, TempJitterC))
	e.history.Append(model.ChannelTemperature, temp)
	pressure := round2(NominalPressurePa + e.rnd.Uniform(-PressureJitterPa, PressureJitterPa))
	e.history.Append(model.ChannelPressure, pressure)

	var currents [model.NumBuses]float64
	for i, b := range buses {
		currents[i] = b.CurrentA
	}
	_, newly := e.monitor.Evaluate(overload.TransformerCurrents(currents))
	for j, n := range newly {
		if n {
			_ = e.devices.FlashTransformer(j + 1)
			e.log.Warnf("transformer%d overloaded: %.2f A > %.0f A", j+1, currents[j], e.monitor.Threshold())
		}
	}

	e.seq++
	snap := e.snapshotLocked()
	snap.Buses = buses
	snap.TemperatureC = temp
	snap.PressurePa = pressure
	snap.AlarmRaised = raised
	for j := range snap.Lines {
		snap.Lines[j] = model.ClassifyFlow(j+1, currents[j])
	}
	e.last = snap
	e.log.Debugw("tick", map[string]any{"seq": snap.Seq, "alarm": string(snap.Alarm), "temp": temp})
	return snap
}

// snapshotLocked builds a snapshot of the device state. Measurements are
// carried over from the previous tick.
func (e *Engine) snapshotLocked() model.Snapshot {
	s := model.Snapshot{
		Seq:          e.seq,
		Time:         e.now(),
		Buses:        e.last.Buses,
		TemperatureC: e.last.TemperatureC,
		PressurePa:   e.last.PressurePa,
		Lines:        e.last.Lines,
		Alarm:        e.alarm,
		Overload:     e.monitor.Latched(),
	}
	if e.seq == 0 {
		for i := range s.Buses {
			bus := i + 1
			s.Buses[i] = model.BusMeasurement{
				Bus:       bus,
				LoadMW:    e.loads[i],
				VoltageKV: e.history.LatestOrDefault(model.VoltageChannel(bus)),
				CurrentA:  e.history.LatestOrDefault(model.CurrentChannel(bus)),
			}
		}
		s.TemperatureC = e.history.LatestOrDefault(model.ChannelTemperature)
		s.PressurePa = e.history.LatestOrDefault(model.ChannelPressure)
		for j := range s.Lines {
			s.Lines[j] = model.ClassifyFlow(j+1, s.Buses[j].CurrentA)
		}
	}
	faults := e.devices.Faults()
	for i := range s.Buses {
		s.Buses[i].Faulted = faults[i]
		s.Buses[i].Tripped = false
	}
	e.devices.Fill(&s)
	return s
}

// Snapshot returns the current state without advancing the simulation.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Last returns the snapshot produced by the most recent tick.
func (e *Engine) Last() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}
