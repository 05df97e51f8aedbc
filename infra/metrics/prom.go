package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
)

// PromSink exposes the substation state as Prometheus metrics.
type PromSink struct {
	voltage     *prometheus.GaugeVec
	current     *prometheus.GaugeVec
	load        *prometheus.GaugeVec
	temperature prometheus.Gauge
	pressure    prometheus.Gauge
	breakerOpen *prometheus.GaugeVec
	overload    *prometheus.GaugeVec
	alarm       prometheus.Gauge
	ticks       prometheus.Counter
	trips       *prometheus.CounterVec
	commands    *prometheus.CounterVec
	alarms      *prometheus.CounterVec
}

// NewPromSink registers the substation metrics on the default registerer.
// The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		if err != nil {
			return nil
		}
		var v *prometheus.GaugeVec
		v, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels))
		return v
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		if err != nil {
			return nil
		}
		var v *prometheus.CounterVec
		v, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels))
		return v
	}
	counter := func(name, help string) prometheus.Counter {
		if err != nil {
			return nil
		}
		var c prometheus.Counter
		c, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help}))
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		if err != nil {
			return nil
		}
		var g prometheus.Gauge
		g, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}))
		return g
	}

	s.voltage = gaugeVec("substation_bus_voltage_kv", "Bus voltage in kV", "bus")
	s.current = gaugeVec("substation_bus_current_amperes", "Bus current in A", "bus")
	s.load = gaugeVec("substation_bus_load_mw", "Bus load setpoint in MW", "bus")
	s.temperature = gauge("substation_transformer_temperature_celsius", "Transformer oil temperature")
	s.pressure = gauge("substation_sf6_pressure_pascals", "SF6 gas pressure")
	s.breakerOpen = gaugeVec("substation_breaker_open", "1 when the breaker is open", "breaker")
	s.overload = gaugeVec("substation_transformer_overload", "1 when the transformer overload latch is set", "transformer")
	s.alarm = gauge("substation_alarm_active", "1 while the system alarm is raised")
	s.ticks = counter("substation_ticks_total", "Number of simulation ticks recorded")
	s.trips = counterVec("substation_breaker_trips_total", "Breaker trips caused by faults", "breaker")
	s.commands = counterVec("substation_commands_total", "Operator commands by outcome", "type", "source", "ok")
	s.alarms = counterVec("substation_alarm_transitions_total", "Alarm state changes", "state")
	if err != nil {
		return nil, err
	}
	return s, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RecordSnapshot updates every gauge from the snapshot.
func (s *PromSink) RecordSnapshot(snap model.Snapshot) error {
	for _, b := range snap.Buses {
		bus := strconv.Itoa(b.Bus)
		s.voltage.WithLabelValues(bus).Set(b.VoltageKV)
		s.current.WithLabelValues(bus).Set(b.CurrentA)
		s.load.WithLabelValues(bus).Set(b.LoadMW)
	}
	s.temperature.Set(snap.TemperatureC)
	s.pressure.Set(snap.PressurePa)
	for i, st := range snap.Breakers {
		s.breakerOpen.WithLabelValues(strconv.Itoa(i + 1)).Set(boolGauge(st == model.BreakerOpen))
	}
	for j, l := range snap.Overload {
		s.overload.WithLabelValues(strconv.Itoa(j + 1)).Set(boolGauge(l))
	}
	s.alarm.Set(boolGauge(snap.Alarm.Active()))
	s.ticks.Inc()
	return nil
}

// RecordCommand counts a command by type, source and outcome.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	s.commands.WithLabelValues(ev.Type, ev.Source, strconv.FormatBool(ev.OK)).Inc()
	return nil
}

// RecordAlarm counts an alarm transition.
func (s *PromSink) RecordAlarm(ev coremetrics.AlarmEvent) error {
	s.alarms.WithLabelValues(string(ev.Current)).Inc()
	return nil
}

// RecordTrip counts a breaker trip.
func (s *PromSink) RecordTrip(ev coremetrics.TripEvent) error {
	s.trips.WithLabelValues(strconv.Itoa(ev.Breaker)).Inc()
	return nil
}
