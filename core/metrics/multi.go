package metrics

import (
	"errors"

	"github.com/kilianp07/substation/core/model"
)

// MultiSink fans out records to multiple sinks. Every sink is called even
// when an earlier one fails; the failures are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSnapshot forwards the snapshot to all sinks.
func (m *MultiSink) RecordSnapshot(s model.Snapshot) error {
	var errs []error
	for _, sk := range m.Sinks {
		if err := sk.RecordSnapshot(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordCommand forwards command events to sinks that support them.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	var errs []error
	for _, sk := range m.Sinks {
		if rec, ok := sk.(CommandRecorder); ok {
			if err := rec.RecordCommand(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordAlarm forwards alarm transitions.
func (m *MultiSink) RecordAlarm(ev AlarmEvent) error {
	var errs []error
	for _, sk := range m.Sinks {
		if rec, ok := sk.(AlarmRecorder); ok {
			if err := rec.RecordAlarm(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordTrip forwards protection trips.
func (m *MultiSink) RecordTrip(ev TripEvent) error {
	var errs []error
	for _, sk := range m.Sinks {
		if rec, ok := sk.(TripRecorder); ok {
			if err := rec.RecordTrip(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
