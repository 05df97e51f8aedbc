package metrics

import (
	"time"

	"github.com/kilianp07/substation/core/model"
)

// MetricsSink records tick snapshots for observability purposes.
type MetricsSink interface {
	RecordSnapshot(s model.Snapshot) error
}

// CommandEvent captures the outcome of an operator command.
type CommandEvent struct {
	ID     string
	Type   string
	Device string
	Source string
	OK     bool
	Error  string
	Time   time.Time
}

// CommandRecorder records operator commands.
type CommandRecorder interface {
	RecordCommand(ev CommandEvent) error
}

// AlarmEvent describes a change of the system alarm.
type AlarmEvent struct {
	Previous model.AlarmState
	Current  model.AlarmState
	Seq      uint64
	Time     time.Time
}

// AlarmRecorder records alarm transitions.
type AlarmRecorder interface {
	RecordAlarm(ev AlarmEvent) error
}

// TripEvent records a breaker opened by protection.
type TripEvent struct {
	Breaker int
	Bus     int
	Seq     uint64
	Time    time.Time
}

// TripRecorder records protection trips.
type TripRecorder interface {
	RecordTrip(ev TripEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSnapshot(model.Snapshot) error { return nil }
func (NopSink) RecordCommand(CommandEvent) error    { return nil }
func (NopSink) RecordAlarm(AlarmEvent) error        { return nil }
func (NopSink) RecordTrip(TripEvent) error          { return nil }
