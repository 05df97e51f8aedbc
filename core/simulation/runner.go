// Package simulation advances the engine on a fixed period and fans the
// resulting snapshots out to the rest of the service.
package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/substation/core/logger"
	"github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/internal/eventbus"
)

// Stepper advances the simulation by one tick. *engine.Engine implements it.
type Stepper interface {
	Step() model.Snapshot
}

// Runner calls Step every interval and publishes each snapshot on the bus.
// Snapshots reach the metrics sinks through the bus; alarm transitions and
// breaker trips are reported to sink directly when it implements the
// matching recorder.
type Runner struct {
	eng      Stepper
	bus      *eventbus.Bus[model.Snapshot]
	sink     metrics.MetricsSink
	log      logger.Logger
	interval time.Duration

	mu   sync.Mutex
	prev *model.Snapshot
}

// NewRunner creates a Runner. bus, sink and log may be nil.
func NewRunner(eng Stepper, interval time.Duration, bus *eventbus.Bus[model.Snapshot], sink metrics.MetricsSink, log logger.Logger) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Runner{eng: eng, bus: bus, sink: sink, log: logger.OrNop(log), interval: interval}
}

// Interval returns the tick period.
func (r *Runner) Interval() time.Duration { return r.interval }

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Infof("simulation started, interval %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.log.Infof("simulation stopped")
			return nil
		case <-ticker.C:
			r.StepOnce()
		}
	}
}

// RunTicks performs n synchronous steps and returns the snapshots.
func (r *Runner) RunTicks(n int) []model.Snapshot {
	out := make([]model.Snapshot, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, r.StepOnce())
	}
	return out
}

// StepOnce advances the engine and emits the snapshot.
func (r *Runner) StepOnce() model.Snapshot {
	snap := r.eng.Step()
	r.Emit(snap)
	return snap
}

// Emit records transitions and publishes a snapshot produced outside the
// ticker, e.g. by an explicit tick request.
func (r *Runner) Emit(snap model.Snapshot) {
	r.observe(snap)
	if r.bus != nil {
		r.bus.Publish(snap)
	}
}

// observe reports alarm changes and breaker trips. Engine snapshots flag
// the tick that raised the alarm or opened a breaker, so operator actions
// between ticks (closing a tripped breaker, clearing the alarm) do not hide
// a repeat under a persistent fault.
func (r *Runner) observe(snap model.Snapshot) {
	r.mu.Lock()
	prevAlarm := model.AlarmNone
	if r.prev != nil {
		prevAlarm = r.prev.Alarm
	}
	r.prev = &snap
	r.mu.Unlock()

	if snap.AlarmRaised {
		prevAlarm = model.AlarmNone
	}
	if snap.AlarmRaised || snap.Alarm != prevAlarm {
		if rec, ok := r.sink.(metrics.AlarmRecorder); ok {
			if err := rec.RecordAlarm(metrics.AlarmEvent{Previous: prevAlarm, Current: snap.Alarm, Seq: snap.Seq, Time: snap.Time}); err != nil {
				r.log.Errorf("record alarm: %v", err)
			}
		}
	}

	rec, ok := r.sink.(metrics.TripRecorder)
	if !ok {
		return
	}
	for i, b := range snap.Buses {
		if !b.Tripped {
			continue
		}
		if err := rec.RecordTrip(metrics.TripEvent{Breaker: i + 1, Bus: b.Bus, Seq: snap.Seq, Time: snap.Time}); err != nil {
			r.log.Errorf("record trip: %v", err)
		}
	}
}
