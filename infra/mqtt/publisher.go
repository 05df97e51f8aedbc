package mqtt

import (
	"context"

	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/infra/logger"
	"github.com/kilianp07/substation/internal/eventbus"
)

// SnapshotPublisher is the subset of Client used by the telemetry forwarder.
type SnapshotPublisher interface {
	PublishSnapshot(model.Snapshot) error
	PublishAlarm(model.Snapshot) error
}

// StartTelemetry forwards every snapshot of bus to pub. The alarm topic is
// written on the first snapshot and whenever the alarm changes. It stops when
// ctx is canceled or the bus is closed; the returned channel is closed on
// exit.
func (c *Client) StartTelemetry(ctx context.Context, bus *eventbus.Bus[model.Snapshot]) <-chan struct{} {
	return forwardTelemetry(ctx, bus, c, c.logger)
}

func forwardTelemetry(ctx context.Context, bus *eventbus.Bus[model.Snapshot], pub SnapshotPublisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		var last model.AlarmState
		first := true
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-sub:
				if !ok {
					return
				}
				if err := pub.PublishSnapshot(snap); err != nil {
					log.Errorf("telemetry %d: %v", snap.Seq, err)
				}
				if first || snap.Alarm != last {
					if err := pub.PublishAlarm(snap); err != nil {
						log.Errorf("alarm %d: %v", snap.Seq, err)
						continue
					}
					first = false
					last = snap.Alarm
				}
			}
		}
	}()
	return done
}
