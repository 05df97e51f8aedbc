package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/substation/core/metrics"
	"github.com/kilianp07/substation/core/model"
	"github.com/kilianp07/substation/infra/logger"
	"github.com/kilianp07/substation/internal/eventbus"
)

// CollectorBuffer is the collector's subscription buffer. It absorbs sink
// stalls up to the Influx write timeout at sub-second tick periods.
const CollectorBuffer = 256

// StartSnapshotCollector subscribes to the snapshot bus and records every
// snapshot on sink. It stops when the context is canceled or the bus is
// closed. The returned channel is closed once the collector has exited.
// Snapshots dropped on a full buffer show up as a sequence gap and are
// logged.
func StartSnapshotCollector(ctx context.Context, bus *eventbus.Bus[model.Snapshot], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.SubscribeBuffered(CollectorBuffer)
	go func() {
		var last uint64
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-sub:
				if !ok {
					return
				}
				if last != 0 && snap.Seq > last+1 {
					log.Warnf("collector skipped %d snapshots after seq %d", snap.Seq-last-1, last)
				}
				last = snap.Seq
				if err := sink.RecordSnapshot(snap); err != nil {
					log.Errorf("record snapshot %d: %v", snap.Seq, err)
				}
			}
		}
	}()
	return done
}
