package metrics

import (
	"context"

	"github.com/richardjcool/MMTQueue/core/events"
	coremetrics "github.com/richardjcool/MMTQueue/core/metrics"
	"github.com/richardjcool/MMTQueue/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// scheduler events. Slots are recorded synchronously by the scheduler itself;
// the collector picks up the lower-priority signals. It stops when the
// context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.SchedulerSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.IdleStep); ok {
					if r, ok := sink.(coremetrics.IdleRecorder); ok {
						_ = r.RecordIdleStep(e.Pass, e.Time)
					}
				}
			}
		}
	}()
}
