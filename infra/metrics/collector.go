package metrics

import (
	"context"

	"github.com/kilianp07/loadshift/core/events"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/internal/eventbus"
)

// StartStageCollector subscribes to the bus and forwards stage events to the
// sink when it records stages. The returned channel is closed once the
// collector has stopped, which happens when ctx is canceled or the bus closes.
func StartStageCollector(ctx context.Context, bus eventbus.EventBus[events.StageEvent], sink coremetrics.Sink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.StageRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordStage(ev); err != nil {
					log.Warnf("record stage %s for %s: %v", ev.Stage, ev.Household, err)
				}
			}
		}
	}()
	return done
}
