package metrics

import (
	"context"
	"time"

	"github.com/laddvakt/laddvakt/core/events"
	coremetrics "github.com/laddvakt/laddvakt/core/metrics"
	"github.com/laddvakt/laddvakt/internal/eventbus"
)

// StartSessionCollector subscribes to the session bus and forwards session
// transitions to the sink. It stops when the context is canceled.
func StartSessionCollector(ctx context.Context, bus *eventbus.Bus[events.SessionEvent], sink coremetrics.Sink) {
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
				if r, ok := sink.(coremetrics.SessionRecorder); ok {
					_ = r.RecordSession(coremetrics.SessionRecord{
						Phase:   ev.Phase.String(),
						Session: ev.Session,
						Time:    time.Now(),
					})
				}
			}
		}
	}()
}
