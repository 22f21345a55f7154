package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/midi"
	"github.com/ayusman/mudra/internal/store"
)

// Replay re-sends recorded events to sink in order, spacing them as they were
// recorded divided by rate. A rate <= 0 sends them back to back.
// It returns how many events were sent.
func Replay(ctx context.Context, events []store.ControlEvent, sink midi.Sink, rate float64) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	base := events[0].OffsetMS
	start := time.Now()
	for i, ev := range events {
		if rate > 0 {
			due := time.Duration(float64(ev.OffsetMS-base) / rate * float64(time.Millisecond))
			if wait := due - time.Since(start); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return i, ctx.Err()
				case <-timer.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if err := sink.Send(ev.Controls); err != nil {
			return i, fmt.Errorf("send event %d: %w", ev.Sequence, err)
		}
	}
	return len(events), nil
}
