// Package ticker drives the per-game countdown. Each running game owns one
// cancellable tick task; the callback runs under the game's lock.
package ticker

import (
	"context"
	"sync"
	"time"
)

// Interval is the tick period. Events are throttled to this rate no matter
// how the scheduler jitters.
const Interval = 100 * time.Millisecond

// WarningWindow is the tolerance around a threshold crossing.
const WarningWindow = int64(100) // ms

// TickFunc receives the wall-clock delta (ms) since the previous tick.
type TickFunc func(deltaMillis int64)

// Ticker is one game's countdown task.
type Ticker struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start arms a tick task. fn is invoked with the measured elapsed time, not
// the nominal interval, so accumulated drift never misbills the player.
func Start(parent context.Context, fn TickFunc) *Ticker {
	ctx, cancel := context.WithCancel(parent)
	t := &Ticker{cancel: cancel, done: make(chan struct{})}
	go t.run(ctx, fn)
	return t
}

func (t *Ticker) run(ctx context.Context, fn TickFunc) {
	defer close(t.done)
	tk := time.NewTicker(Interval)
	defer tk.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			delta := now.Sub(last).Milliseconds()
			last = now
			if delta <= 0 {
				continue
			}
			fn(delta)
		}
	}
}

// Stop cancels the task and waits for the in-flight tick to finish, so a
// tick cannot race against game closure.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		t.cancel()
		<-t.done
	})
}

// CrossedWarning reports whether the remaining time crossed the threshold
// downward on this tick, within the tolerance window.
func CrossedWarning(before, after, threshold int64) bool {
	return before > threshold && after <= threshold && threshold-after <= WarningWindow
}
