package ticker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerDelivers(t *testing.T) {
	var ticks atomic.Int64
	var total atomic.Int64
	tk := Start(context.Background(), func(delta int64) {
		ticks.Add(1)
		total.Add(delta)
	})
	time.Sleep(5 * Interval)
	tk.Stop()

	if ticks.Load() == 0 {
		t.Fatal("no ticks delivered")
	}
	// The summed deltas track wall time, not the nominal interval count.
	elapsed := total.Load()
	if elapsed < 300 || elapsed > 2000 {
		t.Errorf("implausible billed time %dms", elapsed)
	}
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	var mu sync.Mutex
	inTick := false

	tk := Start(context.Background(), func(int64) {
		mu.Lock()
		inTick = true
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		inTick = false
		mu.Unlock()
	})
	time.Sleep(Interval + 10*time.Millisecond)
	tk.Stop()

	mu.Lock()
	defer mu.Unlock()
	if inTick {
		t.Error("Stop returned while a tick was running")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	tk := Start(context.Background(), func(int64) {})
	tk.Stop()
	tk.Stop() // must not panic or hang
}

func TestStopViaParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int64
	tk := Start(ctx, func(int64) { ticks.Add(1) })
	cancel()
	time.Sleep(3 * Interval)
	before := ticks.Load()
	time.Sleep(3 * Interval)
	if ticks.Load() != before {
		t.Error("ticks continued after parent cancellation")
	}
	tk.Stop()
}

func TestCrossedWarning(t *testing.T) {
	cases := []struct {
		name                     string
		before, after, threshold int64
		want                     bool
	}{
		{"clean crossing", 60_050, 59_990, 60_000, true},
		{"exactly on threshold", 60_050, 60_000, 60_000, true},
		{"already below", 59_990, 59_890, 60_000, false},
		{"still above", 60_200, 60_100, 60_000, false},
		{"landed far past window", 60_050, 59_800, 60_000, false},
		{"window edge", 60_050, 59_900, 60_000, true},
	}
	for _, tc := range cases {
		if got := CrossedWarning(tc.before, tc.after, tc.threshold); got != tc.want {
			t.Errorf("%s: CrossedWarning(%d, %d, %d) = %v, want %v",
				tc.name, tc.before, tc.after, tc.threshold, got, tc.want)
		}
	}
}
