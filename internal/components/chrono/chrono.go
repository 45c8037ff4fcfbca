package chrono

import (
	"context"
	"sync"
	"time"
)

// Sleeper is the interface that anything waiting on wall clock time should use,
// settle delays and the poll interval both go through it so tests never truly sleep.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardSleeper is the standard implementation of Sleeper using a timer.
type StandardSleeper struct{}

func NewStandardSleeper() StandardSleeper {
	return StandardSleeper{}
}

func (StandardSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeSleeper returns immediately and remembers every requested duration.
type FakeSleeper struct {
	mu    sync.Mutex
	slept []time.Duration
	// OnSleep, if set, is called after each recorded sleep, tests use it to cancel
	// a context after a number of cycles.
	OnSleep func(d time.Duration)
}

func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.slept = append(f.slept, d)
	hook := f.OnSleep
	f.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

// Slept returns the recorded durations in call order.
func (f *FakeSleeper) Slept() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.slept))
	copy(out, f.slept)
	return out
}
