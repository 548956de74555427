package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestIntervalSchedulerFiresImmediatelyThenPeriodically(t *testing.T) {
	t.Parallel()

	fired := make(chan time.Time, 16)
	s := NewIntervalScheduler(5 * time.Millisecond)
	if err := s.Start(context.Background(), func(at time.Time) { fired <- at }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("job did not fire, saw %d runs", i)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop must be a no-op: %v", err)
	}
}

func TestIntervalSchedulerDisabled(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(0)
	called := false
	if err := s.Start(context.Background(), func(time.Time) { called = true }); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if called {
		t.Fatalf("a zero interval must not run the job")
	}

	if err := NewIntervalScheduler(time.Minute).Start(context.Background(), nil); err != nil {
		t.Fatalf("nil job must be a no-op: %v", err)
	}
}

func TestIntervalSchedulerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fired := make(chan time.Time, 16)
	s := NewIntervalScheduler(5 * time.Millisecond)
	if err := s.Start(ctx, func(at time.Time) { fired <- at }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never fired")
	}

	cancel()
	// Drain anything in flight, then confirm the ticker went quiet.
	time.Sleep(50 * time.Millisecond)
	for len(fired) > 0 {
		<-fired
	}
	select {
	case <-fired:
		t.Fatalf("job fired after cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}
