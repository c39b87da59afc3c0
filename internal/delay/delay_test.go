package delay

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSchedulerRunsTask(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)
	defer s.Stop()

	var ran atomic.Int32
	s.After("a", 10*time.Millisecond, func(ctx context.Context) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("task context has no deadline")
		}
		ran.Add(1)
	})

	waitFor(t, func() bool { return ran.Load() == 1 })
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after run", s.Pending())
	}
}

func TestSchedulerReplaceAndCancel(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)
	defer s.Stop()

	var first, second, cancelled atomic.Int32
	s.After("k", 20*time.Millisecond, func(context.Context) { first.Add(1) })
	s.After("k", 20*time.Millisecond, func(context.Context) { second.Add(1) })
	s.After("c", 20*time.Millisecond, func(context.Context) { cancelled.Add(1) })

	if !s.Cancel("c") {
		t.Fatal("Cancel() found nothing")
	}
	if s.Cancel("c") {
		t.Fatal("second Cancel() found a task")
	}

	waitFor(t, func() bool { return second.Load() == 1 })
	time.Sleep(40 * time.Millisecond)
	if first.Load() != 0 {
		t.Error("replaced task ran")
	}
	if cancelled.Load() != 0 {
		t.Error("cancelled task ran")
	}
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)

	var ran atomic.Int32
	s.After("x", 30*time.Millisecond, func(context.Context) { ran.Add(1) })
	s.Stop()
	s.After("y", time.Millisecond, func(context.Context) { ran.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if ran.Load() != 0 {
		t.Errorf("%d tasks ran after Stop", ran.Load())
	}
}
