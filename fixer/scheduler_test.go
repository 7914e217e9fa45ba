package fixer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestSchedulerRunsImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	ran := make(chan struct{}, 1)
	s := NewScheduler(context.Background(), time.Hour, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("first run should not wait for the ticker")
	}
}

func TestSchedulerTrigger(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	ran := make(chan struct{}, 4)
	s := NewScheduler(context.Background(), time.Hour, func(context.Context) {
		runs.Add(1)
		ran <- struct{}{}
	})
	s.Start()
	<-ran

	s.Trigger()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Trigger should cause a run")
	}
	s.Stop()

	if got := runs.Load(); got != 2 {
		t.Errorf("expected 2 runs, got %d", got)
	}
}

func TestSchedulerTicks(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	s := NewScheduler(context.Background(), 5*time.Millisecond, func(context.Context) {
		runs.Add(1)
	})
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if runs.Load() < 3 {
		t.Errorf("expected repeated runs, got %d", runs.Load())
	}
}

func TestSchedulerStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	s := NewScheduler(context.Background(), time.Millisecond, func(context.Context) {
		runs.Add(1)
	})
	s.Start()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop timed out")
	}

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Error("no run may start after Stop returns")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done should be closed after Stop")
	}
}

func TestSchedulerParentCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx, time.Hour, func(context.Context) {})
	s.Start()
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop should exit when the parent is cancelled")
	}
}
