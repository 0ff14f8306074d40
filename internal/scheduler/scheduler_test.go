package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestStartRunsOnTicks(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	s := New(10*time.Millisecond, false, quietLogger())
	go func() {
		done <- s.Start(ctx, func(context.Context) error {
			if runs.Add(1) >= 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if runs.Load() < 3 {
		t.Errorf("expected at least 3 runs, got %d", runs.Load())
	}
}

func TestStartRunOnStart(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	s := New(time.Hour, true, quietLogger())
	go func() {
		done <- s.Start(ctx, func(context.Context) error {
			runs.Add(1)
			cancel()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if runs.Load() != 1 {
		t.Errorf("expected exactly one immediate run, got %d", runs.Load())
	}
}

func TestJobErrorKeepsSchedule(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	s := New(10*time.Millisecond, false, quietLogger())
	go func() {
		done <- s.Start(ctx, func(context.Context) error {
			if runs.Add(1) >= 2 {
				cancel()
			}
			return errors.New("load failed")
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler stopped ticking after a failed run")
	}
	if runs.Load() < 2 {
		t.Errorf("expected the schedule to continue past a failure, got %d runs", runs.Load())
	}
}
