package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	logx "barghbot/pkg/logx"
)

func startedEngine(t *testing.T, cfg Config) *Service {
	t.Helper()
	cfg.Enabled = true
	s := New(cfg, logx.Nop(), nil)
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	return s
}

func TestEngineExecutesTask(t *testing.T) {
	t.Parallel()
	s := startedEngine(t, Config{Workers: 1, QueueSize: 4})

	done := make(chan struct{})
	err := s.Enqueue(Task{Name: "one", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestEngineOverlapSkip(t *testing.T) {
	t.Parallel()
	s := startedEngine(t, Config{Workers: 1, QueueSize: 4})

	started := make(chan struct{})
	release := make(chan struct{})
	state := &RunState{}
	err := s.Enqueue(Task{Name: "slow", State: state, Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}})
	if err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	<-started

	err = s.Enqueue(Task{Name: "slow", State: state, Run: func(ctx context.Context) error { return nil }})
	if !errors.Is(err, ErrOverlapSkip) {
		t.Fatalf("second Enqueue: %v, want overlap skip", err)
	}
	close(release)

	// The gate opens again once the first run finishes.
	deadline := time.Now().Add(5 * time.Second)
	for {
		err = s.Enqueue(Task{Name: "slow", State: state, Run: func(ctx context.Context) error { return nil }})
		if err == nil {
			return
		}
		if !errors.Is(err, ErrOverlapSkip) {
			t.Fatalf("re-enqueue: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("overlap gate never released")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngineRecoversTaskPanic(t *testing.T) {
	t.Parallel()
	s := startedEngine(t, Config{Workers: 1, QueueSize: 4})

	if err := s.Enqueue(Task{Name: "boom", Run: func(ctx context.Context) error { panic("boom") }}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// A later task still runs on the same worker.
	done := make(chan struct{})
	if err := s.Enqueue(Task{Name: "after", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}}); err != nil {
		t.Fatalf("Enqueue after panic: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestEngineDisabled(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop(), nil)
	err := s.Enqueue(Task{Name: "x", Run: func(ctx context.Context) error { return nil }})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}
