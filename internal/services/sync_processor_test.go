package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) ProcessPendingExpenses(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if p := NewSyncProcessor(&countingSweeper{}, SyncProcessorConfig{}); p.config.PollInterval != 30*time.Second {
		t.Errorf("zero PollInterval should fall back to default, got %v", p.config.PollInterval)
	}
}

func TestSyncProcessor_Lifecycle(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("sheets down")}
	processor := NewSyncProcessor(sweeper, SyncProcessorConfig{PollInterval: 10 * time.Millisecond})

	if processor.IsRunning() {
		t.Fatal("processor should not be running initially")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sweeper.calls.Load() < 2 {
		t.Fatalf("expected repeated sweeps despite errors, got %d", sweeper.calls.Load())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSweeper{}, DefaultSyncProcessorConfig())
	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
