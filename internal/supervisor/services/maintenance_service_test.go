// Questmap - Location-Based Scavenger Hunt Backend
// Copyright 2026 Quinn M. (questmap)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/questmap/questmap

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeGC struct {
	runs atomic.Int64
	err  error
}

func (f *fakeGC) RunGC() error {
	f.runs.Add(1)
	return f.err
}

type fakeCache struct{}

func (fakeCache) HitRate() float64 { return 0.5 }

func TestMaintenanceRunsPeriodically(t *testing.T) {
	gc := &fakeGC{}
	svc := NewMaintenanceService(gc, fakeCache{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for gc.runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("GC never ran enough: %d", gc.runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestMaintenanceToleratesGCError(t *testing.T) {
	gc := &fakeGC{err: errors.New("value log busy")}
	svc := NewMaintenanceService(gc, nil, time.Minute)

	// A failing GC is logged, never fatal.
	svc.runOnce()
	if gc.runs.Load() != 1 {
		t.Errorf("expected one run, got %d", gc.runs.Load())
	}
}

func TestMaintenanceNilDependencies(t *testing.T) {
	svc := NewMaintenanceService(nil, nil, 0)
	if svc.interval != 10*time.Minute {
		t.Errorf("zero interval should default, got %v", svc.interval)
	}
	// Must not panic with nothing wired.
	svc.runOnce()
	if svc.String() != "maintenance" {
		t.Errorf("unexpected name: %s", svc.String())
	}
}
