package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeAdvancer struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeAdvancer) AdvanceStatuses(_ context.Context, now time.Time) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return 1, 2, f.err
}

func (f *fakeAdvancer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("every now and then", &fakeAdvancer{}, nil); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestRunLifecycleUsesClock(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	oldNow := nowFn
	nowFn = func() time.Time { return fixed }
	defer func() { nowFn = oldNow }()

	adv := &fakeAdvancer{}
	s, err := NewScheduler("@every 1h", adv, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.runLifecycle(adv)
	if adv.count() != 1 || !adv.calls[0].Equal(fixed) {
		t.Fatalf("expected one run at fixed time, got %v", adv.calls)
	}
}

func TestRunLifecycleLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	adv := &fakeAdvancer{err: errors.New("db down")}
	s, err := NewScheduler("@every 1h", adv, zap.New(core))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.runLifecycle(adv)
	if logs.FilterMessage("booking lifecycle job failed").Len() != 1 {
		t.Fatalf("expected failure logged")
	}
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	adv := &fakeAdvancer{}
	s, err := NewScheduler("@every 1s", adv, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for adv.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if adv.count() == 0 {
		t.Fatalf("expected job to run")
	}
}
