package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type countingRunner struct {
	mu    sync.Mutex
	ticks int
	err   error
}

func (r *countingRunner) RunTick(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
	return 2, r.err
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func TestStartRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runner.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never ran the initial tick")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestHandleTick(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, time.Hour)

	rec := httptest.NewRecorder()
	s.HandleTick(rec, httptest.NewRequest(http.MethodPost, "/scheduler/tick", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "processed 2 exports") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if runner.count() != 1 {
		t.Errorf("ticks = %d, want 1", runner.count())
	}
}

// tickCtxRunner fails when the tick context is already dead, the way the
// pipeline's store calls would.
type tickCtxRunner struct {
	countingRunner
}

func (r *tickCtxRunner) RunTick(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.countingRunner.RunTick(ctx)
}

func TestHandleTickSurvivesCallerCancellation(t *testing.T) {
	runner := &tickCtxRunner{}
	s := New(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // caller already gone when the tick starts
	req := httptest.NewRequest(http.MethodPost, "/scheduler/tick", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	s.HandleTick(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if runner.count() != 1 {
		t.Errorf("ticks = %d, want 1", runner.count())
	}
}

func TestHandleTickReportsFailure(t *testing.T) {
	runner := &countingRunner{err: fmt.Errorf("store unreachable")}
	s := New(runner, time.Hour)

	rec := httptest.NewRecorder()
	s.HandleTick(rec, httptest.NewRequest(http.MethodPost, "/scheduler/tick", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
