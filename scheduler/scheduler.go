package scheduler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// TickRunner drains one batch of queued export requests.
type TickRunner interface {
	RunTick(ctx context.Context) (int, error)
}

// Scheduler drives the export pipeline on a fixed wall-clock interval.
// Runs are strictly sequential: a slow batch delays the next tick, it
// never overlaps it.
type Scheduler struct {
	pipeline TickRunner
	interval time.Duration
}

// New creates a Scheduler firing every interval.
func New(pipeline TickRunner, interval time.Duration) *Scheduler {
	return &Scheduler{pipeline: pipeline, interval: interval}
}

// Start blocks, running one tick immediately and then one per interval,
// until ctx is cancelled. The in-flight batch is allowed to finish before
// Start returns.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("INFO (Scheduler): Starting with interval %s", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("INFO (Scheduler): Stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	processed, err := s.pipeline.RunTick(ctx)
	if err != nil {
		log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		return
	}
	if processed > 0 {
		log.Printf("INFO (Scheduler): Tick processed %d exports", processed)
	}
}

// HandleTick is an HTTP handler that triggers a tick out of schedule.
// Used for manual curl requests or an external cron. The tick runs on a
// context detached from the request: once rows are claimed the batch must
// finish even if the caller disconnects, or they stay stuck in the
// processing state.
func (s *Scheduler) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Scheduler): Tick triggered via HTTP")

	processed, err := s.pipeline.RunTick(context.WithoutCancel(r.Context()))
	if err != nil {
		log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		http.Error(w, "scheduler tick failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK: processed %d exports", processed)
}
