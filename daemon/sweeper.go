// Package daemon runs the background jobs this engine needs outside the
// request path: currently a single scheduled sweep that prunes expired
// rows from the SQLite vote cache (package fetch/sqlitecache), per
// SPEC_FULL.md's cache-TTL note.
//
// Grounded on the teacher's server/workflow_scheduler.go poll-loop shape
// (ticker + context-cancellable goroutine, Start/Stop pair) and
// server/cron.go's cron.Schedule-based "compute the next run" helper,
// adapted from workflow-schedule dispatch to a single fixed sweep job.
package daemon

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/objectiveai/engine/fetch/sqlitecache"
)

var standardCronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// parseScheduleUTC parses expr (a standard 5-field cron expression,
// UTC-only — no CRON_TZ=/TZ= prefixes) into a cron.Schedule, mirroring
// the teacher's parseCronExpressionUTC.
func parseScheduleUTC(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("daemon: cron expression is required")
	}
	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("daemon: cron expression must be UTC-only")
	}
	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("daemon: invalid cron expression: %w", err)
	}
	return schedule, nil
}

// Sweeper runs sqlitecache.Store.Sweep on the schedule named by a cron
// expression, logging each pass and its outcome.
type Sweeper struct {
	store    *sqlitecache.Store
	schedule cron.Schedule
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper builds a Sweeper over store, triggering on cronExpr (e.g.
// "*/5 * * * *" to sweep every five minutes).
func NewSweeper(store *sqlitecache.Store, cronExpr string) (*Sweeper, error) {
	schedule, err := parseScheduleUTC(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Sweeper{store: store, schedule: schedule, now: time.Now}, nil
}

// Start begins running the sweep on its schedule in the background. It is
// idempotent: calling Start while already running is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			next := s.schedule.Next(s.now().UTC())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-loopCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runOnce(loopCtx)
			}
		}
	}()

	_ = ctx
}

// Stop cancels the background loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	n, err := s.store.Sweep(ctx, s.now())
	if err != nil {
		log.Printf("daemon: cache sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("daemon: cache sweep removed %d expired vote(s)", n)
	}
}
