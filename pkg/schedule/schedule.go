// Package schedule runs named background jobs at a fixed interval.
//
// Usage:
//
//	s := schedule.New(logger.L)
//	s.Every(5 * time.Minute).Name("resync orders").WithoutOverlapping().Run(orders.Refresh)
//	go s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Task is the function signature for a scheduled job.
type Task func(ctx context.Context) error

// entry is a single registered job.
type entry struct {
	id        string
	interval  time.Duration
	task      Task
	lastRun   time.Time
	running   bool // overlap guard
	noOverlap bool
	immediate bool
	mu        sync.Mutex
}

// Scheduler owns a set of jobs and the loop that dispatches them.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	tick    time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

// Schedule is a fluent builder for a single entry before it is registered.
type Schedule struct {
	s *Scheduler
	e *entry
}

// New returns an empty scheduler that checks for due jobs every second.
func New(log *slog.Logger) *Scheduler {
	return &Scheduler{tick: time.Second, log: log}
}

// WithTick changes how often the loop looks for due jobs.
func (s *Scheduler) WithTick(d time.Duration) *Scheduler {
	if d > 0 {
		s.tick = d
	}
	return s
}

// Every starts a builder for a job that runs once per interval.
func (s *Scheduler) Every(interval time.Duration) *Schedule {
	return &Schedule{s: s, e: &entry{interval: interval}}
}

// ─── Schedule chainable options ──────────────────────────────────────────────

// WithoutOverlapping skips a run while the previous one is still executing.
func (b *Schedule) WithoutOverlapping() *Schedule {
	b.e.noOverlap = true
	return b
}

// Immediately makes the first run happen on the first tick instead of one
// interval after Start.
func (b *Schedule) Immediately() *Schedule {
	b.e.immediate = true
	return b
}

// Name gives the entry an identifier for logging.
func (b *Schedule) Name(id string) *Schedule {
	b.e.id = id
	return b
}

// Run registers the job. Jobs with a non-positive interval are ignored,
// which is how a job is switched off from config.
func (b *Schedule) Run(fn Task) {
	if b.e.interval <= 0 {
		return
	}
	b.e.task = fn
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
}

// ─── Scheduler loop ──────────────────────────────────────────────────────────

// Start dispatches due jobs until ctx is done, then waits for running jobs
// to return. Jobs receive ctx and should stop when it is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	started := time.Now()
	s.mu.Lock()
	for _, e := range s.entries {
		if !e.immediate {
			e.lastRun = started
		}
	}
	s.mu.Unlock()

	s.log.Info("schedule: started", "jobs", len(s.List()))
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.mu.Lock()
			current := append([]*entry(nil), s.entries...)
			s.mu.Unlock()

			for _, e := range current {
				if e.due(now) {
					s.dispatch(ctx, e)
				}
			}
		}
	}
}

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		s.log.Warn("schedule: skipping overlapping job", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = time.Now()
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if r := recover(); r != nil {
				s.log.Error("schedule: job panicked", "id", e.id, "panic", r)
			}
		}()

		if err := e.task(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("schedule: job failed", "id", e.id, "error", err)
		}
	}()
}

// List returns the registered jobs with their interval, sorted by name.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [every %s]", e.id, e.interval))
	}
	sort.Strings(out)
	return out
}
