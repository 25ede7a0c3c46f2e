package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/synvek/relaymind/pkg/tracing"
)

const tickInterval = 10 * time.Second

// Dispatcher is the collaborator the tick loop hands fired jobs to. The
// concrete implementation lives in the router package; cron depends only
// on this function type to avoid an import cycle.
type Dispatcher func(ctx context.Context, job Job) error

// Service runs the tick loop over a Store, computing next-run times and
// dispatching fired jobs.
type Service struct {
	store      *Store
	dispatch   Dispatcher
	now        func() time.Time
	gron       gronx.Gronx

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func NewService(store *Store, dispatch Dispatcher) *Service {
	return &Service{
		store:    store,
		dispatch: dispatch,
		now:      time.Now,
		gron:     gronx.New(),
		stop:     make(chan struct{}),
	}
}

// ComputeNextRun returns the next UTC execution time for job, or nil if it
// cannot be determined (malformed cron expression). An At job always
// yields its AtMs, whether or not it has already run.
func (s *Service) ComputeNextRun(job Job) *int64 {
	now := s.now().UTC()
	switch job.Schedule.Kind {
	case ScheduleEvery:
		v := now.Add(time.Duration(job.Schedule.EveryMs) * time.Millisecond).UnixMilli()
		return &v
	case ScheduleAt:
		v := job.Schedule.AtMs
		return &v
	case ScheduleCron:
		next, err := s.gron.NextTickAfter(job.Schedule.Expr, now, false)
		if err != nil {
			slog.Warn("cron: malformed expression", "job", job.ID, "expr", job.Schedule.Expr, "error", err)
			return nil
		}
		v := next.UnixMilli()
		return &v
	default:
		return nil
	}
}

// Init assigns next_run_at_ms to every enabled job that lacks one, except
// an At job that has already run, which is left without one so it never
// fires again. Called on start and again after every tick.
func (s *Service) Init() {
	for _, job := range s.store.ListJobs() {
		if !job.Enabled || job.State.NextRunAtMs != nil {
			continue
		}
		if job.Schedule.Kind == ScheduleAt && job.State.LastRunAtMs != nil {
			continue
		}
		job := job
		next := s.ComputeNextRun(job)
		_ = s.store.mutateJob(job.ID, func(j *Job) {
			j.State.NextRunAtMs = next
		})
	}
}

// Run starts the tick loop; it blocks until ctx is done or Stop is called.
func (s *Service) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.Init()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop makes Run return without waiting for the next tick; a tick already
// in progress completes first.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stop)
		s.running = false
	}
}

func (s *Service) tick(ctx context.Context) {
	ctx, span := tracing.StartCronTick(ctx)
	defer span.End()

	nowMs := s.now().UTC().UnixMilli()

	var fired []Job
	for _, job := range s.store.ListJobs() {
		if job.Enabled && job.State.NextRunAtMs != nil && *job.State.NextRunAtMs <= nowMs {
			fired = append(fired, job)
		}
	}

	for _, job := range fired {
		err := s.dispatch(ctx, job)
		status := "ok"
		if err != nil {
			status = "dispatch_error"
			slog.Warn("cron: dispatch failed", "job", job.ID, "error", err)
		}
		s.markJobExecuted(job.ID, status)
	}

	s.Init()
}

// markJobExecuted records the outcome of a fired job and recomputes its
// next run (or removes it, for a delete-after-run one-shot).
func (s *Service) markJobExecuted(id string, status string) {
	job, ok := s.lookup(id)
	if !ok {
		return
	}
	if job.Schedule.Kind == ScheduleAt && job.DeleteAfterRun {
		if _, err := s.store.RemoveJob(id); err != nil {
			slog.Warn("cron: failed to remove one-shot job", "job", id, "error", err)
		}
		return
	}

	now := nowMs(s.now())
	_ = s.store.mutateJob(id, func(j *Job) {
		j.State.LastRunAtMs = &now
		j.State.LastStatus = status
		switch j.Schedule.Kind {
		case ScheduleEvery:
			next := now + j.Schedule.EveryMs
			j.State.NextRunAtMs = &next
		case ScheduleCron:
			if next := s.ComputeNextRun(*j); next != nil {
				j.State.NextRunAtMs = next
			}
			// malformed expression: leave prior value untouched
		case ScheduleAt:
			j.State.NextRunAtMs = nil
		}
	})
}

func (s *Service) lookup(id string) (Job, bool) {
	for _, job := range s.store.ListJobs() {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}
