// Package schedule owns the lifecycle of time-triggered notification jobs:
// create, replace, cancel by group, and fire. Job identity is
// (caseID, groupKey, role); scheduling the same identity twice replaces the
// trigger time instead of duplicating the job.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tribunal-notifier/pkg/notify"
)

// Clock abstracts time so tests can drive firing deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// FireFunc is the firing callback contract. It receives the job at trigger
// time and re-resolves recipients against the current case snapshot; a
// firing that resolves to zero recipients is a no-op, not an error.
type FireFunc func(ctx context.Context, job notify.ScheduledJob) error

// Store persists pending jobs so they survive restarts. Optional; a nil
// store keeps everything in memory.
type Store interface {
	SaveJob(ctx context.Context, job *notify.ScheduledJob) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context) ([]*notify.ScheduledJob, error)
}

type jobKey struct {
	caseID   string
	groupKey string
	role     notify.Role
}

// Scheduler holds pending jobs and fires them when due. All map mutation is
// under one mutex, which gives the replace-on-schedule and cancellation
// guarantees their atomicity at (caseID, groupKey, role) granularity.
type Scheduler struct {
	clock  Clock
	store  Store
	logger *slog.Logger
	fire   FireFunc

	mu   sync.Mutex
	jobs map[jobKey]*notify.ScheduledJob
}

// New creates a scheduler. store may be nil for purely in-memory use.
func New(clock Clock, store Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		store:  store,
		logger: logger,
		jobs:   make(map[jobKey]*notify.ScheduledJob),
	}
}

// SetFirer installs the firing callback. Wired after construction because the
// engine that re-resolves on fire also needs the scheduler to create jobs.
func (s *Scheduler) SetFirer(fire FireFunc) {
	s.fire = fire
}

// Restore loads persisted pending jobs back into memory.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	jobs, err := s.store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list persisted jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		s.jobs[jobKey{job.CaseID, job.GroupKey, job.Role}] = job
	}
	s.logger.Info("Restored scheduled jobs", "count", len(jobs))
	return nil
}

// Schedule creates or replaces the pending job for (caseID, groupKey, role).
// A replaced job keeps nothing of its predecessor but the identity.
func (s *Scheduler) Schedule(ctx context.Context, caseID, groupKey string, role notify.Role, triggerAt time.Time, event string, payload []byte) (*notify.ScheduledJob, error) {
	job := &notify.ScheduledJob{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		GroupKey:  groupKey,
		Role:      role,
		Event:     event,
		TriggerAt: triggerAt,
		Payload:   payload,
	}

	s.mu.Lock()
	key := jobKey{caseID, groupKey, role}
	prev := s.jobs[key]
	s.jobs[key] = job
	s.mu.Unlock()

	if s.store != nil {
		if prev != nil {
			if err := s.store.DeleteJob(ctx, prev.ID); err != nil {
				s.logger.Warn("Failed to delete replaced job", "job_id", prev.ID, "error", err)
			}
		}
		if err := s.store.SaveJob(ctx, job); err != nil {
			return nil, fmt.Errorf("persist job: %w", err)
		}
	}

	if prev != nil {
		s.logger.Info("Scheduled job replaced",
			"case_id", caseID,
			"group_key", groupKey,
			"role", role,
			"previous_trigger", prev.TriggerAt.Format(time.RFC3339),
			"trigger", triggerAt.Format(time.RFC3339))
	} else {
		s.logger.Info("Job scheduled",
			"case_id", caseID,
			"group_key", groupKey,
			"role", role,
			"event", event,
			"trigger", triggerAt.Format(time.RFC3339))
	}

	return job, nil
}

// CancelGroup cancels every pending job under the group key for the case,
// regardless of how many roles or offsets were scheduled under it.
// Cancellations observed before a job is picked up for firing always win.
func (s *Scheduler) CancelGroup(ctx context.Context, caseID, groupKey string) int {
	s.mu.Lock()
	var cancelled []*notify.ScheduledJob
	for key, job := range s.jobs {
		if key.caseID == caseID && key.groupKey == groupKey {
			cancelled = append(cancelled, job)
			delete(s.jobs, key)
		}
	}
	s.mu.Unlock()

	for _, job := range cancelled {
		if s.store != nil {
			if err := s.store.DeleteJob(ctx, job.ID); err != nil {
				s.logger.Warn("Failed to delete cancelled job", "job_id", job.ID, "error", err)
			}
		}
	}

	if len(cancelled) > 0 {
		s.logger.Info("Job group cancelled", "case_id", caseID, "group_key", groupKey, "count", len(cancelled))
	}
	return len(cancelled)
}

// Pending returns the pending jobs for a case, oldest trigger first. An empty
// group key matches every group.
func (s *Scheduler) Pending(caseID, groupKey string) []notify.ScheduledJob {
	s.mu.Lock()
	var out []notify.ScheduledJob
	for key, job := range s.jobs {
		if key.caseID == caseID && (groupKey == "" || key.groupKey == groupKey) {
			out = append(out, *job)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TriggerAt.Before(out[j].TriggerAt) })
	return out
}

// FireDue pops every job whose trigger time has arrived and invokes the
// firing callback on it. Jobs are removed before the callback runs, so a
// cancel racing an in-flight fire may lose; that window is accepted.
func (s *Scheduler) FireDue(ctx context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*notify.ScheduledJob
	for key, job := range s.jobs {
		if !job.TriggerAt.After(now) {
			due = append(due, job)
			delete(s.jobs, key)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].TriggerAt.Before(due[j].TriggerAt) })

	for _, job := range due {
		if s.store != nil {
			if err := s.store.DeleteJob(ctx, job.ID); err != nil {
				s.logger.Warn("Failed to delete fired job", "job_id", job.ID, "error", err)
			}
		}
		if s.fire == nil {
			s.logger.Warn("No firer installed, dropping due job", "job_id", job.ID)
			continue
		}
		if err := s.fire(ctx, *job); err != nil {
			s.logger.Warn("Job firing failed",
				"job_id", job.ID,
				"case_id", job.CaseID,
				"group_key", job.GroupKey,
				"error", err)
			continue
		}
		s.logger.Info("Job fired",
			"job_id", job.ID,
			"case_id", job.CaseID,
			"group_key", job.GroupKey,
			"event", job.Event)
	}
	return len(due)
}

// Run fires due jobs on the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler running", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping", "error", ctx.Err())
			return
		case <-ticker.C:
			s.FireDue(ctx)
		}
	}
}
