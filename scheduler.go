package medic

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ScheduledJob describes a recurring dispatch to a component.
type ScheduledJob struct {
	// Name uniquely identifies the job within one scheduler
	Name string

	// Schedule is a standard cron expression (e.g. "0 3 * * *")
	Schedule string

	// Component is the dispatch target
	Component string

	// Params is the free-form payload passed to the component
	Params map[string]any
}

// Scheduler runs cron jobs that dispatch recurring maintenance operations to
// components through a supervisor. Outcomes are logged; a failed dispatch
// never stops the schedule.
type Scheduler struct {
	c   *cron.Cron
	sup *Supervisor

	mu      sync.Mutex
	jobs    map[string]ScheduledJob
	entries map[string]cron.EntryID // job name → cron entry ID
}

// NewScheduler creates a scheduler dispatching through sup.
func NewScheduler(sup *Supervisor) *Scheduler {
	return &Scheduler{
		c:       cron.New(),
		sup:     sup,
		jobs:    make(map[string]ScheduledJob),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the cron runner and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.c.Start()
	slog.Info("scheduler started")
	<-ctx.Done()
	s.c.Stop()
	slog.Info("scheduler stopped")
}

// AddJob adds a job to the cron runner. If a job with the same name already
// exists it is replaced.
func (s *Scheduler) AddJob(job ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Add the new entry before removing any existing one, so a rejected
	// schedule leaves the previous job running.
	id, err := s.c.AddFunc(job.Schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		return err
	}

	if old, ok := s.entries[job.Name]; ok {
		s.c.Remove(old)
	}

	s.entries[job.Name] = id
	s.jobs[job.Name] = job
	slog.Info("scheduled job added",
		"job", job.Name,
		"schedule", job.Schedule,
		"component", job.Component,
	)
	return nil
}

// RemoveJob removes a job by name.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return ErrJobNotFound
	}

	s.c.Remove(id)
	delete(s.entries, name)
	delete(s.jobs, name)
	slog.Info("scheduled job removed", "job", name)
	return nil
}

// Jobs returns the currently scheduled jobs.
func (s *Scheduler) Jobs() []ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out
}

// LoadJobs adds every job declared in a manifest. The first schedule that
// fails to parse aborts the load and returns the error.
func (s *Scheduler) LoadJobs(m *Manifest) error {
	for _, mj := range m.Jobs {
		job := ScheduledJob{
			Name:      mj.Name,
			Schedule:  mj.Schedule,
			Component: mj.Component,
			Params:    mj.Params,
		}
		if err := s.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}

// runJob performs one scheduled dispatch and logs the outcome.
func (s *Scheduler) runJob(job ScheduledJob) {
	res := s.sup.Dispatch(context.Background(), job.Component, job.Params)
	if res.Success {
		slog.Debug("scheduled dispatch ok",
			"job", job.Name,
			"component", job.Component,
		)
		return
	}

	slog.Warn("scheduled dispatch failed",
		"job", job.Name,
		"component", job.Component,
		"message", res.Message,
		"error", res.Err,
	)
}
