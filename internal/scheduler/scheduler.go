// Package scheduler runs the retention jobs on their cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named cron job. Names identify registrations.
type Job interface {
	cron.Job
	Name() string
}

// Locker serialises runs of the same job across processes.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// DefaultLockTTL bounds how long a crashed holder can block a job.
const DefaultLockTTL = 2 * time.Hour

// Scheduler wraps robfig/cron and keeps one entry per job name.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]registration
}

type registration struct {
	id   cron.EntryID
	spec string
}

// Entry describes a registered job.
type Entry struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

// New creates a Scheduler evaluating schedules in loc. locker may be nil, in
// which case only in-process overlap is prevented.
func New(logger *slog.Logger, loc *time.Location, locker Locker) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With("system", "cron")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	// Outermost first. Recovery sits inside SkipIfStillRunning so a panic
	// cannot leave the job marked as running.
	chain := []cron.JobWrapper{
		keepName(NewLoggingWrapper(logger)),
		keepName(cron.SkipIfStillRunning(cronLogger)),
		keepName(NewPanicRecoveryWrapper(logger)),
	}
	if locker != nil {
		chain = append(chain, keepName(NewLockWrapper(logger, locker, DefaultLockTTL)))
	}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(chain...),
		),
		logger:  logger,
		entries: make(map[string]registration),
	}
}

// Register schedules job at spec. Registering a name again replaces the
// previous entry, so a job is never scheduled twice.
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	id, err := s.cron.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}

	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old.id)
		s.logger.Info("Replaced job schedule", "job_name", name, "old_spec", old.spec, "spec", spec)
	} else {
		s.logger.Info("Registered job", "job_name", name, "spec", spec)
	}
	s.entries[name] = registration{id: id, spec: spec}
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.Entries()))
}

// Stop halts new firings. The returned context is done once running jobs
// have returned.
func (s *Scheduler) Stop() context.Context {
	ctx := s.cron.Stop()
	s.logger.Info("Scheduler stopping")
	return ctx
}

// Entries lists registered jobs sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, reg := range s.entries {
		e := s.cron.Entry(reg.id)
		out = append(out, Entry{Name: name, Spec: reg.spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
