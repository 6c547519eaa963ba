package scheduler

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// NewLoggingWrapper logs the start and end of every execution with an
// execution id.
func NewLoggingWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := logger.With(
				slog.String("job_name", jobName(j)),
				slog.String("execution_id", uuid.New().String()),
			)

			start := time.Now()
			jobLogger.Info("Job execution started")
			j.Run()
			jobLogger.Info("Job execution finished", slog.Duration("duration", time.Since(start)))
		})
	}
}

// NewPanicRecoveryWrapper stops a panicking job from taking the process down.
func NewPanicRecoveryWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						slog.String("job_name", jobName(j)),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()
			j.Run()
		})
	}
}

// NewLockWrapper runs the job only while holding its lock. If the lock is
// held elsewhere or Redis is unreachable the execution is skipped.
func NewLockWrapper(logger *slog.Logger, locker Locker, ttl time.Duration) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			name := jobName(j)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			release, ok, err := locker.Acquire(ctx, name, ttl)
			cancel()
			if err != nil {
				logger.Error("Job lock unavailable, skipping", slog.String("job_name", name), slog.Any("error", err))
				return
			}
			if !ok {
				logger.Info("Job already running elsewhere, skipping", slog.String("job_name", name))
				return
			}
			defer release()

			j.Run()
		})
	}
}

// namedJob carries the wrapped job's name past wrappers that return a bare
// cron.FuncJob.
type namedJob struct {
	cron.Job
	name string
}

func (j namedJob) Name() string { return j.name }

// keepName makes w's output report the same name as its input.
func keepName(w cron.JobWrapper) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return namedJob{Job: w(j), name: jobName(j)}
	}
}

// jobName prefers the job's Name method and falls back to its type.
func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	t := reflect.TypeOf(j)
	if t.Kind() == reflect.Ptr {
		return t.Elem().String()
	}
	return t.String()
}
