// retention-service
//
// Background worker that enforces data retention for the job board:
//   - listing purge: listings expired more than 7 days ago, with their
//     applications and resume files
//   - user purge: accounts soft-deleted more than 30 days ago, with their
//     pending applications and resume files
//   - stale application purge: applications on listings expired for 2 years
//
// Jobs run on cron schedules under `serve`, or once via `run <job>`.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jobrocket/retention-service/internal/audit"
	"jobrocket/retention-service/internal/config"
	"jobrocket/retention-service/internal/health"
	"jobrocket/retention-service/internal/logging"
	"jobrocket/retention-service/internal/retention"
	"jobrocket/retention-service/internal/scheduler"
)

const (
	version = "1.0.0"

	// shutdownGrace bounds how long serve waits for a running job to finish
	// its current candidate.
	shutdownGrace = 2 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "retention-service",
		Short:        "Purge expired listings, deleted users and stale applications",
		Version:      version,
		SilenceUsage: true,
		RunE:         serveCmdF,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the purge jobs on their schedules (default)",
			Args:  cobra.NoArgs,
			RunE:  serveCmdF,
		},
		&cobra.Command{
			Use:       "run <job>",
			Short:     "Run one purge job now and print its stats",
			Args:      cobra.ExactValidArgs(1),
			ValidArgs: jobKeys(),
			RunE:      runCmdF,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the last recorded run of each job",
			Args:  cobra.NoArgs,
			RunE:  statusCmdF,
		},
	)
	return root
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", "error", err)
		return nil, err
	}
	return a, nil
}

func serveCmdF(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	sched := scheduler.New(logger, a.cfg.Location, a.locker())
	specs := schedules(a.cfg)
	for key, job := range a.jobs(ctx) {
		if err := sched.Register(specs[key], job); err != nil {
			return err
		}
	}

	hs := health.New(logger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hs.ListenAndServe(gctx, a.cfg.HealthPort)
	})

	g.Go(func() error {
		sched.Start()
		hs.SetServing(true)
		logger.Info("retention-service started", "version", version, "timezone", a.cfg.Location.String())

		<-gctx.Done()
		hs.SetServing(false)
		logger.Info("Shutting down, waiting for running jobs")

		select {
		case <-sched.Stop().Done():
			logger.Info("Stopped")
		case <-time.After(shutdownGrace):
			logger.Warn("Running jobs did not finish in time", "grace", shutdownGrace)
		}
		return nil
	})

	return g.Wait()
}

func runCmdF(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	job, ok := a.jobs(ctx)[args[0]]
	if !ok {
		return unknownJob(args[0])
	}

	if l := a.locker(); l != nil {
		release, ok, err := l.Acquire(ctx, job.Name(), scheduler.DefaultLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is already running", job.Name())
		}
		defer release()
	}

	stats := job.Execute(ctx)
	printStats(cmd.OutOrStdout(), stats)
	if stats.Fatal != nil {
		return stats.Fatal
	}
	if len(stats.Errors) > 0 {
		return fmt.Errorf("%s finished with %d item error(s)", job.Name(), len(stats.Errors))
	}
	return nil
}

func statusCmdF(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.rdb == nil {
		return errors.New("status needs REDIS_URL: run summaries are kept in Redis")
	}

	sink := audit.NewRedisSink(a.rdb)
	out := cmd.OutOrStdout()
	jobs := a.jobs(ctx)
	for _, key := range jobKeys() {
		job := jobs[key]
		fmt.Fprintf(out, "%s (%s)\n", job.Name(), schedules(a.cfg)[key])

		last, err := sink.Last(ctx, job.Name())
		if errors.Is(err, audit.ErrNoRecord) {
			fmt.Fprintln(out, "  never run")
			continue
		}
		if err != nil {
			return err
		}
		printFields(out, last)
	}
	return nil
}

func printStats(w io.Writer, st retention.RunStats) {
	fmt.Fprintf(w, "job:                %s\n", st.Job)
	fmt.Fprintf(w, "run id:             %s\n", st.RunID)
	fmt.Fprintf(w, "cutoff:             %s\n", st.Cutoff.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "duration:           %s\n", st.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "candidates:         %d\n", st.CandidateCount)
	fmt.Fprintf(w, "primary deleted:    %d\n", st.PrimaryDeleted)
	fmt.Fprintf(w, "dependents deleted: %d\n", st.DependentsDeleted)
	fmt.Fprintf(w, "blobs deleted:      %d (failed %d)\n", st.BlobsDeleted, st.BlobFailures)
	if st.Interrupted {
		fmt.Fprintln(w, "interrupted:        yes")
	}
	for _, e := range st.Errors {
		fmt.Fprintf(w, "error:              %v\n", e)
	}
	if st.Fatal != nil {
		fmt.Fprintf(w, "aborted:            %v\n", st.Fatal)
	}
}

func printFields(w io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-18s %s\n", k+":", m[k])
	}
}
