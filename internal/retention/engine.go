package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobrocket/retention-service/internal/model"
)

// Store is the document-store surface the purge jobs need. Cutoff filters
// are strict (<). Delete methods return the number of records removed.
type Store interface {
	ExpiredListings(ctx context.Context, cutoff time.Time) ([]model.Listing, error)
	PurgeableUsers(ctx context.Context, cutoff time.Time) ([]model.User, error)
	ApplicationsForListings(ctx context.Context, listingIDs []string) ([]model.Application, error)
	PendingApplicationsByApplicant(ctx context.Context, userID string) ([]model.Application, error)
	DeleteApplications(ctx context.Context, ids []string) (int64, error)
	DeleteListings(ctx context.Context, ids []string) (int64, error)
	DeleteUser(ctx context.Context, id string) (int64, error)
}

// BlobCleaner deletes one resume by URL and never fails loudly.
type BlobCleaner interface {
	Delete(ctx context.Context, resumeURL string) bool
}

// Deps are shared by all purge jobs.
type Deps struct {
	Store  Store
	Blobs  BlobCleaner
	Logger *slog.Logger
	Sink   StatsSink // optional

	// StoreTimeout bounds each store call. Zero means 30s.
	StoreTimeout time.Duration

	// BaseContext is used by the zero-argument Run entry point. Cancelling it
	// stops a run after the candidate currently being processed.
	BaseContext context.Context

	// Now defaults to time.Now.
	Now func() time.Time
}

// runner holds what every job shares: dependencies and the run bookkeeping.
type runner struct {
	name     string
	deps     Deps
	reporter *Reporter
}

func newRunner(name string, d Deps) runner {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = 30 * time.Second
	}
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	logger := d.Logger.With("system", "retention", "job", name)
	d.Logger = logger
	return runner{name: name, deps: d, reporter: NewReporter(logger, d.Sink)}
}

// run is the mutable state of one execution.
type run struct {
	stats  RunStats
	now    time.Time
	logger *slog.Logger
}

// execute wraps body with run bookkeeping and reporting. body returns a
// job-level error only when the run must end early.
func (r *runner) execute(ctx context.Context, body func(ctx context.Context, rn *run) error) RunStats {
	now := r.deps.Now()
	runID := uuid.NewString()
	rn := &run{
		now:    now,
		logger: r.deps.Logger.With("run_id", runID),
		stats: RunStats{
			Job:       r.name,
			RunID:     runID,
			StartedAt: now,
		},
	}

	rn.logger.Info("Retention run started")
	if err := r.safely(func() error { return body(ctx, rn) }); err != nil {
		rn.stats.Fatal = err
	}
	rn.stats.FinishedAt = r.deps.Now()

	r.reporter.Report(context.WithoutCancel(ctx), rn.logger, rn.stats)
	return rn.stats
}

// safely runs fn and converts a panic into an error.
func (r *runner) safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

// call derives a context for one store call.
func (r *runner) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.deps.StoreTimeout)
}

// cleanupResumes attempts a blob delete for every application with a resume.
// Failures are counted and logged; they never stop the caller.
func (r *runner) cleanupResumes(ctx context.Context, rn *run, apps []model.Application) {
	for _, a := range apps {
		if !a.HasResume() {
			continue
		}
		if r.deps.Blobs.Delete(ctx, a.ResumeURL) {
			rn.stats.BlobsDeleted++
			continue
		}
		rn.stats.BlobFailures++
		rn.logger.Warn("Resume cleanup failed, deleting application record anyway",
			"stage", StageCleanupBlobs, "applicationId", a.ID, "resumeUrl", a.ResumeURL)
	}
}

// deleteApplications bulk-deletes apps and adds the count to the stats.
func (r *runner) deleteApplications(ctx context.Context, rn *run, apps []model.Application) error {
	if len(apps) == 0 {
		return nil
	}
	cctx, cancel := r.call(ctx)
	defer cancel()
	n, err := r.deps.Store.DeleteApplications(cctx, model.ApplicationIDs(apps))
	if err != nil {
		return atStage(StageDeleteDependents, fmt.Errorf("delete %d applications: %w", len(apps), err))
	}
	rn.stats.DependentsDeleted += n
	return nil
}

// recordItem logs and stores a failure isolated to entityID.
func (rn *run) recordItem(entityID string, err error) {
	ie := itemError(entityID, err)
	rn.stats.Errors = append(rn.stats.Errors, ie)
	rn.logger.Error("Retention item failed, continuing",
		"stage", ie.Stage, "entityId", entityID, "error", ie.Err)
}
