package retention

import (
	"context"
	"fmt"

	"jobrocket/retention-service/internal/model"
)

// ListingPurge deletes listings more than seven days past expiry together
// with all of their applications and resumes.
type ListingPurge struct {
	runner
}

// NewListingPurge returns the listing purge job.
func NewListingPurge(d Deps) *ListingPurge {
	return &ListingPurge{runner: newRunner("listing-purge", d)}
}

func (j *ListingPurge) Name() string { return j.name }

// Run executes the job on the base context. It satisfies cron.Job.
func (j *ListingPurge) Run() { j.Execute(j.deps.BaseContext) }

// Execute runs one purge and returns its statistics. It never panics.
func (j *ListingPurge) Execute(ctx context.Context) RunStats {
	return j.execute(ctx, j.purge)
}

// purge works on the whole candidate set as one batch:
// FetchCandidates → ResolveDependents → CleanupBlobs → DeleteDependents → DeletePrimary.
func (j *ListingPurge) purge(ctx context.Context, rn *run) error {
	if err := ctx.Err(); err != nil {
		rn.stats.Interrupted = true
		return nil
	}

	cctx, cancel := j.call(ctx)
	listings, cutoff, err := ListingCandidates(cctx, j.deps.Store, rn.now)
	cancel()
	rn.stats.Cutoff = cutoff
	if err != nil {
		return atStage(StageFetchCandidates, err)
	}
	rn.stats.CandidateCount = len(listings)
	if len(listings) == 0 {
		rn.logger.Info("No expired listings past the grace period, nothing to do", "cutoff", cutoff)
		return nil
	}

	// The batch is short; let it finish even if shutdown starts now.
	ctx = context.WithoutCancel(ctx)
	ids := model.ListingIDs(listings)

	cctx, cancel = j.call(ctx)
	apps, err := j.deps.Store.ApplicationsForListings(cctx, ids)
	cancel()
	if err != nil {
		// Deleting the listings now would orphan their applications.
		return atStage(StageResolveDependents, fmt.Errorf("applications for %d listings: %w", len(ids), err))
	}
	rn.logger.Info("Resolved listing dependents", "listings", len(ids), "applications", len(apps))

	j.cleanupResumes(ctx, rn, apps)

	if err := j.deleteApplications(ctx, rn, apps); err != nil {
		rn.recordItem("batch", err)
	}

	cctx, cancel = j.call(ctx)
	n, err := j.deps.Store.DeleteListings(cctx, ids)
	cancel()
	if err != nil {
		rn.recordItem("batch", atStage(StageDeletePrimary, fmt.Errorf("delete %d listings: %w", len(ids), err)))
		return nil
	}
	rn.stats.PrimaryDeleted += n
	return nil
}
