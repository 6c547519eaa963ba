package retention

import (
	"context"
	"fmt"

	"jobrocket/retention-service/internal/model"
)

// StaleApplicationPurge deletes every application, whatever its status, on
// listings that expired more than two years ago. The listings themselves are
// left in place.
//
// ListingPurge normally removes such listings long before they qualify, so
// this job usually finds nothing. It matters when listing purge was paused or
// a listing carries a backdated expiry.
type StaleApplicationPurge struct {
	runner
}

// NewStaleApplicationPurge returns the stale application purge job.
func NewStaleApplicationPurge(d Deps) *StaleApplicationPurge {
	return &StaleApplicationPurge{runner: newRunner("stale-application-purge", d)}
}

func (j *StaleApplicationPurge) Name() string { return j.name }

// Run executes the job on the base context. It satisfies cron.Job.
func (j *StaleApplicationPurge) Run() { j.Execute(j.deps.BaseContext) }

// Execute runs one purge and returns its statistics. It never panics.
func (j *StaleApplicationPurge) Execute(ctx context.Context) RunStats {
	return j.execute(ctx, j.purge)
}

func (j *StaleApplicationPurge) purge(ctx context.Context, rn *run) error {
	if err := ctx.Err(); err != nil {
		rn.stats.Interrupted = true
		return nil
	}

	cctx, cancel := j.call(ctx)
	listings, cutoff, err := StaleListingCandidates(cctx, j.deps.Store, rn.now)
	cancel()
	rn.stats.Cutoff = cutoff
	if err != nil {
		return atStage(StageFetchCandidates, err)
	}
	if len(listings) == 0 {
		rn.logger.Info("No listings past the stale application cutoff, nothing to do", "cutoff", cutoff)
		return nil
	}

	ctx = context.WithoutCancel(ctx)
	ids := model.ListingIDs(listings)

	cctx, cancel = j.call(ctx)
	apps, err := j.deps.Store.ApplicationsForListings(cctx, ids)
	cancel()
	if err != nil {
		return atStage(StageFetchCandidates, fmt.Errorf("applications for %d listings: %w", len(ids), err))
	}
	rn.stats.CandidateCount = len(apps)
	if len(apps) == 0 {
		rn.logger.Info("Stale listings have no applications left", "listings", len(ids))
		return nil
	}

	j.cleanupResumes(ctx, rn, apps)

	if err := j.deleteApplications(ctx, rn, apps); err != nil {
		rn.recordItem("batch", err)
	}
	return nil
}
