package retention

import (
	"context"
	"fmt"

	"jobrocket/retention-service/internal/model"
)

// UserPurge hard-deletes users soft-deleted more than thirty days ago along
// with their pending applications. Reviewed and rejected applications stay
// as the employer's record.
type UserPurge struct {
	runner
}

// NewUserPurge returns the user purge job.
func NewUserPurge(d Deps) *UserPurge {
	return &UserPurge{runner: newRunner("user-purge", d)}
}

func (j *UserPurge) Name() string { return j.name }

// Run executes the job on the base context. It satisfies cron.Job.
func (j *UserPurge) Run() { j.Execute(j.deps.BaseContext) }

// Execute runs one purge and returns its statistics. It never panics.
func (j *UserPurge) Execute(ctx context.Context) RunStats {
	return j.execute(ctx, j.purge)
}

func (j *UserPurge) purge(ctx context.Context, rn *run) error {
	cctx, cancel := j.call(ctx)
	users, cutoff, err := UserCandidates(cctx, j.deps.Store, rn.now)
	cancel()
	rn.stats.Cutoff = cutoff
	if err != nil {
		return atStage(StageFetchCandidates, err)
	}
	rn.stats.CandidateCount = len(users)
	if len(users) == 0 {
		rn.logger.Info("No soft-deleted users past the grace period, nothing to do", "cutoff", cutoff)
		return nil
	}

	for i, u := range users {
		if ctx.Err() != nil {
			rn.stats.Interrupted = true
			rn.logger.Warn("Shutdown requested, stopping before next user", "processed", i, "remaining", len(users)-i)
			break
		}
		// One user's cascade runs to completion once started.
		uctx := context.WithoutCancel(ctx)
		if err := j.safely(func() error { return j.purgeUser(uctx, rn, u) }); err != nil {
			rn.recordItem(u.ID, err)
		}
	}
	return nil
}

// purgeUser runs ResolveDependents → CleanupBlobs → DeleteDependents →
// DeletePrimary for one user.
func (j *UserPurge) purgeUser(ctx context.Context, rn *run, u model.User) error {
	cctx, cancel := j.call(ctx)
	apps, err := j.deps.Store.PendingApplicationsByApplicant(cctx, u.ID)
	cancel()
	if err != nil {
		return atStage(StageResolveDependents, fmt.Errorf("pending applications: %w", err))
	}
	apps = pendingOnly(rn, u.ID, apps)

	j.cleanupResumes(ctx, rn, apps)

	if err := j.deleteApplications(ctx, rn, apps); err != nil {
		return err
	}

	cctx, cancel = j.call(ctx)
	n, err := j.deps.Store.DeleteUser(cctx, u.ID)
	cancel()
	if err != nil {
		return atStage(StageDeletePrimary, fmt.Errorf("delete user: %w", err))
	}
	rn.stats.PrimaryDeleted += n
	rn.logger.Debug("User purged", "userId", u.ID, "pendingApplications", len(apps))
	return nil
}

// pendingOnly keeps applications whose stored status parses as pending.
// Employer records and unrecognised statuses stay in place, whatever the
// store returned.
func pendingOnly(rn *run, userID string, apps []model.Application) []model.Application {
	return keep(apps, func(a model.Application) bool {
		st, err := model.ParseStatus(string(a.Status))
		if err != nil {
			rn.logger.Warn("Leaving application with unrecognised status",
				"userId", userID, "applicationId", a.ID, "error", err)
			return false
		}
		return !model.IsEmployerRecord(st)
	})
}
