package retention

import (
	"errors"
	"fmt"
	"time"
)

// Stage names one step of a purge pipeline.
type Stage string

const (
	StageFetchCandidates   Stage = "fetch_candidates"
	StageResolveDependents Stage = "resolve_dependents"
	StageCleanupBlobs      Stage = "cleanup_blobs"
	StageDeleteDependents  Stage = "delete_dependents"
	StageDeletePrimary     Stage = "delete_primary"
)

// ItemError records a failure that was isolated to one entity or one batch
// step. The run continued past it.
type ItemError struct {
	Stage    Stage
	EntityID string
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.EntityID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// RunStats summarises one execution of a purge job.
type RunStats struct {
	Job        string
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Cutoff     time.Time

	CandidateCount    int
	PrimaryDeleted    int64
	DependentsDeleted int64
	BlobsDeleted      int
	BlobFailures      int

	Errors      []ItemError
	Fatal       error // set when the run ended early; deletions made before that point stand
	Interrupted bool  // shutdown requested before all candidates were processed
}

// OK reports whether the run finished without any recorded failure.
// Blob failures are not counted: they never block a database delete.
func (s RunStats) OK() bool { return s.Fatal == nil && len(s.Errors) == 0 }

// Duration is the wall time of the run.
func (s RunStats) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }

// stageError tags an error with the pipeline stage it came from.
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

func atStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

// itemError converts err into an ItemError for entityID, keeping the stage
// when err carries one.
func itemError(entityID string, err error) ItemError {
	var se *stageError
	if errors.As(err, &se) {
		return ItemError{Stage: se.stage, EntityID: entityID, Err: se.err}
	}
	return ItemError{Stage: StageDeletePrimary, EntityID: entityID, Err: err}
}
