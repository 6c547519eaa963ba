package retention

import (
	"context"
	"log/slog"
	"time"
)

// StatsSink stores run summaries for later audit.
type StatsSink interface {
	Record(ctx context.Context, stats RunStats) error
}

// Reporter writes the end-of-run summary. Per-item failures are logged as
// they happen; the summary repeats the totals for operators.
type Reporter struct {
	logger *slog.Logger
	sink   StatsSink
}

// NewReporter returns a Reporter. sink may be nil.
func NewReporter(logger *slog.Logger, sink StatsSink) *Reporter {
	return &Reporter{logger: logger, sink: sink}
}

const sinkTimeout = 5 * time.Second

// Report logs stats through logger (falling back to the reporter's own) and
// forwards them to the sink. Sink failures are logged and dropped.
func (r *Reporter) Report(ctx context.Context, logger *slog.Logger, stats RunStats) {
	if logger == nil {
		logger = r.logger
	}

	attrs := []any{
		"cutoff", stats.Cutoff,
		"candidates", stats.CandidateCount,
		"primaryDeleted", stats.PrimaryDeleted,
		"dependentsDeleted", stats.DependentsDeleted,
		"blobsDeleted", stats.BlobsDeleted,
		"blobFailures", stats.BlobFailures,
		"errors", len(stats.Errors),
		"interrupted", stats.Interrupted,
		"duration", stats.Duration(),
	}

	switch {
	case stats.Fatal != nil:
		logger.Error("Retention run aborted, will retry on next schedule", append(attrs, "error", stats.Fatal)...)
	case len(stats.Errors) > 0:
		logger.Warn("Retention run finished with errors", attrs...)
	default:
		logger.Info("Retention run finished", attrs...)
	}

	if r.sink == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()
	if err := r.sink.Record(sctx, stats); err != nil {
		logger.Warn("Failed to record run summary", "error", err)
	}
}
