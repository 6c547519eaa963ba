// Package audit keeps the last run summary of each purge job in Redis so
// operators can check what the nightly jobs did without searching logs.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"jobrocket/retention-service/internal/retention"
)

// ErrNoRecord is returned by Last when a job has no stored summary.
var ErrNoRecord = errors.New("no run recorded")

const (
	keyPrefix  = "retention:last_run:"
	defaultTTL = 90 * 24 * time.Hour
)

// RedisSink implements retention.StatsSink.
type RedisSink struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisSink returns a sink writing to rdb.
func NewRedisSink(rdb redis.Cmdable) *RedisSink {
	return &RedisSink{rdb: rdb, ttl: defaultTTL}
}

// Key is the Redis hash key holding job's last summary.
func Key(job string) string { return keyPrefix + job }

// Record replaces the stored summary for stats.Job.
func (s *RedisSink) Record(ctx context.Context, stats retention.RunStats) error {
	key := Key(stats.Job)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, Fields(stats))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record %s: %w", key, err)
	}
	return nil
}

// Last returns the stored summary for job.
func (s *RedisSink) Last(ctx context.Context, job string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, Key(job)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Key(job), err)
	}
	if len(m) == 0 {
		return nil, ErrNoRecord
	}
	return m, nil
}

// Fields flattens stats into hash fields.
func Fields(st retention.RunStats) map[string]any {
	status := "ok"
	switch {
	case st.Fatal != nil:
		status = "aborted"
	case len(st.Errors) > 0:
		status = "partial"
	case st.Interrupted:
		status = "interrupted"
	}

	f := map[string]any{
		"runId":             st.RunID,
		"status":            status,
		"startedAt":         st.StartedAt.UTC().Format(time.RFC3339),
		"finishedAt":        st.FinishedAt.UTC().Format(time.RFC3339),
		"cutoff":            st.Cutoff.UTC().Format(time.RFC3339),
		"candidates":        strconv.Itoa(st.CandidateCount),
		"primaryDeleted":    strconv.FormatInt(st.PrimaryDeleted, 10),
		"dependentsDeleted": strconv.FormatInt(st.DependentsDeleted, 10),
		"blobsDeleted":      strconv.Itoa(st.BlobsDeleted),
		"blobFailures":      strconv.Itoa(st.BlobFailures),
		"errors":            strconv.Itoa(len(st.Errors)),
	}
	if st.Fatal != nil {
		f["fatal"] = st.Fatal.Error()
	}
	return f
}
