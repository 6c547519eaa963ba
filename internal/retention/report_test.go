package retention_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobrocket/retention-service/internal/retention"
)

func TestReporter_LevelsBySeverity(t *testing.T) {
	cases := []struct {
		name  string
		stats retention.RunStats
		want  string
	}{
		{"clean", retention.RunStats{Job: "listing-purge"}, "level=INFO"},
		{"item errors", retention.RunStats{Errors: []retention.ItemError{{Stage: retention.StageDeletePrimary, EntityID: "u1", Err: errors.New("x")}}}, "level=WARN"},
		{"fatal", retention.RunStats{Fatal: errors.New("store down")}, "level=ERROR"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			retention.NewReporter(logger, nil).Report(context.Background(), nil, c.stats)
			assert.True(t, strings.Contains(buf.String(), c.want), "log = %q, want %s", buf.String(), c.want)
		})
	}
}

func TestReporter_SinkErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := &recordingSink{err: errors.New("redis down")}

	retention.NewReporter(logger, sink).Report(context.Background(), nil, retention.RunStats{Job: "user-purge"})

	assert.Len(t, sink.stats, 1)
	assert.Contains(t, buf.String(), "Failed to record run summary")
}

func TestItemError_Unwrap(t *testing.T) {
	base := errors.New("boom")
	ie := retention.ItemError{Stage: retention.StageCleanupBlobs, EntityID: "a1", Err: base}
	assert.ErrorIs(t, ie, base)
	assert.Equal(t, "cleanup_blobs a1: boom", ie.Error())
}
