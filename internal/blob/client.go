package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned by a Destroyer when the store has no object under
// the derived key.
var ErrNotFound = errors.New("blob not found")

// Destroyer removes one resume from a concrete blob store. Implementations
// treat an already-missing object as success.
type Destroyer interface {
	Destroy(ctx context.Context, ref ResumeRef) error
	Name() string
}

// Client is the blob cleanup client used by the purge jobs.
type Client struct {
	backend Destroyer
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient wraps backend. Each remote call is bounded by timeout.
func NewClient(backend Destroyer, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		backend: backend,
		timeout: timeout,
		logger:  logger.With("blobProvider", backend.Name()),
	}
}

// Delete removes the resume referenced by resumeURL. It returns true only if
// an identifier was derived and the remote call succeeded. It never panics
// and never returns an error.
func (c *Client) Delete(ctx context.Context, resumeURL string) bool {
	ref, ok := ParseResumeURL(resumeURL)
	if !ok {
		c.logger.Warn("Resume URL has no resume identifier, skipping blob delete", "resumeUrl", resumeURL)
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.destroy(callCtx, ref)
	if errors.Is(err, ErrNotFound) {
		// Nothing left to delete, but a wrong resource type or key layout
		// looks exactly like this.
		c.logger.Warn("Resume blob not found, treating as deleted", "resumeUrl", resumeURL, "key", ref.PublicID())
		return true
	}
	if err != nil {
		c.logger.Error("Resume blob delete failed", "resumeUrl", resumeURL, "key", ref.PublicID(), "error", err)
		return false
	}
	c.logger.Debug("Resume blob deleted", "key", ref.PublicID())
	return true
}

func (c *Client) destroy(ctx context.Context, ref ResumeRef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("blob backend panicked: %v", r)
		}
	}()
	return c.backend.Destroy(ctx, ref)
}
