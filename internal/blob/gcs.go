package blob

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS deletes resumes from a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCS creates a storage client. credentialsFile may be empty to use
// application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket)}, nil
}

func (g *GCS) Name() string { return "gcs" }

func (g *GCS) Destroy(ctx context.Context, ref ResumeRef) error {
	err := g.bucket.Object(ref.ObjectKey()).Delete(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", ref.ObjectKey(), ErrNotFound)
	}
	return fmt.Errorf("gcs delete %s: %w", ref.ObjectKey(), err)
}

func (g *GCS) Close() error { return g.client.Close() }
