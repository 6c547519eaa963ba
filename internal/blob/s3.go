package blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 deletes resumes from an S3 (or S3-compatible) bucket.
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Options configures NewS3.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string // non-empty switches to path-style addressing
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
}

// NewS3 builds an S3 client from opts.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, bucket: opts.Bucket}, nil
}

func (s *S3) Name() string { return "s3" }

// Destroy issues DeleteObject, which already succeeds for missing keys.
func (s *S3) Destroy(ctx context.Context, ref ResumeRef) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.ObjectKey()),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", ref.ObjectKey(), err)
	}
	return nil
}
