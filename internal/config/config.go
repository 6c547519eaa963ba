// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns an
// error and the process exits.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Blob providers.
const (
	BlobCloudinary = "cloudinary"
	BlobGCS        = "gcs"
	BlobS3         = "s3"
	BlobNone       = "none"
)

// Config holds all runtime configuration for the retention service.
type Config struct {
	StoreDriver   string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisURL      string // optional: enables the run lock and audit records

	BlobProvider       string
	CloudinaryURL      string
	CloudinaryResource string
	GCSBucket          string
	GCSCredentialsFile string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string // optional, for S3-compatible stores
	S3AccessKeyID      string // optional, default credential chain otherwise
	S3SecretAccessKey  string

	ListingPurgeSchedule          string
	UserPurgeSchedule             string
	StaleApplicationPurgeSchedule string
	Location                      *time.Location

	StoreTimeout time.Duration
	BlobTimeout  time.Duration

	HealthPort string
	LogLevel   string
	LogFormat  string
}

// Load reads environment variables and returns a validated Config.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:   getEnv("STORE_DRIVER", DriverPostgres),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "jobrocket"),
		RedisURL:      os.Getenv("REDIS_URL"),

		BlobProvider:       getEnv("BLOB_PROVIDER", BlobCloudinary),
		CloudinaryURL:      os.Getenv("CLOUDINARY_URL"),
		CloudinaryResource: getEnv("CLOUDINARY_RESOURCE_TYPE", "image"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),

		ListingPurgeSchedule:          getEnv("LISTING_PURGE_SCHEDULE", "0 2 * * *"),
		UserPurgeSchedule:             getEnv("USER_PURGE_SCHEDULE", "0 3 * * *"),
		StaleApplicationPurgeSchedule: getEnv("STALE_APPLICATION_PURGE_SCHEDULE", "0 4 * * *"),

		HealthPort: getEnv("HEALTH_PORT", "8083"),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:  strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when STORE_DRIVER=%s", DriverMongo)
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMongo, cfg.StoreDriver)
	}

	switch cfg.BlobProvider {
	case BlobCloudinary:
		if cfg.CloudinaryURL == "" {
			return nil, fmt.Errorf("CLOUDINARY_URL is required when BLOB_PROVIDER=%s", BlobCloudinary)
		}
	case BlobGCS:
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when BLOB_PROVIDER=%s", BlobGCS)
		}
	case BlobS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when BLOB_PROVIDER=%s", BlobS3)
		}
		if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey == "" {
			return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY is required when S3_ACCESS_KEY_ID is set")
		}
	case BlobNone:
	default:
		return nil, fmt.Errorf("BLOB_PROVIDER must be one of cloudinary, gcs, s3, none, got %q", cfg.BlobProvider)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"LISTING_PURGE_SCHEDULE":           cfg.ListingPurgeSchedule,
		"USER_PURGE_SCHEDULE":              cfg.UserPurgeSchedule,
		"STALE_APPLICATION_PURGE_SCHEDULE": cfg.StaleApplicationPurgeSchedule,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return nil, fmt.Errorf("%s is not a valid cron spec %q: %w", name, spec, err)
		}
	}

	loc, err := time.LoadLocation(getEnv("SCHEDULE_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.BlobTimeout, err = durationEnv("BLOB_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, s)
	}
	return d, nil
}
