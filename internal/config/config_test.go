package config_test

import (
	"strings"
	"testing"
	"time"

	"jobrocket/retention-service/internal/config"
)

// setBaseEnv sets the minimum variables for a valid postgres + no-blob config.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/jobrocket")
	t.Setenv("BLOB_PROVIDER", "none")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ListingPurgeSchedule != "0 2 * * *" {
		t.Errorf("ListingPurgeSchedule = %q, want 0 2 * * *", cfg.ListingPurgeSchedule)
	}
	if cfg.UserPurgeSchedule != "0 3 * * *" {
		t.Errorf("UserPurgeSchedule = %q, want 0 3 * * *", cfg.UserPurgeSchedule)
	}
	if cfg.StaleApplicationPurgeSchedule != "0 4 * * *" {
		t.Errorf("StaleApplicationPurgeSchedule = %q, want 0 4 * * *", cfg.StaleApplicationPurgeSchedule)
	}
	if cfg.StoreTimeout != 30*time.Second {
		t.Errorf("StoreTimeout = %v, want 30s", cfg.StoreTimeout)
	}
	if cfg.BlobTimeout != 15*time.Second {
		t.Errorf("BlobTimeout = %v, want 15s", cfg.BlobTimeout)
	}
	if cfg.CloudinaryResource != "image" {
		t.Errorf("CloudinaryResource = %q, want image", cfg.CloudinaryResource)
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "dynamo"}, "STORE_DRIVER"},
		{"mongo without uri", map[string]string{"STORE_DRIVER": "mongo"}, "MONGO_URI"},
		{"unknown blob provider", map[string]string{"BLOB_PROVIDER": "ftp"}, "BLOB_PROVIDER"},
		{"cloudinary without url", map[string]string{"BLOB_PROVIDER": "cloudinary"}, "CLOUDINARY_URL"},
		{"gcs without bucket", map[string]string{"BLOB_PROVIDER": "gcs"}, "GCS_BUCKET"},
		{"s3 without bucket", map[string]string{"BLOB_PROVIDER": "s3"}, "S3_BUCKET"},
		{"s3 key without secret", map[string]string{"BLOB_PROVIDER": "s3", "S3_BUCKET": "resumes", "S3_ACCESS_KEY_ID": "AKIA"}, "S3_SECRET_ACCESS_KEY"},
		{"bad schedule", map[string]string{"USER_PURGE_SCHEDULE": "every day"}, "USER_PURGE_SCHEDULE"},
		{"bad timezone", map[string]string{"SCHEDULE_TIMEZONE": "Mars/Olympus"}, "SCHEDULE_TIMEZONE"},
		{"bad store timeout", map[string]string{"STORE_TIMEOUT": "soon"}, "STORE_TIMEOUT"},
		{"negative blob timeout", map[string]string{"BLOB_TIMEOUT": "-1s"}, "BLOB_TIMEOUT"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			if err == nil {
				t.Fatalf("Load() expected error mentioning %s, got nil", c.wantErr)
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("Load() error = %q, want it to mention %s", err, c.wantErr)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Jerusalem")
	t.Setenv("STORE_TIMEOUT", "45s")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Location.String() != "Asia/Jerusalem" {
		t.Errorf("Location = %v, want Asia/Jerusalem", cfg.Location)
	}
	if cfg.StoreTimeout != 45*time.Second {
		t.Errorf("StoreTimeout = %v, want 45s", cfg.StoreTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}
