package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"jobrocket/retention-service/internal/audit"
	"jobrocket/retention-service/internal/blob"
	"jobrocket/retention-service/internal/config"
	"jobrocket/retention-service/internal/db"
	"jobrocket/retention-service/internal/lock"
	"jobrocket/retention-service/internal/retention"
	"jobrocket/retention-service/internal/scheduler"
	"jobrocket/retention-service/internal/store/mongostore"
	"jobrocket/retention-service/internal/store/postgres"
)

// purgeJob is what every retention job offers to the scheduler and the CLI.
type purgeJob interface {
	scheduler.Job
	Execute(ctx context.Context) retention.RunStats
}

// app holds the connections shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store  retention.Store
	blobs  *blob.Client
	rdb    *redis.Client // nil when REDIS_URL is unset
	closed []func()
}

// newApp connects to the configured store, blob provider and Redis.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.onClose(pool.Close)
		a.store = postgres.New(pool)
	case config.DriverMongo:
		client, err := db.NewMongoClient(connectCtx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = client.Disconnect(context.Background()) })
		a.store = mongostore.New(client.Database(cfg.MongoDatabase))
	}
	logger.Info("Store connected", "driver", cfg.StoreDriver)

	backend, err := a.blobBackend(connectCtx)
	if err != nil {
		return nil, err
	}
	a.blobs = blob.NewClient(backend, cfg.BlobTimeout, logger)
	logger.Info("Blob backend ready", "provider", backend.Name())

	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(connectCtx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = rdb.Close() })
		a.rdb = rdb
		logger.Info("Redis connected, run lock and audit enabled")
	}

	return a, nil
}

func (a *app) blobBackend(ctx context.Context) (blob.Destroyer, error) {
	switch a.cfg.BlobProvider {
	case config.BlobCloudinary:
		return blob.NewCloudinary(a.cfg.CloudinaryURL, a.cfg.CloudinaryResource)
	case config.BlobGCS:
		g, err := blob.NewGCS(ctx, a.cfg.GCSBucket, a.cfg.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = g.Close() })
		return g, nil
	case config.BlobS3:
		return blob.NewS3(ctx, blob.S3Options{
			Bucket:          a.cfg.S3Bucket,
			Region:          a.cfg.S3Region,
			Endpoint:        a.cfg.S3Endpoint,
			AccessKeyID:     a.cfg.S3AccessKeyID,
			SecretAccessKey: a.cfg.S3SecretAccessKey,
		})
	default:
		return blob.Nop{}, nil
	}
}

func (a *app) onClose(fn func()) { a.closed = append(a.closed, fn) }

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closed) - 1; i >= 0; i-- {
		a.closed[i]()
	}
	a.closed = nil
}

// locker returns the run lock, or nil without Redis.
func (a *app) locker() scheduler.Locker {
	if a.rdb == nil {
		return nil
	}
	return lock.NewRedis(a.rdb)
}

// jobs builds the three purge jobs. base is cancelled on shutdown.
func (a *app) jobs(base context.Context) map[string]purgeJob {
	deps := retention.Deps{
		Store:        a.store,
		Blobs:        a.blobs,
		Logger:       a.logger,
		StoreTimeout: a.cfg.StoreTimeout,
		BaseContext:  base,
	}
	if a.rdb != nil {
		deps.Sink = audit.NewRedisSink(a.rdb)
	}

	return map[string]purgeJob{
		"listings":           retention.NewListingPurge(deps),
		"users":              retention.NewUserPurge(deps),
		"stale-applications": retention.NewStaleApplicationPurge(deps),
	}
}

// schedules maps CLI job keys to their configured cron specs.
func schedules(cfg *config.Config) map[string]string {
	return map[string]string{
		"listings":           cfg.ListingPurgeSchedule,
		"users":              cfg.UserPurgeSchedule,
		"stale-applications": cfg.StaleApplicationPurgeSchedule,
	}
}

// jobKeys lists the accepted arguments of the run command.
func jobKeys() []string {
	keys := make([]string, 0, 3)
	for k := range schedules(&config.Config{}) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unknownJob(name string) error {
	return fmt.Errorf("unknown job %q, expected one of: %s", name, strings.Join(jobKeys(), ", "))
}
