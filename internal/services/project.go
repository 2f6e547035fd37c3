package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codedrop/internal/datastore"
	"codedrop/internal/datastore/redis_store"
	"codedrop/internal/models"
	"codedrop/internal/pkg/caching"

	"github.com/go-redsync/redsync/v4"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceProject struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceProject(container *do.Injector) (*ServiceProject, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	return &ServiceProject{container, redisDB, rs, readonlyPostgresDB, cache, readonlyCache}, nil
}

func (service *ServiceProject) FindBySlug(ctx context.Context, slug string) (*models.Project, error) {
	callback := func() (*models.Project, error) {
		project, err := datastore.GetProjectBySlug(ctx, service.readonlyPostgresDB, slug)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProjectNotFound
		}
		if err != nil {
			return nil, err
		}
		return project, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyProject(slug), CACHE_TTL_15_SECONDS, callback)
}

// Availability serves the per-platform counts from the redis snapshot, and
// rebuilds the snapshot when it is missing. Only one instance rebuilds at a
// time; losers read straight from the database without writing the snapshot.
func (service *ServiceProject) Availability(ctx context.Context, projectID string) (map[models.Platform]models.PlatformAvailability, error) {
	snapshot, err := redis_store.GetAvailability(ctx, service.redisDB, projectID)
	if err == nil {
		return snapshot, nil
	}
	if err != redis.Nil {
		return nil, err
	}

	mutex := service.rs.NewMutex(LockKeyAvailability(projectID))
	if err := mutex.TryLock(); err != nil {
		batches, err := datastore.GetProjectBatches(ctx, service.readonlyPostgresDB, projectID)
		if err != nil {
			return nil, err
		}
		return datastore.FoldAvailability(batches, time.Now()), nil
	}
	// nolint:errcheck
	defer mutex.Unlock()

	return service.RebuildAvailability(ctx, projectID)
}

// RebuildAvailability recomputes the snapshot from the database and stores
// it. Callers are expected to hold the availability lock.
func (service *ServiceProject) RebuildAvailability(ctx context.Context, projectID string) (map[models.Platform]models.PlatformAvailability, error) {
	batches, err := datastore.GetProjectBatches(ctx, service.readonlyPostgresDB, projectID)
	if err != nil {
		return nil, err
	}

	snapshot := datastore.FoldAvailability(batches, time.Now())
	if err := redis_store.SetAvailability(ctx, service.redisDB, projectID, snapshot); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (service *ServiceProject) Stats(ctx context.Context, projectID string) (*models.ProjectStats, error) {
	callback := func() (*models.ProjectStats, error) {
		batches, err := datastore.GetProjectBatches(ctx, service.readonlyPostgresDB, projectID)
		if err != nil {
			return nil, err
		}

		stats := &models.ProjectStats{
			TotalBatches: len(batches),
			ByPlatform:   datastore.FoldAvailability(batches, time.Now()),
		}
		for _, batch := range batches {
			stats.TotalCodes += batch.TotalCodes
			stats.UsedCodes += batch.UsedCodes
		}
		stats.AvailableCodes = stats.TotalCodes - stats.UsedCodes
		if stats.TotalCodes > 0 {
			stats.RedemptionRate = float64(stats.UsedCodes) / float64(stats.TotalCodes)
		}

		return stats, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyProjectStats(projectID), CACHE_TTL_15_SECONDS, callback)
}
