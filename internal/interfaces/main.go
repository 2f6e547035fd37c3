package interfaces

import (
	"context"

	"codedrop/internal/models"

	"github.com/go-redis/redis_rate/v10"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// PoolStore owns the durable truth of allocation. Both claim primitives are
// atomic: the claimed transition, the batch counters and the threshold
// markers move in one transaction or not at all.
type PoolStore interface {
	// ClaimOne claims exactly one eligible code for the platform.
	// Returns models.ErrNoCodesAvailable when the pool is exhausted or the
	// bounded retry budget ran out under contention.
	ClaimOne(ctx context.Context, project *models.Project, platform models.Platform, meta models.ClaimMeta) (*models.ClaimResult, error)

	// ClaimSet claims one eligible code per requested platform, all or
	// nothing. Any platform with zero candidates aborts the whole set.
	ClaimSet(ctx context.Context, project *models.Project, platforms []models.Platform, meta models.ClaimMeta) (*models.ClaimResult, error)
}

type ProjectStore interface {
	FindBySlug(ctx context.Context, slug string) (*models.Project, error)
	Availability(ctx context.Context, projectID string) (map[models.Platform]models.PlatformAvailability, error)
	Stats(ctx context.Context, projectID string) (*models.ProjectStats, error)
}

type AttemptLog interface {
	Append(ctx context.Context, entry *models.RedemptionLog) error
}

// Dispatcher is the fire-and-forget side-effect boundary. Emit never blocks
// on delivery and never surfaces delivery errors into the allocation path.
type Dispatcher interface {
	Emit(ctx context.Context, event string, projectID string, payload map[string]any)
}
