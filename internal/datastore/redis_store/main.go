package redis_store

import (
	"context"
	"fmt"
	"time"

	"codedrop/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const AVAILABILITY_TTL = time.Minute

func dbKeyAvailability(projectID string) string {
	return fmt.Sprintf("project:%s:availability", projectID)
}

// SetAvailability stores the per-platform availability snapshot. The cron
// rewrites it well before the TTL; staleness is bounded either way.
func SetAvailability(ctx context.Context, cmd redis.Cmdable, projectID string, v map[models.Platform]models.PlatformAvailability) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	err = cmd.Set(ctx, dbKeyAvailability(projectID), b, AVAILABILITY_TTL).Err()
	if err != nil {
		return err
	}

	return nil
}

func GetAvailability(ctx context.Context, cmd redis.Cmdable, projectID string) (map[models.Platform]models.PlatformAvailability, error) {
	b, err := cmd.Get(ctx, dbKeyAvailability(projectID)).Bytes()
	if err != nil {
		return nil, err
	}

	var v map[models.Platform]models.PlatformAvailability
	err = msgpack.Unmarshal(b, &v)
	return v, err
}
