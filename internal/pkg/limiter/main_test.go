package limiter

import (
	"testing"

	"codedrop/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNewLimiterAcceptsUniversalClient(t *testing.T) {
	var client redis.UniversalClient = redis.NewClient(&redis.Options{})

	lim, err := NewLimiter(client)
	require.NoError(t, err)

	var _ interfaces.Limiter = lim
}
