package semdict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knolab/knolab/internal/oracle"
)

func TestLruRelaterCachesVerdicts(t *testing.T) {
	fake := &fakeRelater{related: false}
	cached := WrapLruCacheToRelater(fake, 16, time.Minute)
	ctx := context.Background()

	rel, err := cached.Relate(ctx, "redis", "rabbitmq")
	require.NoError(t, err)
	require.False(t, rel.Related)

	// Negative verdicts are served from cache too.
	rel, err = cached.Relate(ctx, "redis", "rabbitmq")
	require.NoError(t, err)
	require.False(t, rel.Related)
	require.Equal(t, 1, fake.callCount())

	// Argument order does not matter for the cache key.
	_, err = cached.Relate(ctx, "rabbitmq", "Redis")
	require.NoError(t, err)
	require.Equal(t, 1, fake.callCount())
}

func TestLruRelaterNeverCachesErrors(t *testing.T) {
	fake := &fakeRelater{err: errors.New("timeout")}
	cached := WrapLruCacheToRelater(fake, 16, time.Minute)
	ctx := context.Background()

	_, err := cached.Relate(ctx, "a", "b")
	require.Error(t, err)
	_, err = cached.Relate(ctx, "a", "b")
	require.Error(t, err)
	require.Equal(t, 2, fake.callCount())
}

func TestLruRelaterDisabledConfig(t *testing.T) {
	fake := &fakeRelater{related: true, confidence: 0.5}
	require.Equal(t, oracle.IRelater(fake), WrapLruCacheToRelater(fake, 0, time.Minute))
	require.Equal(t, oracle.IRelater(fake), WrapLruCacheToRelater(fake, 16, 0))
	require.Nil(t, WrapLruCacheToRelater(nil, 16, time.Minute))
}
