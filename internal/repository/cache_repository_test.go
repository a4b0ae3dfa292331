package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/civic-complaints-api/pkg/errors"
)

type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type cachedLocation struct {
	City string `json:"city"`
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	client := newFakeRedis()
	repo := NewCacheRepository(client, "civic")
	ctx := context.Background()

	var dest cachedLocation
	assert.ErrorIs(t, repo.Get(ctx, "geo:1", &dest), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "geo:1", cachedLocation{City: "Springfield"}, time.Minute))
	assert.Equal(t, time.Minute, client.ttls["civic:geo:1"])

	require.NoError(t, repo.Get(ctx, "geo:1", &dest))
	assert.Equal(t, "Springfield", dest.City)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "")
	var dest cachedLocation
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", dest, time.Second))
}
