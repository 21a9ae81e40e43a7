//go:build integration
// +build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get endpoint: %v", err)
	}

	opts, err := ParseRedisURL(endpoint)
	require.NoError(t, err)
	client := redis.NewClient(opts)

	cleanup := func() {
		_ = client.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
	return client, cleanup
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	backend := NewRedisBackend(client)
	require.NoError(t, backend.Ping(ctx))

	_, ok, err := backend.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), time.Minute))
	data, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), data)

	ttl, err := client.TTL(ctx, "k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, backend.Invalidate(ctx, "k"))
	_, ok, err = backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFallbackBackend_RedisDown(t *testing.T) {
	client, cleanup := setupTestRedis(t)

	ctx := context.Background()
	backend := NewFallbackBackend(NewRedisBackend(client), NewMemoryBackend(0))

	cleanup()

	require.NoError(t, backend.Set(ctx, "k", []byte("v"), time.Minute))
	data, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), data)
}
