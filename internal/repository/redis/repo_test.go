//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/repository/redis/converter"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/clients"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testClient *clients.RedisClient

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "6379")

	testClient = clients.NewRedisClient(&cfg.RedisCfg{
		Addr:    fmt.Sprintf("%s:%s", host, port.Port()),
		Timeout: time.Second,
	})

	code := m.Run()

	_ = testClient.Client.Close()
	_ = container.Terminate(ctx)

	os.Exit(code)
}

func clearRedis(t *testing.T) {
	t.Helper()
	require.NoError(t, testClient.Client.FlushAll(context.Background()).Err())
}

func TestCacheRepo_RoundTrip(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	repo := NewCacheRepo(testClient, converter.NewRecommendationConverter(), &cfg.RedisCfg{CacheTTL: time.Minute}, logger.NewNopLogger())

	_, ok, err := repo.GetRecommendations(ctx, "reco:g1:similar:x:5")
	require.NoError(t, err)
	assert.False(t, ok)

	record := domain.NewCatalogRecord(
		domain.ProductListing{ProductID: "p1", CurrentPrice: decimal.RequireFromString("12.5"), ImageURL: "https://img/p1"},
		"nakd",
		domain.NewEmbedding([]float32{1, 0}, "clip-v1"),
		domain.NewGarment("Skirt", []string{"mini"}),
	)
	require.NoError(t, repo.SetRecommendations(ctx, "reco:g1:similar:x:5", []usecase.SimilarItem{{Record: record, Score: 0.87}}))

	items, ok, err := repo.GetRecommendations(ctx, "reco:g1:similar:x:5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, record.ID, items[0].Record.ID)
	assert.Equal(t, 0.87, items[0].Score)
	assert.True(t, items[0].Record.CurrentPrice.Equal(record.CurrentPrice))

	ttl, err := testClient.Client.TTL(ctx, "reco:g1:similar:x:5").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCacheRepo_CorruptedEntryIsMiss(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	repo := NewCacheRepo(testClient, converter.NewRecommendationConverter(), &cfg.RedisCfg{CacheTTL: time.Minute}, logger.NewNopLogger())

	require.NoError(t, testClient.Client.Set(ctx, "reco:bad", "{not json", time.Minute).Err())

	_, ok, err := repo.GetRecommendations(ctx, "reco:bad")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := testClient.Client.Exists(ctx, "reco:bad").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestLockRepo(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	locks := NewLockRepo(testClient, time.Minute)

	release, err := locks.Acquire(ctx, "catalog:ingestion")
	require.NoError(t, err)

	_, err = locks.Acquire(ctx, "catalog:ingestion")
	assert.ErrorIs(t, err, e.ErrIngestionInProgress)

	require.NoError(t, release(ctx))

	again, err := locks.Acquire(ctx, "catalog:ingestion")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLockRepo_ReleaseDoesNotStealForeignLock(t *testing.T) {
	clearRedis(t)
	ctx := context.Background()
	locks := NewLockRepo(testClient, time.Minute)

	release, err := locks.Acquire(ctx, "catalog:ingestion")
	require.NoError(t, err)

	// блокировка истекла и перехвачена другим экземпляром
	require.NoError(t, testClient.Client.Set(ctx, lockKey("catalog:ingestion"), "other-owner", time.Minute).Err())
	require.NoError(t, release(ctx))

	owner, err := testClient.Client.Get(ctx, lockKey("catalog:ingestion")).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-owner", owner)
}
