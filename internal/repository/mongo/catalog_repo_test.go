//go:build integration

package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/repository/mongo/converter"
	"github.com/DRSN-tech/style-catalog/pkg/clients"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var testClient *clients.MongoClient

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "27017")

	testClient, err = clients.NewMongoClient(&cfg.MongoCfg{
		URI:            fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database:       "catalog_test",
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to mongo: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testClient.Close()
	_ = container.Terminate(ctx)

	os.Exit(code)
}

func newRepo(t *testing.T) *CatalogRepo {
	t.Helper()
	require.NoError(t, testClient.Database.Drop(context.Background()))

	repo := NewCatalogRepo(testClient.Database, converter.NewCatalogConverter(), logger.NewNopLogger())
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

func generation(productIDs ...string) *domain.CatalogGeneration {
	records := make([]*domain.CatalogRecord, 0, len(productIDs))
	for i, id := range productIDs {
		records = append(records, domain.NewCatalogRecord(
			domain.ProductListing{ProductID: id, CurrentPrice: decimal.RequireFromString("19.99"), ImageURL: "https://img/" + id},
			"vuori",
			domain.NewEmbedding([]float32{1, float32(i)}, "clip-v1"),
			domain.NewGarment("Shorts", []string{"sport"}),
		))
	}

	return domain.NewCatalogGeneration(records)
}

func countGeneration(t *testing.T, generationID string) int64 {
	t.Helper()
	n, err := testClient.Database.Collection(itemsCollection).CountDocuments(context.Background(), bson.M{"generation_id": generationID})
	require.NoError(t, err)
	return n
}

func TestCatalogRepo_EmptyStore(t *testing.T) {
	repo := newRepo(t)

	snapshot, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.GenerationID)
	assert.Empty(t, snapshot.Records)

	_, err = repo.FindByID(context.Background(), "x")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestCatalogRepo_ReplaceAllKeepsPreviousGeneration(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first, second, third := generation("a"), generation("b", "c"), generation("d")
	require.NoError(t, repo.ReplaceAll(ctx, first))
	require.NoError(t, repo.ReplaceAll(ctx, second))
	require.NoError(t, repo.ReplaceAll(ctx, third))

	snapshot, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, third.ID, snapshot.GenerationID)
	require.Len(t, snapshot.Records, 1)
	assert.Equal(t, "d", snapshot.Records[0].ProductID)
	assert.True(t, snapshot.Records[0].CurrentPrice.Equal(decimal.RequireFromString("19.99")))

	assert.Zero(t, countGeneration(t, first.ID))
	assert.Equal(t, int64(2), countGeneration(t, second.ID))
}

func TestCatalogRepo_FailedInsertKeepsCurrent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := generation("a", "b")
	require.NoError(t, repo.ReplaceAll(ctx, first))

	broken := generation("x", "y")
	broken.Records[1].ID = broken.Records[0].ID
	require.Error(t, repo.ReplaceAll(ctx, broken))

	current, err := repo.CurrentGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current)
	assert.Zero(t, countGeneration(t, broken.ID))
}

func TestCatalogRepo_Lookup(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	old := generation("a")
	require.NoError(t, repo.ReplaceAll(ctx, old))
	gen := generation("a", "b")
	require.NoError(t, repo.ReplaceAll(ctx, gen))

	byProduct, err := repo.FindByProductID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, gen.Records[0].ID, byProduct.ID)

	// запись предыдущего поколения недоступна
	_, err = repo.FindByID(ctx, old.Records[0].ID)
	assert.ErrorIs(t, err, e.ErrNotFound)

	byID, err := repo.FindByID(ctx, gen.Records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, byID.Embedding)
}
