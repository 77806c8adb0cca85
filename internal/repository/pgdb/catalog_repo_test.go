//go:build integration

package pgdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/DRSN-tech/style-catalog/pkg/postgres"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *postgres.PgDatabase

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catalog"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, _ := pgContainer.Host(ctx)
	port, _ := pgContainer.MappedPort(ctx, "5432/tcp")

	testDB, err = postgres.Connect(&cfg.PGDBCfg{
		Host:     host,
		Port:     port.Port(),
		User:     "test",
		Password: "test",
		DBName:   "catalog",
		SSLMode:  "disable",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to postgres: %v\n", err)
		os.Exit(1)
	}

	if err := testDB.MigrateFrom(logger.NewNopLogger(), "file://../../../db/migrations"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	_ = pgContainer.Terminate(ctx)

	os.Exit(code)
}

func newRepo(t *testing.T) *CatalogRepo {
	t.Helper()
	_, err := testDB.Pool.Exec(context.Background(), `TRUNCATE catalog_generations CASCADE`)
	require.NoError(t, err)

	return NewCatalogRepo(testDB.Pool, converter.NewCatalogConverter(), logger.NewNopLogger())
}

func generation(productIDs ...string) *domain.CatalogGeneration {
	records := make([]*domain.CatalogRecord, 0, len(productIDs))
	for i, id := range productIDs {
		original := decimal.RequireFromString("99.90")
		records = append(records, domain.NewCatalogRecord(
			domain.ProductListing{
				ProductID:      id,
				Name:           "item " + id,
				CurrentPrice:   decimal.RequireFromString("49.95"),
				OriginalPrice:  &original,
				AvailableSizes: []string{"S", "M"},
				ImageURL:       "https://img/" + id,
			},
			"nakd",
			domain.NewEmbedding([]float32{float32(i), 1}, "clip-v1"),
			domain.NewGarment("Dress", []string{"summer"}),
		))
	}

	return domain.NewCatalogGeneration(records)
}

func TestCatalogRepo_EmptyStore(t *testing.T) {
	repo := newRepo(t)

	gen, err := repo.CurrentGeneration(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gen)

	snapshot, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Records)
}

func TestCatalogRepo_ReplaceAll(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := generation("a", "b")
	require.NoError(t, repo.ReplaceAll(ctx, first))

	second := generation("c", "d", "e")
	require.NoError(t, repo.ReplaceAll(ctx, second))

	current, err := repo.CurrentGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current)

	snapshot, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 3)
	assert.Equal(t, second.ID, snapshot.GenerationID)
	for i, r := range snapshot.Records {
		assert.Equal(t, i, r.Seq)
		assert.Equal(t, second.Records[i].ProductID, r.ProductID)
	}
	assert.True(t, snapshot.Records[0].CurrentPrice.Equal(decimal.RequireFromString("49.95")))
	assert.Equal(t, []string{"S", "M"}, snapshot.Records[0].AvailableSizes)

	var generations int
	require.NoError(t, testDB.Pool.QueryRow(ctx, `SELECT count(*) FROM catalog_generations`).Scan(&generations))
	assert.Equal(t, 1, generations)
}

func TestCatalogRepo_FailedSwapKeepsPrevious(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first := generation("a")
	require.NoError(t, repo.ReplaceAll(ctx, first))

	// повтор id записи нарушает первичный ключ внутри COPY
	broken := generation("x", "y")
	broken.Records[1].ID = broken.Records[0].ID
	require.Error(t, repo.ReplaceAll(ctx, broken))

	current, err := repo.CurrentGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, current)

	snapshot, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 1)
	assert.Equal(t, "a", snapshot.Records[0].ProductID)
}

func TestCatalogRepo_Lookup(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	gen := generation("a", "b")
	require.NoError(t, repo.ReplaceAll(ctx, gen))

	byID, err := repo.FindByID(ctx, gen.Records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b", byID.ProductID)

	byProduct, err := repo.FindByProductID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, gen.Records[0].ID, byProduct.ID)
	assert.Equal(t, []float32{0, 1}, byProduct.Embedding)

	_, err = repo.FindByProductID(ctx, "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
}
