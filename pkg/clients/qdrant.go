package clients

import (
	"context"
	"fmt"

	config "github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

type QdrantClient struct {
	Client *qdrant.Client
	cfg    *config.QdrantCfg
}

func NewQdrantClient(cfg *config.QdrantCfg) (*QdrantClient, error) {
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.ApiKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &QdrantClient{
		Client: qdrantClient,
		cfg:    cfg,
	}, nil
}

func (q *QdrantClient) Close() error {
	return q.Client.Close()
}

// EnsureCollection создаёт коллекцию с Dot-метрикой, если её ещё нет.
// Векторы каталога не нормализуются сервером, косинус считается в приложении.
func EnsureCollection(ctx context.Context, client *qdrant.Client, name string, vectorSize uint64) error {
	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		if err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     vectorSize,
				Distance: qdrant.Distance_Dot,
			}),
		}); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
	}

	return nil
}
