package usecase

import (
	"context"

	"github.com/DRSN-tech/style-catalog/internal/domain"
)

// CatalogRepository — хранилище каталога. Держит ровно одно текущее поколение.
// Ошибки драйвера оборачивают e.ErrStoreUnavailable, отсутствие записи — e.ErrNotFound.
type CatalogRepository interface {
	// FindAll возвращает текущее поколение в порядке вставки.
	FindAll(ctx context.Context) (*domain.CatalogSnapshot, error)
	FindByID(ctx context.Context, id string) (*domain.CatalogRecord, error)
	FindByProductID(ctx context.Context, productID string) (*domain.CatalogRecord, error)
	// ReplaceAll атомарно заменяет текущее поколение: читатели видят либо старое, либо новое целиком.
	ReplaceAll(ctx context.Context, gen *domain.CatalogGeneration) error
	// CurrentGeneration возвращает идентификатор текущего поколения или пустую строку.
	CurrentGeneration(ctx context.Context) (string, error)
}

type CacheRepository interface {
	GetRecommendations(ctx context.Context, key string) ([]SimilarItem, bool, error)
	SetRecommendations(ctx context.Context, key string, items []SimilarItem) error
}

// LockRepository — распределённая блокировка прогона ингестии.
type LockRepository interface {
	// Acquire возвращает e.ErrIngestionInProgress, если блокировка занята.
	Acquire(ctx context.Context, name string) (release func(ctx context.Context) error, err error)
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.StoredImage, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}
