package usecase

import (
	"context"

	"github.com/DRSN-tech/style-catalog/internal/domain"
)

// ImageLoader получает и проверяет изображения.
type ImageLoader interface {
	// Fetch скачивает изображение по URL. Ошибки оборачивают e.ErrFetchFailed.
	Fetch(ctx context.Context, url string) (*domain.Image, error)
	// Decode проверяет загруженные байты. Ошибки оборачивают e.ErrMalformedImage.
	Decode(data []byte) (*domain.Image, error)
}

// MlServiceInfra — внешний ML-сервис: генератор эмбеддингов и классификатор одежды.
type MlServiceInfra interface {
	VectorizeRequest(ctx context.Context, req *VectorizeReq) (*VectorizeRes, error)
	ClassifyRequest(ctx context.Context, req *ClassifyReq) (*ClassifyRes, error)
}

// FeedReader читает фид вендора целиком.
type FeedReader interface {
	Read(ctx context.Context, feed domain.Feed) (*domain.FeedData, error)
}

type ImagesInfra interface {
	ArchiveImage(ctx context.Context, req *ArchiveImageReq) (string, error)
	CleanupImages(keys []string)
}

type EventProducer interface {
	PublishGenerationCommitted(ctx context.Context, event *GenerationCommittedEvent) error
}
