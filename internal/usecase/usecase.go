package usecase

import (
	"context"

	"github.com/DRSN-tech/style-catalog/internal/domain"
)

type IngestionUC interface {
	RunIngestion(ctx context.Context) (*IngestionReport, error)
}

type CatalogUC interface {
	RecommendByImageURL(ctx context.Context, req *RecommendByURLReq) (*SimilarItemsRes, error)
	RecommendByImage(ctx context.Context, req *RecommendByImageReq) (*SimilarItemsRes, error)
	SimilarProducts(ctx context.Context, req *SimilarProductsReq) (*SimilarItemsRes, error)
	TagImage(ctx context.Context, req *TagImageReq) (*TagImageRes, error)
	GetItem(ctx context.Context, id string) (*domain.CatalogRecord, error)
}
