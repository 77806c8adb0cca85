package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/DRSN-tech/style-catalog/pkg/similarity"
)

// CatalogUseCase обслуживает запросы поиска похожих товаров и тегирования.
// Ранжирование — полный линейный проход по текущему поколению каталога.
type CatalogUseCase struct {
	catalogRepo CatalogRepository
	snapshots   *SnapshotCache
	loader      ImageLoader
	mlService   MlServiceInfra
	cacheRepo   CacheRepository // nil, если Redis не настроен
	logger      logger.Logger
}

func NewCatalogUC(
	catalogRepo CatalogRepository,
	snapshots *SnapshotCache,
	loader ImageLoader,
	mlService MlServiceInfra,
	cacheRepo CacheRepository,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		catalogRepo: catalogRepo,
		snapshots:   snapshots,
		loader:      loader,
		mlService:   mlService,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// RecommendByImageURL скачивает изображение, векторизует его и ранжирует каталог.
func (c *CatalogUseCase) RecommendByImageURL(ctx context.Context, req *RecommendByURLReq) (*SimilarItemsRes, error) {
	const op = "CatalogUseCase.RecommendByImageURL"

	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := validateImageURL(req.ImageURL); err != nil {
		return nil, e.Wrap(op, err)
	}

	view, err := c.snapshots.get(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	key := cacheKey(view.snapshot.GenerationID, "url", hashOf(req.ImageURL), limit)
	if items, ok := c.getCached(ctx, key); ok {
		return NewSimilarItemsRes(view.snapshot.GenerationID, items), nil
	}

	image, err := c.loader.Fetch(ctx, req.ImageURL)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := c.vectorize(ctx, image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	items := rank(view, query, limit, "")
	c.setCached(key, items)

	return NewSimilarItemsRes(view.snapshot.GenerationID, items), nil
}

// RecommendByImage ранжирует каталог по загруженному изображению.
func (c *CatalogUseCase) RecommendByImage(ctx context.Context, req *RecommendByImageReq) (*SimilarItemsRes, error) {
	const op = "CatalogUseCase.RecommendByImage"

	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	image, err := c.loader.Decode(req.Image.Data)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	view, err := c.snapshots.get(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := c.vectorize(ctx, image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return NewSimilarItemsRes(view.snapshot.GenerationID, rank(view, query, limit, "")), nil
}

// SimilarProducts ищет товары, похожие на товар каталога. Сам товар в выдачу не попадает.
// Возвращает e.ErrNotFound, если товара нет или у него нет эмбеддинга.
func (c *CatalogUseCase) SimilarProducts(ctx context.Context, req *SimilarProductsReq) (*SimilarItemsRes, error) {
	const op = "CatalogUseCase.SimilarProducts"

	if strings.TrimSpace(req.ProductID) == "" {
		return nil, e.Wrap(op, e.ErrProductIDRequired)
	}

	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	view, err := c.snapshots.get(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	source, ok := view.lookup(req.ProductID)
	if !ok || !source.HasEmbedding() {
		return nil, e.Wrap(op, fmt.Errorf("%w: product %s", e.ErrNotFound, req.ProductID))
	}

	key := cacheKey(view.snapshot.GenerationID, "similar", source.ID, limit)
	if items, ok := c.getCached(ctx, key); ok {
		return NewSimilarItemsRes(view.snapshot.GenerationID, items), nil
	}

	items := rank(view, source.Embedding, limit, source.ID)
	c.setCached(key, items)

	return NewSimilarItemsRes(view.snapshot.GenerationID, items), nil
}

// TagImage определяет тип одежды и теги загруженного изображения, ничего не сохраняя.
func (c *CatalogUseCase) TagImage(ctx context.Context, req *TagImageReq) (*TagImageRes, error) {
	const op = "CatalogUseCase.TagImage"

	image, err := c.loader.Decode(req.Image.Data)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := c.vectorize(ctx, image)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	class, err := c.mlService.ClassifyRequest(ctx, NewClassifyReq(vector))
	if err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrClassificationFailed, err))
	}

	garment := domain.NewGarment(class.GarmentType, class.Tags)
	return &TagImageRes{GarmentType: garment.Type, Tags: garment.Tags}, nil
}

// GetItem возвращает запись текущего поколения по id, затем по product_id.
func (c *CatalogUseCase) GetItem(ctx context.Context, id string) (*domain.CatalogRecord, error) {
	const op = "CatalogUseCase.GetItem"

	if strings.TrimSpace(id) == "" {
		return nil, e.Wrap(op, e.ErrProductIDRequired)
	}

	record, err := c.catalogRepo.FindByID(ctx, id)
	if err == nil {
		return record, nil
	}
	if !isNotFound(err) {
		return nil, e.Wrap(op, err)
	}

	record, err = c.catalogRepo.FindByProductID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return record, nil
}

func (c *CatalogUseCase) vectorize(ctx context.Context, image *domain.Image) ([]float32, error) {
	res, err := c.mlService.VectorizeRequest(ctx, NewVectorizeReq(image.Data, image.MimeType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrEmbeddingFailed, err)
	}
	if len(res.Vector) == 0 {
		return nil, e.ErrVectorEmbeddingEmpty
	}

	return res.Vector, nil
}

func (c *CatalogUseCase) getCached(ctx context.Context, key string) ([]SimilarItem, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	items, ok, err := c.cacheRepo.GetRecommendations(ctx, key)
	if err != nil {
		c.logger.Warnf("failed to read recommendations cache %s: %v", key, err)
		return nil, false
	}

	return items, ok
}

// setCached пишет выдачу в кэш в фоне.
func (c *CatalogUseCase) setCached(key string, items []SimilarItem) {
	const op = "CatalogUseCase.setCached"
	if c.cacheRepo == nil {
		return
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		if err := c.cacheRepo.SetRecommendations(bgCtx, key, items); err != nil {
			c.logger.Warnf("Failed to cache recommendations in background: %v", e.Wrap(op, err))
		}
	}()
}

func rank(view *catalogView, query []float32, limit int, excludeID string) []SimilarItem {
	var skip func(*domain.CatalogRecord) bool
	if excludeID != "" {
		skip = func(r *domain.CatalogRecord) bool { return r.ID == excludeID }
	}

	scored := similarity.TopK(query, view.snapshot.Records, limit, func(r *domain.CatalogRecord) []float32 {
		return r.Embedding
	}, skip)

	items := make([]SimilarItem, 0, len(scored))
	for _, s := range scored {
		items = append(items, SimilarItem{Record: s.Item, Score: s.Score})
	}

	return items
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultRecommendationLimit, nil
	case limit < 0 || limit > MaxRecommendationLimit:
		return 0, e.ErrInvalidLimit
	default:
		return limit, nil
	}
}

func validateImageURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return e.ErrImageURLRequired
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return e.ErrInvalidImageURL
	}

	return nil
}

func cacheKey(generation, kind, subject string, limit int) string {
	return fmt.Sprintf("reco:%s:%s:%s:%d", generation, kind, subject, limit)
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func isNotFound(err error) bool {
	return errors.Is(err, e.ErrNotFound)
}
