package usecase

import (
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
)

// CATALOG USECASE

const (
	DefaultRecommendationLimit = 5
	MaxRecommendationLimit     = 50
)

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type из multipart (image/jpeg)
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// RecommendByURLReq — поиск похожих товаров по изображению из URL.
type RecommendByURLReq struct {
	ImageURL string
	Limit    int
}

// RecommendByImageReq — поиск похожих товаров по загруженному изображению.
type RecommendByImageReq struct {
	Image ProductImage
	Limit int
}

// SimilarProductsReq — поиск товаров, похожих на товар каталога.
type SimilarProductsReq struct {
	ProductID string
	Limit     int
}

// SimilarItem — позиция выдачи: запись каталога и её близость к запросу.
type SimilarItem struct {
	Record *domain.CatalogRecord
	Score  float64
}

type SimilarItemsRes struct {
	GenerationID string
	Items        []SimilarItem
}

type TagImageReq struct {
	Image ProductImage
}

type TagImageRes struct {
	GarmentType string
	Tags        []string
}

// INGESTION USECASE

// Этапы обработки строки фида, на которых строка может быть отброшена.
const (
	StageParse     = "parse"
	StageFetch     = "fetch"
	StageEmbed     = "embed"
	StageClassify  = "classify"
	StageDuplicate = "duplicate"
)

// RowFailure — отброшенная строка фида.
type RowFailure struct {
	Feed      string
	RowIndex  int
	ProductID string
	Stage     string
	Reason    string
}

// FeedFailure — фид, который не удалось прочитать.
type FeedFailure struct {
	Feed   string
	Reason string
}

// FeedCount — итог по одному фиду.
type FeedCount struct {
	Feed     string
	Brand    string
	Rows     int
	Records  int
	Failures int
}

// BuildResult — результат обработки одного фида. Records сохраняют порядок строк.
type BuildResult struct {
	Records      []*domain.CatalogRecord
	RowIndexes   []int // номер строки фида для каждой записи Records
	Failures     []RowFailure
	ArchivedKeys []string
}

// IngestionReport — итог прогона ингестии.
type IngestionReport struct {
	GenerationID   string
	ItemsProcessed int
	PerFeedCounts  []FeedCount
	RowFailures    []RowFailure
	FeedFailures   []FeedFailure
	Committed      bool
	StartedAt      time.Time
	Duration       time.Duration
}

// Message — человекочитаемое резюме прогона.
func (r *IngestionReport) Message() string {
	if !r.Committed {
		return "Ingestion completed with no items; existing catalog kept"
	}
	return "Catalog replaced successfully"
}

// INFRASTUCTURE

// VectorizeReq — запрос на векторизацию одного изображения.
type VectorizeReq struct {
	Data     []byte
	MimeType string
}

// VectorizeRes — результат векторизации одного изображения.
type VectorizeRes struct {
	Vector       []float32
	ModelVersion string
}

type ClassifyReq struct {
	Vector []float32
}

// ClassifyRes — сырой ответ классификатора, до нормализации.
type ClassifyRes struct {
	GarmentType string
	Tags        []string
}

// ArchiveImageReq — запрос на сохранение исходного изображения в MinIO.
type ArchiveImageReq struct {
	Brand     string
	ProductID string
	Image     *domain.Image
}

// GenerationCommittedEvent — событие о зафиксированном поколении каталога.
type GenerationCommittedEvent struct {
	EventID        string
	GenerationID   string
	ItemsProcessed int
	Feeds          []string
	CommittedAt    time.Time
}

// MAPPERS

func NewProductImage(data []byte, mimeType string, size int64, name string) *ProductImage {
	return &ProductImage{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewVectorizeReq(data []byte, mimeType string) *VectorizeReq {
	return &VectorizeReq{
		Data:     data,
		MimeType: mimeType,
	}
}

func NewVectorizeRes(vector []float32, modelVersion string) *VectorizeRes {
	return &VectorizeRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewClassifyReq(vector []float32) *ClassifyReq {
	return &ClassifyReq{Vector: vector}
}

func NewClassifyRes(garmentType string, tags []string) *ClassifyRes {
	return &ClassifyRes{
		GarmentType: garmentType,
		Tags:        tags,
	}
}

func NewArchiveImageReq(brand, productID string, image *domain.Image) *ArchiveImageReq {
	return &ArchiveImageReq{
		Brand:     brand,
		ProductID: productID,
		Image:     image,
	}
}

func NewRowFailure(feed string, row domain.FeedRow, stage string, err error) RowFailure {
	return RowFailure{
		Feed:      feed,
		RowIndex:  row.Index,
		ProductID: row.Listing.ProductID,
		Stage:     stage,
		Reason:    err.Error(),
	}
}

func NewSimilarItemsRes(generationID string, items []SimilarItem) *SimilarItemsRes {
	return &SimilarItemsRes{
		GenerationID: generationID,
		Items:        items,
	}
}
