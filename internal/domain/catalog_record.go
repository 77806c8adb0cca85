package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductListing — описательная часть строки фида вендора.
type ProductListing struct {
	ProductID      string
	Name           string
	CurrentPrice   decimal.Decimal
	OriginalPrice  *decimal.Decimal
	Discount       string
	AvailableSizes []string
	Colors         []string
	Availability   string
	URL            string // страница товара
	ImageURL       string // исходное изображение
}

// CatalogRecord описывает одну позицию каталога.
// Запись с эмбеддингом всегда несёт GarmentType и Tags: они вычисляются вместе.
// После создания запись не изменяется.
type CatalogRecord struct {
	ProductListing

	ID           string // uuid, присваивается при ингестии
	GenerationID string
	Seq          int // порядок вставки внутри поколения
	Brand        string

	Embedding    []float32
	ModelVersion string
	GarmentType  string
	Tags         []string

	ImageKey string // ключ архивной копии изображения, если архивирование включено
}

// NewCatalogRecord собирает запись из строки фида, эмбеддинга и классификации.
func NewCatalogRecord(listing ProductListing, brand string, embedding Embedding, garment Garment) *CatalogRecord {
	return &CatalogRecord{
		ProductListing: listing,
		ID:             uuid.NewString(),
		Brand:          brand,
		Embedding:      embedding.Vector,
		ModelVersion:   embedding.ModelVersion,
		GarmentType:    garment.Type,
		Tags:           garment.Tags,
	}
}

// HasEmbedding сообщает, участвует ли запись в ранжировании.
func (r *CatalogRecord) HasEmbedding() bool {
	return r != nil && len(r.Embedding) > 0
}

// WithImageKey возвращает копию записи с ключом архивного изображения.
func (r *CatalogRecord) WithImageKey(key string) *CatalogRecord {
	cp := *r
	cp.ImageKey = key
	return &cp
}
