package converter

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// CatalogItemModel представляет запись таблицы catalog_records в PostgreSQL.
type CatalogItemModel struct {
	ID             string         `db:"id"`
	GenerationID   string         `db:"generation_id"`
	Seq            int32          `db:"seq"`
	ProductID      string         `db:"product_id"`
	Brand          string         `db:"brand"`
	Name           string         `db:"name"`
	CurrentPrice   pgtype.Numeric `db:"current_price"`
	OriginalPrice  pgtype.Numeric `db:"original_price"`
	Discount       string         `db:"discount"`
	AvailableSizes []string       `db:"available_sizes"`
	Colors         []string       `db:"colors"`
	Availability   string         `db:"availability"`
	URL            string         `db:"url"`
	ImageURL       string         `db:"image_url"`
	ImageKey       string         `db:"image_key"`
	Embedding      []float32      `db:"embedding"`
	ModelVersion   string         `db:"model_version"`
	GarmentType    string         `db:"garment_type"`
	Tags           []string       `db:"tags"`
}

// CatalogGenerationModel представляет запись таблицы catalog_generations.
type CatalogGenerationModel struct {
	ID        string    `db:"id"`
	IsCurrent bool      `db:"is_current"`
	ItemCount int32     `db:"item_count"`
	CreatedAt time.Time `db:"created_at"`
}

// CatalogItemColumns — порядок колонок для COPY и SELECT.
var CatalogItemColumns = []string{
	"id", "generation_id", "seq", "product_id", "brand", "name",
	"current_price", "original_price", "discount", "available_sizes", "colors",
	"availability", "url", "image_url", "image_key", "embedding",
	"model_version", "garment_type", "tags",
}

// Values возвращает значения в порядке CatalogItemColumns.
func (m *CatalogItemModel) Values() []any {
	return []any{
		m.ID, m.GenerationID, m.Seq, m.ProductID, m.Brand, m.Name,
		m.CurrentPrice, m.OriginalPrice, m.Discount, m.AvailableSizes, m.Colors,
		m.Availability, m.URL, m.ImageURL, m.ImageKey, m.Embedding,
		m.ModelVersion, m.GarmentType, m.Tags,
	}
}

// ScanTargets возвращает указатели на поля в порядке CatalogItemColumns.
func (m *CatalogItemModel) ScanTargets() []any {
	return []any{
		&m.ID, &m.GenerationID, &m.Seq, &m.ProductID, &m.Brand, &m.Name,
		&m.CurrentPrice, &m.OriginalPrice, &m.Discount, &m.AvailableSizes, &m.Colors,
		&m.Availability, &m.URL, &m.ImageURL, &m.ImageKey, &m.Embedding,
		&m.ModelVersion, &m.GarmentType, &m.Tags,
	}
}
