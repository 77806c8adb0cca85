package converter

import (
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/shopspring/decimal"
)

// CatalogConverter преобразует записи каталога между domain и документами MongoDB.
type CatalogConverter struct{}

func NewCatalogConverter() CatalogConverter {
	return CatalogConverter{}
}

func (CatalogConverter) ToDocument(entity *domain.CatalogRecord) *CatalogItemDocument {
	doc := &CatalogItemDocument{
		ID:             entity.ID,
		GenerationID:   entity.GenerationID,
		Seq:            entity.Seq,
		ProductID:      entity.ProductID,
		Brand:          entity.Brand,
		Name:           entity.Name,
		CurrentPrice:   entity.CurrentPrice.String(),
		Discount:       entity.Discount,
		AvailableSizes: entity.AvailableSizes,
		Colors:         entity.Colors,
		Availability:   entity.Availability,
		URL:            entity.URL,
		ImageURL:       entity.ImageURL,
		ImageKey:       entity.ImageKey,
		Embedding:      entity.Embedding,
		ModelVersion:   entity.ModelVersion,
		GarmentType:    entity.GarmentType,
		Tags:           entity.Tags,
	}
	if entity.OriginalPrice != nil {
		price := entity.OriginalPrice.String()
		doc.OriginalPrice = &price
	}

	return doc
}

func (c CatalogConverter) ToArrDocument(entities []*domain.CatalogRecord) []any {
	docs := make([]any, 0, len(entities))
	for _, entity := range entities {
		docs = append(docs, c.ToDocument(entity))
	}

	return docs
}

// ToEntity восстанавливает запись. Нечитаемая цена становится нулём.
func (CatalogConverter) ToEntity(doc *CatalogItemDocument) *domain.CatalogRecord {
	record := &domain.CatalogRecord{
		ProductListing: domain.ProductListing{
			ProductID:      doc.ProductID,
			Name:           doc.Name,
			CurrentPrice:   parseDecimal(doc.CurrentPrice),
			Discount:       doc.Discount,
			AvailableSizes: doc.AvailableSizes,
			Colors:         doc.Colors,
			Availability:   doc.Availability,
			URL:            doc.URL,
			ImageURL:       doc.ImageURL,
		},
		ID:           doc.ID,
		GenerationID: doc.GenerationID,
		Seq:          doc.Seq,
		Brand:        doc.Brand,
		Embedding:    doc.Embedding,
		ModelVersion: doc.ModelVersion,
		GarmentType:  doc.GarmentType,
		Tags:         doc.Tags,
		ImageKey:     doc.ImageKey,
	}
	if doc.OriginalPrice != nil {
		price := parseDecimal(*doc.OriginalPrice)
		record.OriginalPrice = &price
	}

	return record
}

func (c CatalogConverter) ToArrEntity(docs []*CatalogItemDocument) []*domain.CatalogRecord {
	result := make([]*domain.CatalogRecord, 0, len(docs))
	for _, doc := range docs {
		result = append(result, c.ToEntity(doc))
	}

	return result
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}

	return d
}
