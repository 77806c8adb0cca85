package converter

import (
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// CatalogConverter преобразует записи каталога между domain и моделью PostgreSQL.
type CatalogConverter struct{}

func NewCatalogConverter() CatalogConverter {
	return CatalogConverter{}
}

func (CatalogConverter) ToModel(entity *domain.CatalogRecord) *CatalogItemModel {
	model := &CatalogItemModel{
		ID:             entity.ID,
		GenerationID:   entity.GenerationID,
		Seq:            int32(entity.Seq),
		ProductID:      entity.ProductID,
		Brand:          entity.Brand,
		Name:           entity.Name,
		CurrentPrice:   toNumeric(entity.CurrentPrice),
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
		model.OriginalPrice = toNumeric(*entity.OriginalPrice)
	}

	return model
}

func (CatalogConverter) ToEntity(model *CatalogItemModel) *domain.CatalogRecord {
	record := &domain.CatalogRecord{
		ProductListing: domain.ProductListing{
			ProductID:      model.ProductID,
			Name:           model.Name,
			CurrentPrice:   fromNumeric(model.CurrentPrice),
			Discount:       model.Discount,
			AvailableSizes: model.AvailableSizes,
			Colors:         model.Colors,
			Availability:   model.Availability,
			URL:            model.URL,
			ImageURL:       model.ImageURL,
		},
		ID:           model.ID,
		GenerationID: model.GenerationID,
		Seq:          int(model.Seq),
		Brand:        model.Brand,
		Embedding:    model.Embedding,
		ModelVersion: model.ModelVersion,
		GarmentType:  model.GarmentType,
		Tags:         model.Tags,
		ImageKey:     model.ImageKey,
	}
	if model.OriginalPrice.Valid {
		price := fromNumeric(model.OriginalPrice)
		record.OriginalPrice = &price
	}

	return record
}

func (c CatalogConverter) ToArrEntity(models []*CatalogItemModel) []*domain.CatalogRecord {
	result := make([]*domain.CatalogRecord, 0, len(models))
	for _, m := range models {
		result = append(result, c.ToEntity(m))
	}

	return result
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}
