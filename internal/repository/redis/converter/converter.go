package converter

import (
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/shopspring/decimal"
)

// RecommendationConverter преобразует выдачу между usecase и моделью Redis.
type RecommendationConverter struct{}

func NewRecommendationConverter() RecommendationConverter {
	return RecommendationConverter{}
}

func (RecommendationConverter) ToRedisModel(item usecase.SimilarItem) RecommendationRedisModel {
	r := item.Record
	model := RecommendationRedisModel{
		RecordID:       r.ID,
		GenerationID:   r.GenerationID,
		Seq:            r.Seq,
		ProductID:      r.ProductID,
		Brand:          r.Brand,
		Name:           r.Name,
		CurrentPrice:   r.CurrentPrice.String(),
		Discount:       r.Discount,
		AvailableSizes: r.AvailableSizes,
		Colors:         r.Colors,
		Availability:   r.Availability,
		URL:            r.URL,
		ImageURL:       r.ImageURL,
		ImageKey:       r.ImageKey,
		ModelVersion:   r.ModelVersion,
		GarmentType:    r.GarmentType,
		Tags:           r.Tags,
		Score:          item.Score,
	}
	if r.OriginalPrice != nil {
		price := r.OriginalPrice.String()
		model.OriginalPrice = &price
	}

	return model
}

func (RecommendationConverter) ToUseCase(model RecommendationRedisModel) usecase.SimilarItem {
	record := &domain.CatalogRecord{
		ProductListing: domain.ProductListing{
			ProductID:      model.ProductID,
			Name:           model.Name,
			CurrentPrice:   parseDecimal(model.CurrentPrice),
			Discount:       model.Discount,
			AvailableSizes: model.AvailableSizes,
			Colors:         model.Colors,
			Availability:   model.Availability,
			URL:            model.URL,
			ImageURL:       model.ImageURL,
		},
		ID:           model.RecordID,
		GenerationID: model.GenerationID,
		Seq:          model.Seq,
		Brand:        model.Brand,
		ModelVersion: model.ModelVersion,
		GarmentType:  model.GarmentType,
		Tags:         model.Tags,
		ImageKey:     model.ImageKey,
	}
	if model.OriginalPrice != nil {
		price := parseDecimal(*model.OriginalPrice)
		record.OriginalPrice = &price
	}

	return usecase.SimilarItem{Record: record, Score: model.Score}
}

func (c RecommendationConverter) ToArrRedisModel(items []usecase.SimilarItem) []RecommendationRedisModel {
	result := make([]RecommendationRedisModel, 0, len(items))
	for _, item := range items {
		result = append(result, c.ToRedisModel(item))
	}

	return result
}

func (c RecommendationConverter) ToArrUseCase(models []RecommendationRedisModel) []usecase.SimilarItem {
	result := make([]usecase.SimilarItem, 0, len(models))
	for _, model := range models {
		result = append(result, c.ToUseCase(model))
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
