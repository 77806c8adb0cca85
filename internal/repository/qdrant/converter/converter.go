package converter

import (
	"fmt"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"github.com/shopspring/decimal"
)

// CatalogConverter преобразует записи каталога в точки Qdrant и обратно.
// Всё, кроме вектора, лежит в payload.
type CatalogConverter struct{}

func NewCatalogConverter() CatalogConverter {
	return CatalogConverter{}
}

func (CatalogConverter) ToPoint(record *domain.CatalogRecord) (*qdrant.PointStruct, error) {
	payload := map[string]any{
		"generation_id":   record.GenerationID,
		"seq":             record.Seq,
		"product_id":      record.ProductID,
		"brand":           record.Brand,
		"name":            record.Name,
		"current_price":   record.CurrentPrice.String(),
		"discount":        record.Discount,
		"available_sizes": toList(record.AvailableSizes),
		"colors":          toList(record.Colors),
		"availability":    record.Availability,
		"url":             record.URL,
		"image_url":       record.ImageURL,
		"image_key":       record.ImageKey,
		"model_version":   record.ModelVersion,
		"garment_type":    record.GarmentType,
		"tags":            toList(record.Tags),
	}
	if record.OriginalPrice != nil {
		payload["original_price"] = record.OriginalPrice.String()
	}

	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return nil, fmt.Errorf("payload of %s: %w", record.ProductID, err)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(record.ID),
		Vectors: qdrant.NewVectors(record.Embedding...),
		Payload: values,
	}, nil
}

func (CatalogConverter) ToEntity(point *qdrant.RetrievedPoint) *domain.CatalogRecord {
	p := point.GetPayload()

	record := &domain.CatalogRecord{
		ProductListing: domain.ProductListing{
			ProductID:      str(p, "product_id"),
			Name:           str(p, "name"),
			CurrentPrice:   parseDecimal(str(p, "current_price")),
			Discount:       str(p, "discount"),
			AvailableSizes: list(p, "available_sizes"),
			Colors:         list(p, "colors"),
			Availability:   str(p, "availability"),
			URL:            str(p, "url"),
			ImageURL:       str(p, "image_url"),
		},
		ID:           point.GetId().GetUuid(),
		GenerationID: str(p, "generation_id"),
		Seq:          int(p["seq"].GetIntegerValue()),
		Brand:        str(p, "brand"),
		Embedding:    vectorOf(point.GetVectors().GetVector()),
		ModelVersion: str(p, "model_version"),
		GarmentType:  str(p, "garment_type"),
		Tags:         list(p, "tags"),
		ImageKey:     str(p, "image_key"),
	}
	if raw, ok := p["original_price"]; ok {
		price := parseDecimal(raw.GetStringValue())
		record.OriginalPrice = &price
	}

	return record
}

// vectorOf читает dense-вектор, старые серверы заполняют только Data.
func vectorOf(v *qdrant.VectorOutput) []float32 {
	if dense := v.GetDense().GetData(); len(dense) > 0 {
		return dense
	}

	return v.GetData()
}

func toList(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}

	return out
}

func str(payload map[string]*qdrant.Value, key string) string {
	return payload[key].GetStringValue()
}

func list(payload map[string]*qdrant.Value, key string) []string {
	values := payload[key].GetListValue().GetValues()
	if len(values) == 0 {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}

	return out
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}

	return d
}
