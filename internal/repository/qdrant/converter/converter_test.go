package converter

import (
	"testing"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogConverter_PointPayload(t *testing.T) {
	conv := NewCatalogConverter()
	record := domain.NewCatalogRecord(
		domain.ProductListing{
			ProductID:      "g-1",
			CurrentPrice:   decimal.RequireFromString("35.00"),
			AvailableSizes: []string{"XS", "S"},
			ImageURL:       "https://img/g-1",
		},
		"gymshark",
		domain.NewEmbedding([]float32{0.5, 0.5}, "clip-v1"),
		domain.NewGarment("Leggings", []string{"gym"}),
	)
	record.Seq = 3

	point, err := conv.ToPoint(record)
	require.NoError(t, err)

	retrieved := &qdrant.RetrievedPoint{
		Id:      point.Id,
		Payload: point.Payload,
		Vectors: &qdrant.VectorsOutput{VectorsOptions: &qdrant.VectorsOutput_Vector{
			Vector: &qdrant.VectorOutput{Data: []float32{0.5, 0.5}},
		}},
	}

	back := conv.ToEntity(retrieved)
	assert.Equal(t, record.ID, back.ID)
	assert.Equal(t, 3, back.Seq)
	assert.Equal(t, "gymshark", back.Brand)
	assert.Equal(t, []string{"XS", "S"}, back.AvailableSizes)
	assert.Equal(t, []string{"gym"}, back.Tags)
	assert.Nil(t, back.OriginalPrice)
	assert.True(t, back.CurrentPrice.Equal(record.CurrentPrice))
	assert.Equal(t, []float32{0.5, 0.5}, back.Embedding)
}

func TestCatalogConverter_InvalidUTF8(t *testing.T) {
	record := &domain.CatalogRecord{ID: "00000000-0000-0000-0000-000000000001"}
	record.Name = string([]byte{0xff, 0xfe})

	_, err := NewCatalogConverter().ToPoint(record)
	assert.Error(t, err)
}
