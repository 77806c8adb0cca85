package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedData(rows ...domain.FeedRow) *domain.FeedData {
	return &domain.FeedData{Feed: domain.NewFeed("data/nakd_products.csv"), Rows: rows}
}

func TestCatalogBuilder_RowFailureIsIsolated(t *testing.T) {
	loader := &fakeLoader{failURLs: map[string]bool{"https://img/3": true}}
	builder := NewCatalogBuilder(loader, &fakeML{}, nil, 2, logger.NewNopLogger())

	res := builder.Build(context.Background(), feedData(
		row(1, "p1", "https://img/1"),
		row(2, "p2", "https://img/2"),
		row(3, "p3", "https://img/3"),
		row(4, "p4", "https://img/4"),
		row(5, "p5", "https://img/5"),
	))

	require.Len(t, res.Records, 4)
	require.Len(t, res.Failures, 1)

	got := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		got = append(got, r.ProductID)
		assert.Equal(t, "nakd", r.Brand)
		assert.True(t, r.HasEmbedding())
		assert.NotEmpty(t, r.GarmentType)
		assert.NotEmpty(t, r.Tags)
	}
	assert.Equal(t, []string{"p1", "p2", "p4", "p5"}, got)

	failure := res.Failures[0]
	assert.Equal(t, 3, failure.RowIndex)
	assert.Equal(t, "p3", failure.ProductID)
	assert.Equal(t, StageFetch, failure.Stage)
	assert.Equal(t, "nakd_products.csv", failure.Feed)
}

func TestCatalogBuilder_Stages(t *testing.T) {
	ml := &fakeML{
		vectors: map[string][]float32{
			"https://img/unknown": {0, 1},
			"https://img/empty":   {},
		},
		labels:    map[string]string{"[0 1]": domain.UnknownGarmentType},
		failEmbed: map[string]bool{"https://img/broken": true},
	}
	builder := NewCatalogBuilder(&fakeLoader{}, ml, nil, 4, logger.NewNopLogger())

	malformed := row(1, "bad", "")
	malformed.Err = errors.New("current_price: invalid decimal")

	res := builder.Build(context.Background(), feedData(
		malformed,
		row(2, "broken", "https://img/broken"),
		row(3, "empty", "https://img/empty"),
		row(4, "unknown", "https://img/unknown"),
	))

	require.Len(t, res.Failures, 3)
	assert.Equal(t, StageParse, res.Failures[0].Stage)
	assert.Equal(t, StageEmbed, res.Failures[1].Stage)
	assert.Equal(t, StageEmbed, res.Failures[2].Stage)

	require.Len(t, res.Records, 1)
	unknown := res.Records[0]
	assert.Equal(t, domain.UnknownGarmentType, unknown.GarmentType)
	assert.Equal(t, []string{domain.UnknownGarmentTag}, unknown.Tags)
	assert.Equal(t, "clip-v1", unknown.ModelVersion)
}

func TestCatalogBuilder_ClassificationFailure(t *testing.T) {
	ml := &fakeML{classifyErr: errors.New("classifier unavailable")}
	builder := NewCatalogBuilder(&fakeLoader{}, ml, nil, 1, logger.NewNopLogger())

	res := builder.Build(context.Background(), feedData(row(1, "p1", "https://img/1")))

	assert.Empty(t, res.Records)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageClassify, res.Failures[0].Stage)
	assert.Contains(t, res.Failures[0].Reason, e.ErrClassificationFailed.Error())
}

func TestCatalogBuilder_ArchivesImages(t *testing.T) {
	images := &fakeImagesInfra{}
	builder := NewCatalogBuilder(&fakeLoader{}, &fakeML{}, images, 2, logger.NewNopLogger())

	res := builder.Build(context.Background(), feedData(row(1, "p1", "https://img/1"), row(2, "p2", "https://img/2")))

	require.Len(t, res.Records, 2)
	assert.Equal(t, "nakd/p1.jpg", res.Records[0].ImageKey)
	assert.Equal(t, []string{"nakd/p1.jpg", "nakd/p2.jpg"}, res.ArchivedKeys)
}

func TestCatalogBuilder_ArchiveFailureKeepsRow(t *testing.T) {
	images := &fakeImagesInfra{archiveErr: errors.New("bucket unavailable")}
	builder := NewCatalogBuilder(&fakeLoader{}, &fakeML{}, images, 2, logger.NewNopLogger())

	res := builder.Build(context.Background(), feedData(row(1, "p1", "https://img/1"), row(2, "p2", "https://img/2")))

	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.ArchivedKeys)
	assert.Equal(t, []int{1, 2}, res.RowIndexes)
	for _, r := range res.Records {
		assert.Empty(t, r.ImageKey)
		assert.True(t, r.HasEmbedding())
	}
}

func TestCatalogBuilder_EmptyFeed(t *testing.T) {
	builder := NewCatalogBuilder(&fakeLoader{}, &fakeML{}, nil, 2, logger.NewNopLogger())

	res := builder.Build(context.Background(), feedData())

	assert.Empty(t, res.Records)
	assert.Empty(t, res.Failures)
}
