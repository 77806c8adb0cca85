package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
)

// CatalogBuilder превращает строки одного фида в записи каталога:
// изображение -> эмбеддинг -> классификация -> запись.
// Строки обрабатываются параллельно пулом из workers горутин.
type CatalogBuilder struct {
	loader      ImageLoader
	mlService   MlServiceInfra
	imagesInfra ImagesInfra // nil, если архивирование выключено
	workers     int
	logger      logger.Logger
}

func NewCatalogBuilder(loader ImageLoader, mlService MlServiceInfra, imagesInfra ImagesInfra, workers int, logger logger.Logger) *CatalogBuilder {
	if workers <= 0 {
		workers = 1
	}

	return &CatalogBuilder{
		loader:      loader,
		mlService:   mlService,
		imagesInfra: imagesInfra,
		workers:     workers,
		logger:      logger,
	}
}

type rowOutcome struct {
	record  *domain.CatalogRecord
	failure *RowFailure
}

// Build обрабатывает строки фида. Ошибка отдельной строки не прерывает обработку:
// строка попадает в Failures, записи для неё нет. Уцелевшие записи сохраняют порядок строк.
func (b *CatalogBuilder) Build(ctx context.Context, data *domain.FeedData) *BuildResult {
	brand := data.Feed.Brand()
	outcomes := make([]rowOutcome, len(data.Rows))
	sem := make(chan struct{}, b.workers)

	var wg sync.WaitGroup
	for i, row := range data.Rows {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[i] = b.processRow(ctx, data.Feed.Name, brand, row)
		}()
	}
	wg.Wait()

	res := &BuildResult{
		Records:    make([]*domain.CatalogRecord, 0, len(data.Rows)),
		RowIndexes: make([]int, 0, len(data.Rows)),
		Failures:   make([]RowFailure, 0),
	}
	for i, out := range outcomes {
		if out.failure != nil {
			b.logger.Warnf("feed %s row %d (%s) skipped at %s: %s",
				out.failure.Feed, out.failure.RowIndex, out.failure.ProductID, out.failure.Stage, out.failure.Reason)
			res.Failures = append(res.Failures, *out.failure)
			continue
		}

		res.Records = append(res.Records, out.record)
		res.RowIndexes = append(res.RowIndexes, data.Rows[i].Index)
		if out.record.ImageKey != "" {
			res.ArchivedKeys = append(res.ArchivedKeys, out.record.ImageKey)
		}
	}

	return res
}

func (b *CatalogBuilder) processRow(ctx context.Context, feedName, brand string, row domain.FeedRow) rowOutcome {
	fail := func(stage string, err error) rowOutcome {
		f := NewRowFailure(feedName, row, stage, err)
		return rowOutcome{failure: &f}
	}

	if row.Err != nil {
		return fail(StageParse, row.Err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageFetch, err)
	}

	image, err := b.loader.Fetch(ctx, row.Listing.ImageURL)
	if err != nil {
		return fail(StageFetch, err)
	}

	vector, err := b.mlService.VectorizeRequest(ctx, NewVectorizeReq(image.Data, image.MimeType))
	if err != nil {
		return fail(StageEmbed, fmt.Errorf("%w: %v", e.ErrEmbeddingFailed, err))
	}
	if len(vector.Vector) == 0 {
		return fail(StageEmbed, e.ErrVectorEmbeddingEmpty)
	}

	class, err := b.mlService.ClassifyRequest(ctx, NewClassifyReq(vector.Vector))
	if err != nil {
		return fail(StageClassify, fmt.Errorf("%w: %v", e.ErrClassificationFailed, err))
	}

	record := domain.NewCatalogRecord(
		row.Listing,
		brand,
		domain.NewEmbedding(vector.Vector, vector.ModelVersion),
		domain.NewGarment(class.GarmentType, class.Tags),
	)

	return rowOutcome{record: b.archive(ctx, brand, record, image)}
}

// archive сохраняет исходное изображение. Ошибка архивирования не отбрасывает строку.
func (b *CatalogBuilder) archive(ctx context.Context, brand string, record *domain.CatalogRecord, image *domain.Image) *domain.CatalogRecord {
	if b.imagesInfra == nil {
		return record
	}

	key, err := b.imagesInfra.ArchiveImage(ctx, NewArchiveImageReq(brand, record.ProductID, image))
	if err != nil {
		b.logger.Warnf("failed to archive image for %s/%s: %v", brand, record.ProductID, err)
		return record
	}

	return record.WithImageKey(key)
}
