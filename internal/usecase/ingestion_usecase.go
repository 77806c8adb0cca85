package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/google/uuid"
)

const ingestionLockName = "catalog:ingestion"

// IngestionUseCase обходит фиды, собирает поколение каталога и атомарно подменяет им текущее.
type IngestionUseCase struct {
	feeds       []domain.Feed
	feedReader  FeedReader
	builder     *CatalogBuilder
	catalogRepo CatalogRepository
	imagesInfra ImagesInfra   // nil, если архивирование выключено
	producer    EventProducer // nil, если Kafka не настроена
	locker      LockRepository
	logger      logger.Logger

	mu sync.Mutex
}

func NewIngestionUC(
	feeds []domain.Feed,
	feedReader FeedReader,
	builder *CatalogBuilder,
	catalogRepo CatalogRepository,
	imagesInfra ImagesInfra,
	producer EventProducer,
	locker LockRepository,
	logger logger.Logger,
) *IngestionUseCase {
	return &IngestionUseCase{
		feeds:       feeds,
		feedReader:  feedReader,
		builder:     builder,
		catalogRepo: catalogRepo,
		imagesInfra: imagesInfra,
		producer:    producer,
		locker:      locker,
		logger:      logger,
	}
}

// RunIngestion выполняет один прогон.
// Ошибки строк и фидов собираются в отчёт. Пустой прогон не трогает хранилище.
// Ошибка возвращается, если не прочитался ни один фид, прогон отменён или хранилище недоступно.
func (u *IngestionUseCase) RunIngestion(ctx context.Context) (*IngestionReport, error) {
	const op = "IngestionUseCase.RunIngestion"

	if !u.mu.TryLock() {
		return nil, e.Wrap(op, e.ErrIngestionInProgress)
	}
	defer u.mu.Unlock()

	release, err := u.acquireLock(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer release()

	report := &IngestionReport{
		StartedAt:     time.Now().UTC(),
		PerFeedCounts: make([]FeedCount, 0, len(u.feeds)),
		RowFailures:   make([]RowFailure, 0),
		FeedFailures:  make([]FeedFailure, 0),
	}

	var (
		records  []*domain.CatalogRecord
		archived []string
		dropped  []string
	)
	seen := make(map[string]string)
	for _, feed := range u.feeds {
		if err := ctx.Err(); err != nil {
			u.cleanup(archived)
			return nil, e.Wrap(op, err)
		}

		data, err := u.feedReader.Read(ctx, feed)
		if err != nil {
			u.logger.Errorf(err, "failed to read feed %s, skipping", feed.Name)
			report.FeedFailures = append(report.FeedFailures, FeedFailure{Feed: feed.Name, Reason: err.Error()})
			report.PerFeedCounts = append(report.PerFeedCounts, FeedCount{Feed: feed.Name, Brand: feed.Brand()})
			continue
		}

		res := u.builder.Build(ctx, data)
		archived = append(archived, res.ArchivedKeys...)

		kept, duplicates, keys := dedupe(seen, feed.Name, res)
		dropped = append(dropped, keys...)
		failures := append(res.Failures, duplicates...)

		u.logger.Infof("processed %d items from %s (%d rows, %d failed)",
			len(kept), feed.Name, len(data.Rows), len(failures))

		records = append(records, kept...)
		report.RowFailures = append(report.RowFailures, failures...)
		report.PerFeedCounts = append(report.PerFeedCounts, FeedCount{
			Feed:     feed.Name,
			Brand:    feed.Brand(),
			Rows:     len(data.Rows),
			Records:  len(kept),
			Failures: len(failures),
		})
	}

	if len(u.feeds) > 0 && len(report.FeedFailures) == len(u.feeds) {
		return nil, e.Wrap(op, e.ErrAllFeedsFailed)
	}

	// Отмена до подмены: хранилище не трогаем
	if err := ctx.Err(); err != nil {
		u.cleanup(archived)
		return nil, e.Wrap(op, err)
	}
	// Повтор внутри одного бренда архивируется под тем же ключом, что и оставленная запись
	live := keysOf(records)
	u.cleanup(slices.DeleteFunc(dropped, func(key string) bool { return slices.Contains(live, key) }))

	if len(records) == 0 {
		u.logger.Warnf("ingestion produced no items, keeping the current catalog")
		report.Duration = time.Since(report.StartedAt)
		return report, nil
	}

	gen := domain.NewCatalogGeneration(records)
	if err := u.catalogRepo.ReplaceAll(ctx, gen); err != nil {
		u.cleanup(keysOf(records))
		return nil, e.Wrap(op, err)
	}

	report.GenerationID = gen.ID
	report.ItemsProcessed = len(gen.Records)
	report.Committed = true
	report.Duration = time.Since(report.StartedAt)

	u.logger.Infof("saved %d items to catalog generation %s", report.ItemsProcessed, gen.ID)
	u.publish(ctx, gen)

	return report, nil
}

// acquireLock берёт распределённую блокировку. Недоступность Redis не блокирует прогон.
func (u *IngestionUseCase) acquireLock(ctx context.Context) (func(), error) {
	noop := func() {}
	if u.locker == nil {
		return noop, nil
	}

	release, err := u.locker.Acquire(ctx, ingestionLockName)
	if err != nil {
		if errors.Is(err, e.ErrIngestionInProgress) {
			return nil, err
		}
		u.logger.Warnf("ingestion lock unavailable, continuing with process-local lock: %v", err)
		return noop, nil
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := release(releaseCtx); err != nil {
			u.logger.Warnf("failed to release ingestion lock: %v", err)
		}
	}, nil
}

// dedupe оставляет первую запись для каждого product_id среди уже обработанных фидов.
// Повторы становятся ошибками строк своего фида, их архивные ключи возвращаются для очистки.
func dedupe(seen map[string]string, feedName string, res *BuildResult) ([]*domain.CatalogRecord, []RowFailure, []string) {
	kept := make([]*domain.CatalogRecord, 0, len(res.Records))

	var (
		failures []RowFailure
		dropped  []string
	)
	for i, r := range res.Records {
		if first, ok := seen[r.ProductID]; ok {
			failures = append(failures, RowFailure{
				Feed:      feedName,
				RowIndex:  res.RowIndexes[i],
				ProductID: r.ProductID,
				Stage:     StageDuplicate,
				Reason:    fmt.Sprintf("%v: already provided by %s", e.ErrDuplicateProduct, first),
			})
			if r.ImageKey != "" {
				dropped = append(dropped, r.ImageKey)
			}
			continue
		}

		seen[r.ProductID] = feedName
		kept = append(kept, r)
	}

	return kept, failures, dropped
}

func (u *IngestionUseCase) cleanup(keys []string) {
	if u.imagesInfra == nil || len(keys) == 0 {
		return
	}
	u.imagesInfra.CleanupImages(keys)
}

// publish отправляет событие о новом поколении. Ошибка только логируется.
func (u *IngestionUseCase) publish(ctx context.Context, gen *domain.CatalogGeneration) {
	if u.producer == nil {
		return
	}

	feeds := make([]string, 0, len(u.feeds))
	for _, f := range u.feeds {
		feeds = append(feeds, f.Name)
	}

	event := &GenerationCommittedEvent{
		EventID:        uuid.NewString(),
		GenerationID:   gen.ID,
		ItemsProcessed: len(gen.Records),
		Feeds:          feeds,
		CommittedAt:    time.Now().UTC(),
	}

	if err := u.producer.PublishGenerationCommitted(ctx, event); err != nil {
		u.logger.Warnf("failed to publish generation %s event: %v", gen.ID, err)
	}
}

func keysOf(records []*domain.CatalogRecord) []string {
	keys := make([]string, 0)
	for _, r := range records {
		if r.ImageKey != "" {
			keys = append(keys, r.ImageKey)
		}
	}
	return keys
}
