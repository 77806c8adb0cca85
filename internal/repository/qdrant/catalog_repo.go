package qdrant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/repository/qdrant/converter"
	"github.com/DRSN-tech/style-catalog/pkg/clients"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	upsertBatchSize = 256
	scrollPageSize  = 512
	cleanupTimeout  = 30 * time.Second
)

// CatalogRepo хранит каждое поколение в отдельной коллекции <alias>_<generation>.
// Алиас переключается одним вызовом UpdateAliases. Прежняя коллекция остаётся до следующего
// переключения: читатели, успевшие получить её имя, дочитывают без NotFound.
type CatalogRepo struct {
	client *qdrant.Client
	conv   converter.CatalogConverter
	cfg    *cfg.QdrantCfg
	logger logger.Logger
}

func NewCatalogRepo(client *qdrant.Client, conv converter.CatalogConverter, cfg *cfg.QdrantCfg, logger logger.Logger) *CatalogRepo {
	return &CatalogRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

func (q *CatalogRepo) ReplaceAll(ctx context.Context, gen *domain.CatalogGeneration) error {
	const op = "CatalogRepo.ReplaceAll"

	previous, err := q.aliasTarget(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	collection := q.collectionName(gen.ID)
	if err := clients.EnsureCollection(ctx, q.client, collection, q.vectorSize(gen)); err != nil {
		return e.Wrap(op, mapErr(err))
	}

	if err := q.upsertRecords(ctx, collection, gen.Records); err != nil {
		q.dropCollection(collection)
		return e.Wrap(op, err)
	}

	actions := make([]*qdrant.AliasOperations, 0, 2)
	if previous != "" {
		actions = append(actions, qdrant.NewAliasDelete(q.cfg.CollectionName))
	}
	actions = append(actions, qdrant.NewAliasCreate(q.cfg.CollectionName, collection))

	if err := q.client.UpdateAliases(ctx, actions); err != nil {
		q.dropCollection(collection)
		return e.Wrap(op, mapErr(err))
	}

	q.pruneGenerations(collection, previous)

	q.logger.Infof("qdrant alias %s switched to %s (%d records)", q.cfg.CollectionName, collection, len(gen.Records))
	return nil
}

// FindAll читает коллекцию, на которую указывает алиас, и упорядочивает записи по seq.
func (q *CatalogRepo) FindAll(ctx context.Context) (*domain.CatalogSnapshot, error) {
	const op = "CatalogRepo.FindAll"

	collection, err := q.aliasTarget(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	snapshot := &domain.CatalogSnapshot{
		GenerationID: q.generationOf(collection),
		Records:      []*domain.CatalogRecord{},
	}
	if collection == "" {
		return snapshot, nil
	}

	records, err := q.scrollCollection(ctx, collection)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	snapshot.Records = records

	return snapshot, nil
}

// scrollCollection читает все точки коллекции, упорядоченные по seq.
func (q *CatalogRepo) scrollCollection(ctx context.Context, collection string) ([]*domain.CatalogRecord, error) {
	records := []*domain.CatalogRecord{}

	var offset *qdrant.PointId
	for {
		points, next, err := q.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, mapErr(err)
		}

		for _, p := range points {
			records = append(records, q.conv.ToEntity(p))
		}

		if next == nil {
			break
		}
		offset = next
	}

	slices.SortFunc(records, func(a, b *domain.CatalogRecord) int { return a.Seq - b.Seq })

	return records, nil
}

func (q *CatalogRepo) FindByID(ctx context.Context, id string) (*domain.CatalogRecord, error) {
	const op = "CatalogRepo.FindByID"

	collection, err := q.aliasTarget(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if collection == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, id))
	}

	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		// id не в формате UUID
		if status.Code(err) == codes.InvalidArgument {
			return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, id))
		}
		return nil, e.Wrap(op, mapErr(err))
	}
	if len(points) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, id))
	}

	return q.conv.ToEntity(points[0]), nil
}

func (q *CatalogRepo) FindByProductID(ctx context.Context, productID string) (*domain.CatalogRecord, error) {
	const op = "CatalogRepo.FindByProductID"

	collection, err := q.aliasTarget(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if collection == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, productID))
	}

	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("product_id", productID)},
		},
		Limit:       qdrant.PtrOf(uint32(1)),
		WithPayload: qdrant.NewWithPayload(true),
		WithVectors: qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, e.Wrap(op, mapErr(err))
	}
	if len(points) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, productID))
	}

	return q.conv.ToEntity(points[0]), nil
}

func (q *CatalogRepo) CurrentGeneration(ctx context.Context) (string, error) {
	collection, err := q.aliasTarget(ctx)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return q.generationOf(collection), nil
}

func (q *CatalogRepo) upsertRecords(ctx context.Context, collection string, records []*domain.CatalogRecord) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for _, record := range records[start:end] {
			point, err := q.conv.ToPoint(record)
			if err != nil {
				return e.Wrap(whereami.WhereAmI(), err)
			}
			points = append(points, point)
		}

		if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		}); err != nil {
			return e.Wrap(whereami.WhereAmI(), mapErr(err))
		}
	}

	return nil
}

// aliasTarget возвращает коллекцию, на которую указывает алиас каталога, или пустую строку.
func (q *CatalogRepo) aliasTarget(ctx context.Context) (string, error) {
	aliases, err := q.client.ListAliases(ctx)
	if err != nil {
		return "", mapErr(err)
	}

	for _, alias := range aliases {
		if alias.GetAliasName() == q.cfg.CollectionName {
			return alias.GetCollectionName(), nil
		}
	}

	return "", nil
}

func (q *CatalogRepo) dropCollection(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := q.client.DeleteCollection(ctx, name); err != nil {
		q.logger.Errorf(err, "failed to delete qdrant collection %s", name)
	}
}

// pruneGenerations удаляет коллекции поколений <alias>_<uuid>, кроме перечисленных в keep.
func (q *CatalogRepo) pruneGenerations(keep ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	names, err := q.client.ListCollections(ctx)
	if err != nil {
		q.logger.Errorf(err, "failed to list qdrant collections for cleanup")
		return
	}

	for _, name := range names {
		if slices.Contains(keep, name) || !q.isGeneration(name) {
			continue
		}

		if err := q.client.DeleteCollection(ctx, name); err != nil {
			q.logger.Errorf(err, "failed to delete qdrant collection %s", name)
			continue
		}
		q.logger.Debugf("qdrant collection %s removed", name)
	}
}

func (q *CatalogRepo) isGeneration(collection string) bool {
	rest, ok := strings.CutPrefix(collection, q.cfg.CollectionName+"_")
	if !ok {
		return false
	}

	_, err := uuid.Parse(rest)
	return err == nil
}

func (q *CatalogRepo) collectionName(generationID string) string {
	return q.cfg.CollectionName + "_" + generationID
}

func (q *CatalogRepo) generationOf(collection string) string {
	return strings.TrimPrefix(collection, q.cfg.CollectionName+"_")
}

func (q *CatalogRepo) vectorSize(gen *domain.CatalogGeneration) uint64 {
	for _, r := range gen.Records {
		if n := len(r.Embedding); n > 0 {
			return uint64(n)
		}
	}

	return q.cfg.VectorSize
}

// mapErr помечает недоступность и внутренние сбои Qdrant как недоступность хранилища.
func mapErr(err error) error {
	if err == nil {
		return nil
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Unknown, codes.Internal, codes.ResourceExhausted, codes.Aborted:
			return fmt.Errorf("%w: %w", e.ErrStoreUnavailable, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", e.ErrStoreUnavailable, err)
	}

	return err
}
