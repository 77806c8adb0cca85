package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/repository/mongo/converter"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/topology"
)

const (
	itemsCollection = "catalog_items"
	stateCollection = "catalog_state"
	currentStateID  = "current"
	cleanupTimeout  = 30 * time.Second
)

// CatalogRepo хранит поколения каталога в MongoDB.
// Документы несут generation_id, текущее поколение задаёт документ catalog_state.
type CatalogRepo struct {
	items  *mongo.Collection
	state  *mongo.Collection
	conv   converter.CatalogConverter
	logger logger.Logger
}

func NewCatalogRepo(db *mongo.Database, conv converter.CatalogConverter, logger logger.Logger) *CatalogRepo {
	return &CatalogRepo{
		items:  db.Collection(itemsCollection),
		state:  db.Collection(stateCollection),
		conv:   conv,
		logger: logger,
	}
}

// EnsureIndexes создаёт индексы по поколению.
func (c *CatalogRepo) EnsureIndexes(ctx context.Context) error {
	_, err := c.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "generation_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "generation_id", Value: 1}, {Key: "product_id", Value: 1}},
		},
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), mapErr(err))
	}

	return nil
}

// ReplaceAll вставляет поколение, переключает указатель и удаляет поколения
// кроме нового и непосредственно предыдущего.
func (c *CatalogRepo) ReplaceAll(ctx context.Context, gen *domain.CatalogGeneration) error {
	const op = "CatalogRepo.ReplaceAll"

	previous, err := c.currentState(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	if len(gen.Records) > 0 {
		if _, err := c.items.InsertMany(ctx, c.conv.ToArrDocument(gen.Records)); err != nil {
			c.dropGeneration(gen.ID)
			return e.Wrap(op, mapErr(err))
		}
	}

	state := &converter.CatalogStateDocument{
		ID:           currentStateID,
		GenerationID: gen.ID,
		ItemCount:    len(gen.Records),
		UpdatedAt:    time.Now().UTC(),
	}
	if previous != nil {
		state.PreviousGenerationID = previous.GenerationID
	}

	_, err = c.state.ReplaceOne(ctx, bson.M{"_id": currentStateID}, state, options.Replace().SetUpsert(true))
	if err != nil {
		c.dropGeneration(gen.ID)
		return e.Wrap(op, mapErr(err))
	}

	keep := []string{gen.ID}
	if state.PreviousGenerationID != "" {
		keep = append(keep, state.PreviousGenerationID)
	}
	res, err := c.items.DeleteMany(ctx, bson.M{"generation_id": bson.M{"$nin": keep}})
	if err != nil {
		c.logger.Warnf("failed to delete stale generations after %s: %v", gen.ID, e.Wrap(op, err))
	} else {
		c.logger.Debugf("deleted %d stale catalog documents", res.DeletedCount)
	}

	c.logger.Infof("mongo catalog switched to generation %s (%d records)", gen.ID, len(gen.Records))
	return nil
}

// FindAll возвращает текущее поколение в порядке seq.
func (c *CatalogRepo) FindAll(ctx context.Context) (*domain.CatalogSnapshot, error) {
	const op = "CatalogRepo.FindAll"

	generationID, err := c.CurrentGeneration(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	snapshot := &domain.CatalogSnapshot{GenerationID: generationID, Records: []*domain.CatalogRecord{}}
	if generationID == "" {
		return snapshot, nil
	}

	cursor, err := c.items.Find(ctx, bson.M{"generation_id": generationID}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, e.Wrap(op, mapErr(err))
	}

	var docs []*converter.CatalogItemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, e.Wrap(op, mapErr(err))
	}

	snapshot.Records = c.conv.ToArrEntity(docs)
	return snapshot, nil
}

// FindByID ищет запись текущего поколения по идентификатору записи.
func (c *CatalogRepo) FindByID(ctx context.Context, id string) (*domain.CatalogRecord, error) {
	return c.findOne(ctx, "CatalogRepo.FindByID", "_id", id)
}

// FindByProductID ищет запись текущего поколения по product_id фида.
func (c *CatalogRepo) FindByProductID(ctx context.Context, productID string) (*domain.CatalogRecord, error) {
	return c.findOne(ctx, "CatalogRepo.FindByProductID", "product_id", productID)
}

// CurrentGeneration возвращает идентификатор текущего поколения или пустую строку.
func (c *CatalogRepo) CurrentGeneration(ctx context.Context) (string, error) {
	state, err := c.currentState(ctx)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}
	if state == nil {
		return "", nil
	}

	return state.GenerationID, nil
}

func (c *CatalogRepo) findOne(ctx context.Context, op, field, value string) (*domain.CatalogRecord, error) {
	generationID, err := c.CurrentGeneration(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if generationID == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, value))
	}

	var doc converter.CatalogItemDocument
	err = c.items.FindOne(ctx,
		bson.M{"generation_id": generationID, field: value},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, value))
	}
	if err != nil {
		return nil, e.Wrap(op, mapErr(err))
	}

	return c.conv.ToEntity(&doc), nil
}

func (c *CatalogRepo) currentState(ctx context.Context) (*converter.CatalogStateDocument, error) {
	var state converter.CatalogStateDocument
	err := c.state.FindOne(ctx, bson.M{"_id": currentStateID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}

	return &state, nil
}

// dropGeneration удаляет частично вставленное поколение, которое так и не стало текущим.
func (c *CatalogRepo) dropGeneration(generationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if _, err := c.items.DeleteMany(ctx, bson.M{"generation_id": generationID}); err != nil {
		c.logger.Errorf(err, "failed to remove staged generation %s", generationID)
	}
}

// mapErr помечает сетевые ошибки, таймауты и неудачный выбор сервера как недоступность хранилища.
func mapErr(err error) error {
	if err == nil {
		return nil
	}

	var selErr topology.ServerSelectionError
	switch {
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
	case errors.As(err, &selErr):
	case errors.Is(err, mongo.ErrClientDisconnected):
	case errors.Is(err, context.DeadlineExceeded):
	default:
		return err
	}

	return fmt.Errorf("%w: %w", e.ErrStoreUnavailable, err)
}
