package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRSN-tech/style-catalog/internal/domain"
	"github.com/DRSN-tech/style-catalog/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/DRSN-tech/style-catalog/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const catalogRecordsTable = "catalog_records"

// CatalogRepo хранит поколения каталога в PostgreSQL.
// Текущее поколение помечено is_current, замена выполняется одной транзакцией.
type CatalogRepo struct {
	pool   *pgxpool.Pool
	conv   converter.CatalogConverter
	logger logger.Logger
}

func NewCatalogRepo(pool *pgxpool.Pool, conv converter.CatalogConverter, logger logger.Logger) *CatalogRepo {
	return &CatalogRepo{
		pool:   pool,
		conv:   conv,
		logger: logger,
	}
}

// ReplaceAll записывает поколение через COPY, удаляет прежние поколения и помечает новое текущим.
// Читатели видят либо старое поколение целиком, либо новое.
func (c *CatalogRepo) ReplaceAll(ctx context.Context, gen *domain.CatalogGeneration) (err error) {
	const op = "CatalogRepo.ReplaceAll"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, c.pool)
	if err != nil {
		return e.Wrap(op, mapErr(err))
	}
	defer func() {
		if err != nil && tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				c.logger.Warnf("rollback of generation %s failed: %v", gen.ID, rbErr)
			}
		}
	}()
	ctx = tr.WithTx(ctx, tx.Transaction())

	if err = c.insertGeneration(ctx, gen); err != nil {
		return e.Wrap(op, err)
	}

	if err = c.copyItems(ctx, gen); err != nil {
		return e.Wrap(op, err)
	}

	if err = c.deleteOtherGenerations(ctx, gen.ID); err != nil {
		return e.Wrap(op, err)
	}

	if err = c.markCurrent(ctx, gen.ID); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, mapErr(err))
	}

	c.logger.Infof("postgres catalog switched to generation %s (%d records)", gen.ID, len(gen.Records))
	return nil
}

// FindAll возвращает текущее поколение в порядке seq.
func (c *CatalogRepo) FindAll(ctx context.Context) (*domain.CatalogSnapshot, error) {
	const op = "CatalogRepo.FindAll"

	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_records cr
		JOIN catalog_generations cg ON cg.id = cr.generation_id AND cg.is_current
		ORDER BY cr.seq
	`, selectColumns("cr"))

	models, err := c.queryItems(ctx, query)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	snapshot := &domain.CatalogSnapshot{Records: c.conv.ToArrEntity(models)}
	if len(models) > 0 {
		snapshot.GenerationID = models[0].GenerationID
		return snapshot, nil
	}

	snapshot.GenerationID, err = c.CurrentGeneration(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return snapshot, nil
}

// FindByID ищет запись текущего поколения по идентификатору записи.
func (c *CatalogRepo) FindByID(ctx context.Context, id string) (*domain.CatalogRecord, error) {
	return c.findOne(ctx, "CatalogRepo.FindByID", "cr.id", id)
}

// FindByProductID ищет запись текущего поколения по product_id фида.
func (c *CatalogRepo) FindByProductID(ctx context.Context, productID string) (*domain.CatalogRecord, error) {
	return c.findOne(ctx, "CatalogRepo.FindByProductID", "cr.product_id", productID)
}

// CurrentGeneration возвращает идентификатор текущего поколения или пустую строку.
func (c *CatalogRepo) CurrentGeneration(ctx context.Context) (string, error) {
	const op = "CatalogRepo.CurrentGeneration"

	var model converter.CatalogGenerationModel
	err := c.pool.QueryRow(ctx, `SELECT id, is_current, item_count, created_at FROM catalog_generations WHERE is_current`).
		Scan(&model.ID, &model.IsCurrent, &model.ItemCount, &model.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", e.Wrap(op, mapErr(err))
	}

	return model.ID, nil
}

func (c *CatalogRepo) findOne(ctx context.Context, op, column, value string) (*domain.CatalogRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_records cr
		JOIN catalog_generations cg ON cg.id = cr.generation_id AND cg.is_current
		WHERE %s = $1
		ORDER BY cr.seq
		LIMIT 1
	`, selectColumns("cr"), column)

	models, err := c.queryItems(ctx, query, value)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(models) == 0 {
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrNotFound, value))
	}

	return c.conv.ToEntity(models[0]), nil
}

func (c *CatalogRepo) queryItems(ctx context.Context, query string, args ...any) ([]*converter.CatalogItemModel, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	result := make([]*converter.CatalogItemModel, 0)
	for rows.Next() {
		var model converter.CatalogItemModel
		if err := rows.Scan(model.ScanTargets()...); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, &model)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}

	return result, nil
}

func (c *CatalogRepo) copyItems(ctx context.Context, gen *domain.CatalogGeneration) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	rows := make([][]any, 0, len(gen.Records))
	for _, record := range gen.Records {
		rows = append(rows, c.conv.ToModel(record).Values())
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{catalogRecordsTable}, converter.CatalogItemColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), mapErr(err))
	}
	if int(copied) != len(rows) {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("copied %d of %d catalog rows", copied, len(rows)))
	}

	return nil
}

func (c *CatalogRepo) insertGeneration(ctx context.Context, gen *domain.CatalogGeneration) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO catalog_generations (id, is_current, item_count, created_at)
		VALUES ($1, FALSE, $2, $3)
	`
	if _, err := tx.Exec(ctx, query, gen.ID, len(gen.Records), gen.CreatedAt); err != nil {
		return e.Wrap(whereami.WhereAmI(), mapErr(err))
	}

	return nil
}

func (c *CatalogRepo) markCurrent(ctx context.Context, generationID string) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := tx.Exec(ctx, `UPDATE catalog_generations SET is_current = TRUE WHERE id = $1`, generationID); err != nil {
		return e.Wrap(whereami.WhereAmI(), mapErr(err))
	}

	return nil
}

func (c *CatalogRepo) deleteOtherGenerations(ctx context.Context, generationID string) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	// записи удаляются каскадно
	tag, err := tx.Exec(ctx, `DELETE FROM catalog_generations WHERE id <> $1`, generationID)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), mapErr(err))
	}
	c.logger.Debugf("removed %d previous generations", tag.RowsAffected())

	return nil
}

func selectColumns(alias string) string {
	cols := ""
	for i, col := range converter.CatalogItemColumns {
		if i > 0 {
			cols += ", "
		}
		cols += alias + "." + col
	}

	return cols
}

// mapErr помечает ошибки соединения как недоступность хранилища.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || isConnErr(err) {
		return fmt.Errorf("%w: %w", e.ErrStoreUnavailable, err)
	}

	return err
}

func isConnErr(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
