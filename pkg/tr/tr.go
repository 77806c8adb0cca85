package tr

import (
	"context"

	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/jackc/pgx/v5"
)

// WithTx кладёт транзакцию в контекст для репозиториев.
func WithTx(ctx context.Context, tx any) context.Context {
	return context.WithValue(ctx, "tx", tx)
}

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	txAny := ctx.Value("tx")
	tx, ok := txAny.(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}
