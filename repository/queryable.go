package repository

import (
	"context"
	"fmt"
	"math"

	"btclotto/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryable is satisfied by both the pool and a transaction, so every
// repository runs unchanged inside or outside a unit of work
type Queryable interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rowScanner is implemented by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// maxStoredAmount bounds every amount column (BIGINT)
const maxStoredAmount = int64(math.MaxInt64)

func toAmount(value int64, column string) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf("negative %s in storage: %d", column, value)
	}
	return uint64(value), nil
}

func fromAmount(amount uint64) (int64, error) {
	if amount > entities.MaxAmount {
		return 0, entities.ErrInvalidAmount
	}
	return int64(amount), nil
}
