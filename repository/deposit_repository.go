package repository

import (
	"context"
	"errors"
	"fmt"

	"btclotto/database"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// DepositRepository implements deposit records keyed by ledger tx hash
type DepositRepository struct {
	q Queryable
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *database.DB) *DepositRepository {
	return &DepositRepository{q: db.Pool}
}

// NewDepositRepositoryWithTx creates a new deposit repository bound to a transaction
func NewDepositRepositoryWithTx(tx Queryable) interfaces.DepositRepository {
	return &DepositRepository{q: tx}
}

const depositColumns = `id, tx_hash, owner, amount, status, block_index, swept, created_at`

func scanDeposit(row rowScanner) (*entities.Deposit, error) {
	var deposit entities.Deposit
	var status string
	var amount, blockIndex int64
	if err := row.Scan(
		&deposit.ID,
		&deposit.TxHash,
		&deposit.Owner,
		&amount,
		&status,
		&blockIndex,
		&deposit.Swept,
		&deposit.CreatedAt,
	); err != nil {
		return nil, err
	}

	deposit.Status = entities.DepositStatus(status)
	var err error
	if deposit.Amount, err = toAmount(amount, "amount"); err != nil {
		return nil, err
	}
	if deposit.BlockIndex, err = toAmount(blockIndex, "block index"); err != nil {
		return nil, err
	}
	return &deposit, nil
}

// InsertIfAbsent records the deposit unless its tx hash is already known
func (r *DepositRepository) InsertIfAbsent(ctx context.Context, deposit *entities.Deposit) (bool, error) {
	amount, err := fromAmount(deposit.Amount)
	if err != nil {
		return false, err
	}
	blockIndex, err := fromAmount(deposit.BlockIndex)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO deposits (tx_hash, owner, amount, status, block_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tx_hash) DO NOTHING
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		deposit.TxHash,
		deposit.Owner,
		amount,
		string(deposit.Status),
		blockIndex,
	).Scan(&deposit.ID, &deposit.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert deposit %s: %w", deposit.TxHash, err)
	}

	return true, nil
}

// MarkConfirmed marks a deposit credited
func (r *DepositRepository) MarkConfirmed(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE deposits SET status = 'confirmed' WHERE id = $1`, id, "confirm")
}

// MarkSwept marks a deposit consolidated into the treasury
func (r *DepositRepository) MarkSwept(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE deposits SET swept = TRUE WHERE id = $1`, id, "mark swept")
}

func (r *DepositRepository) exec(ctx context.Context, query string, id int64, action string) error {
	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to %s deposit %d: %w", action, id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("deposit %d not found", id)
	}
	return nil
}

// GetByTxHash retrieves a deposit by its ledger tx hash
func (r *DepositRepository) GetByTxHash(ctx context.Context, txHash string) (*entities.Deposit, error) {
	deposit, err := scanDeposit(r.q.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE tx_hash = $1`, txHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit %s: %w", txHash, err)
	}
	return deposit, nil
}

// GetByOwner returns the owner's most recent deposits, newest first
func (r *DepositRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE owner = $1 ORDER BY id DESC LIMIT $2`
	return r.list(ctx, query, owner, limit)
}

// GetUnswept returns confirmed deposits still sitting in deposit subaccounts
func (r *DepositRepository) GetUnswept(ctx context.Context, limit int) ([]*entities.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE status = 'confirmed' AND NOT swept ORDER BY id ASC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *DepositRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Deposit, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	deposits := make([]*entities.Deposit, 0)
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, deposit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deposits: %w", err)
	}

	return deposits, nil
}
