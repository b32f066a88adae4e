package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalRepository implements withdrawal records
type WithdrawalRepository struct {
	q Queryable
}

// NewWithdrawalRepositoryWithTx creates a new withdrawal repository bound to a transaction
func NewWithdrawalRepositoryWithTx(tx Queryable) interfaces.WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `id, owner, amount, fee, destination_owner, destination_subaccount, status,
	block_index, failure_reason, created_at_time, created_at, updated_at`

func scanWithdrawal(row rowScanner) (*entities.Withdrawal, error) {
	var w entities.Withdrawal
	var id string
	var amount, fee, createdAtTime int64
	var blockIndex *int64
	var destinationSubaccount []byte
	var status string
	if err := row.Scan(
		&id,
		&w.Owner,
		&amount,
		&fee,
		&w.Destination.Owner,
		&destinationSubaccount,
		&status,
		&blockIndex,
		&w.FailureReason,
		&createdAtTime,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid stored withdrawal id %q: %w", id, err)
	}
	w.ID = parsed
	w.Status = entities.WithdrawalStatus(status)

	if w.Amount, err = toAmount(amount, "amount"); err != nil {
		return nil, err
	}
	if w.Fee, err = toAmount(fee, "fee"); err != nil {
		return nil, err
	}
	if w.CreatedAtTime, err = toAmount(createdAtTime, "created at time"); err != nil {
		return nil, err
	}
	if blockIndex != nil {
		index, err := toAmount(*blockIndex, "block index")
		if err != nil {
			return nil, err
		}
		w.BlockIndex = &index
	}
	if destinationSubaccount != nil {
		if len(destinationSubaccount) != entities.SubaccountLength {
			return nil, fmt.Errorf("stored destination subaccount has %d bytes", len(destinationSubaccount))
		}
		copy(w.Destination.Subaccount[:], destinationSubaccount)
	}

	return &w, nil
}

// Create inserts a withdrawal
func (r *WithdrawalRepository) Create(ctx context.Context, w *entities.Withdrawal) error {
	amount, err := fromAmount(w.Amount)
	if err != nil {
		return err
	}
	fee, err := fromAmount(w.Fee)
	if err != nil {
		return err
	}
	createdAtTime, err := fromAmount(w.CreatedAtTime)
	if err != nil {
		return err
	}

	var destinationSubaccount []byte
	if !w.Destination.Subaccount.IsDefault() {
		destinationSubaccount = w.Destination.Subaccount[:]
	}

	query := `
		INSERT INTO withdrawals
		(id, owner, amount, fee, destination_owner, destination_subaccount, status, created_at_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		w.ID.String(),
		w.Owner,
		amount,
		fee,
		w.Destination.Owner,
		destinationSubaccount,
		string(w.Status),
		createdAtTime,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal %s: %w", w.ID, err)
	}

	return nil
}

// GetByID retrieves a withdrawal, nil if absent
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	return r.get(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a withdrawal with a row lock
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	return r.get(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
}

func (r *WithdrawalRepository) get(ctx context.Context, query string, id uuid.UUID) (*entities.Withdrawal, error) {
	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %s: %w", id, err)
	}
	return w, nil
}

// Update stores the resolution of a withdrawal
func (r *WithdrawalRepository) Update(ctx context.Context, w *entities.Withdrawal) error {
	var blockIndex *int64
	if w.BlockIndex != nil {
		index, err := fromAmount(*w.BlockIndex)
		if err != nil {
			return err
		}
		blockIndex = &index
	}

	query := `
		UPDATE withdrawals
		SET status = $2, block_index = $3, failure_reason = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, w.ID.String(), string(w.Status), blockIndex, w.FailureReason).Scan(&w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("withdrawal %s not found", w.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update withdrawal %s: %w", w.ID, err)
	}

	return nil
}

// GetPending returns pending withdrawals created before the cutoff, oldest first
func (r *WithdrawalRepository) GetPending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`
	return r.list(ctx, query, createdBefore, limit)
}

// GetByOwner returns the owner's most recent withdrawals
func (r *WithdrawalRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE owner = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, owner, limit)
}

func (r *WithdrawalRepository) list(ctx context.Context, query string, args ...any) ([]*entities.Withdrawal, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make([]*entities.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawals: %w", err)
	}

	return withdrawals, nil
}
