package repository

import (
	"context"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
)

// WinningRepository implements the append-only winning history
type WinningRepository struct {
	q Queryable
}

// NewWinningRepositoryWithTx creates a new winning repository bound to a transaction
func NewWinningRepositoryWithTx(tx Queryable) interfaces.WinningRepository {
	return &WinningRepository{q: tx}
}

// Create records a prize payout
func (r *WinningRepository) Create(ctx context.Context, winning *entities.Winning) error {
	amount, err := fromAmount(winning.Amount)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO winnings (owner, round_id, amount, transaction_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		winning.Owner,
		winning.RoundID,
		amount,
		winning.TransactionID,
	).Scan(&winning.ID, &winning.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create winning for round %d: %w", winning.RoundID, err)
	}

	return nil
}

// GetByOwner returns the owner's most recent winnings, newest first
func (r *WinningRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Winning, error) {
	query := `
		SELECT id, owner, round_id, amount, transaction_id, created_at
		FROM winnings
		WHERE owner = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get winnings for %s: %w", owner, err)
	}
	defer rows.Close()

	var winnings []*entities.Winning
	for rows.Next() {
		var winning entities.Winning
		var amount int64
		if err := rows.Scan(
			&winning.ID,
			&winning.Owner,
			&winning.RoundID,
			&amount,
			&winning.TransactionID,
			&winning.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan winning: %w", err)
		}
		if winning.Amount, err = toAmount(amount, "amount"); err != nil {
			return nil, err
		}
		winnings = append(winnings, &winning)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winnings: %w", err)
	}

	return winnings, nil
}
