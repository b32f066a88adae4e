package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"btclotto/database"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
)

// TransactionRepository implements the append-only balance history
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// NewTransactionRepositoryWithTx creates a new transaction repository bound to a transaction
func NewTransactionRepositoryWithTx(tx Queryable) interfaces.TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends a balance change
func (r *TransactionRepository) Record(ctx context.Context, tx *entities.Transaction) error {
	metadata := tx.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	amount, err := fromAmount(tx.Amount)
	if err != nil {
		return err
	}
	before, err := fromAmount(tx.BalanceBefore)
	if err != nil {
		return err
	}
	after, err := fromAmount(tx.BalanceAfter)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO account_transactions
		(owner, transaction_type, amount, balance_before, balance_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		tx.Owner,
		string(tx.Type),
		amount,
		before,
		after,
		metadataJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s transaction for %s: %w", tx.Type, tx.Owner, err)
	}

	return nil
}

// GetByOwner returns the owner's most recent transactions, newest first
func (r *TransactionRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT id, owner, transaction_type, amount, balance_before, balance_after, metadata, created_at
		FROM account_transactions
		WHERE owner = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for %s: %w", owner, err)
	}
	defer rows.Close()

	var transactions []*entities.Transaction
	for rows.Next() {
		var tx entities.Transaction
		var txType string
		var amount, before, after int64
		var metadataJSON []byte
		if err := rows.Scan(
			&tx.ID,
			&tx.Owner,
			&txType,
			&amount,
			&before,
			&after,
			&metadataJSON,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Type = entities.TransactionType(txType)
		if tx.Amount, err = toAmount(amount, "amount"); err != nil {
			return nil, err
		}
		if tx.BalanceBefore, err = toAmount(before, "balance before"); err != nil {
			return nil, err
		}
		if tx.BalanceAfter, err = toAmount(after, "balance after"); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}
