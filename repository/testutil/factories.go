package testutil

import (
	"context"
	"testing"

	"btclotto/database"
	"btclotto/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// TestPrincipal builds a distinct valid principal from a small integer
func TestPrincipal(n byte) entities.Principal {
	p, err := entities.PrincipalFromBytes([]byte{0x10, n, 0x01})
	if err != nil {
		panic(err)
	}
	return p
}

// CreateTestAccount inserts an account with the given balance, recording a
// matching deposit transaction so the balance verifies against history
func CreateTestAccount(t *testing.T, db *database.DB, owner entities.Principal, balance uint64) {
	t.Helper()
	ctx := context.Background()

	sub, err := entities.DepositSubaccount(owner)
	require.NoError(t, err)

	err = db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO accounts (owner, deposit_subaccount, balance) VALUES ($1, $2, $3)`,
			owner, sub[:], int64(balance)); err != nil {
			return err
		}
		if balance == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO account_transactions (owner, transaction_type, amount, balance_before, balance_after)
			VALUES ($1, 'deposit', $2, 0, $2)`, owner, int64(balance))
		return err
	})
	require.NoError(t, err)
}

// CreateTestTransaction builds an unsaved transaction
func CreateTestTransaction(owner entities.Principal, txType entities.TransactionType, amount, before uint64) *entities.Transaction {
	after := before + amount
	if txType.IsDebit() {
		after = before - amount
	}
	return &entities.Transaction{
		Owner:         owner,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Metadata:      map[string]any{"test": true},
	}
}
