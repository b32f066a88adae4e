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

// AccountRepository implements account persistence
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// NewAccountRepositoryWithTx creates a new account repository bound to a transaction
func NewAccountRepositoryWithTx(tx Queryable) interfaces.AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `owner, balance, deposit_subaccount, frozen, deposit_cursor, created_at, updated_at`

func scanAccount(row rowScanner) (*entities.Account, error) {
	var account entities.Account
	var balance, cursor int64
	var subaccount []byte
	if err := row.Scan(
		&account.Owner,
		&balance,
		&subaccount,
		&account.Frozen,
		&cursor,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if account.Balance, err = toAmount(balance, "balance"); err != nil {
		return nil, err
	}
	if account.DepositCursor, err = toAmount(cursor, "deposit cursor"); err != nil {
		return nil, err
	}
	if len(subaccount) != entities.SubaccountLength {
		return nil, fmt.Errorf("stored deposit subaccount has %d bytes", len(subaccount))
	}
	copy(account.DepositSubaccount[:], subaccount)

	return &account, nil
}

// GetByOwner retrieves an account, nil if absent
func (r *AccountRepository) GetByOwner(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", owner, err)
	}

	return account, nil
}

// CreateIfAbsent inserts a zero balance account. The boolean reports whether
// this call created it.
func (r *AccountRepository) CreateIfAbsent(ctx context.Context, owner entities.Principal, depositSubaccount entities.Subaccount) (*entities.Account, bool, error) {
	query := `
		INSERT INTO accounts (owner, deposit_subaccount)
		VALUES ($1, $2)
		ON CONFLICT (owner) DO NOTHING
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, owner, depositSubaccount[:]))
	if err == nil {
		return account, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create account %s: %w", owner, err)
	}

	account, err = r.GetByOwner(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	if account == nil {
		return nil, false, fmt.Errorf("account %s vanished after conflicting insert", owner)
	}
	return account, false, nil
}

// AddBalance atomically credits the account and returns the new balance.
// Credits apply to frozen accounts too.
func (r *AccountRepository) AddBalance(ctx context.Context, owner entities.Principal, amount uint64) (uint64, error) {
	value, err := fromAmount(amount)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE owner = $1
		  AND balance <= $3
		RETURNING balance
	`

	var balance int64
	err = r.q.QueryRow(ctx, query, owner, value, maxStoredAmount-value).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		account, err := r.GetByOwner(ctx, owner)
		if err != nil {
			return 0, err
		}
		if account == nil {
			return 0, entities.ErrUnknownAccount
		}
		return 0, &entities.InvariantError{Owner: owner, Reason: fmt.Sprintf("credit of %d overflows balance %d", amount, account.Balance)}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for %s: %w", owner, err)
	}

	return toAmount(balance, "balance")
}

// DeductBalance atomically debits the account if it holds enough and is not
// frozen. On failure the balance is untouched.
func (r *AccountRepository) DeductBalance(ctx context.Context, owner entities.Principal, amount uint64) (uint64, error) {
	value, err := fromAmount(amount)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE owner = $1
		  AND balance >= $2
		  AND NOT frozen
		RETURNING balance
	`

	var balance int64
	err = r.q.QueryRow(ctx, query, owner, value).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		account, err := r.GetByOwner(ctx, owner)
		if err != nil {
			return 0, err
		}
		if account == nil {
			return 0, entities.ErrUnknownAccount
		}
		if account.Frozen {
			return 0, entities.ErrAccountFrozen
		}
		return 0, fmt.Errorf("%w: have %d, need %d", entities.ErrInsufficientBalance, account.Balance, amount)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct balance for %s: %w", owner, err)
	}

	return toAmount(balance, "balance")
}

// VerifyBalance checks that the stored balance equals the signed sum of the
// account's transaction history
func (r *AccountRepository) VerifyBalance(ctx context.Context, owner entities.Principal) (bool, error) {
	query := `
		SELECT a.balance = COALESCE(SUM(
			CASE WHEN t.transaction_type IN ('deposit', 'withdraw_refund', 'win') THEN t.amount
			     ELSE -t.amount
			END), 0)
		FROM accounts a
		LEFT JOIN account_transactions t ON t.owner = a.owner
		WHERE a.owner = $1
		GROUP BY a.balance
	`

	var consistent bool
	err := r.q.QueryRow(ctx, query, owner).Scan(&consistent)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, entities.ErrUnknownAccount
	}
	if err != nil {
		return false, fmt.Errorf("failed to verify balance for %s: %w", owner, err)
	}

	return consistent, nil
}

// Freeze quarantines the account so further debits are rejected
func (r *AccountRepository) Freeze(ctx context.Context, owner entities.Principal) error {
	query := `UPDATE accounts SET frozen = TRUE, updated_at = NOW() WHERE owner = $1`

	result, err := r.q.Exec(ctx, query, owner)
	if err != nil {
		return fmt.Errorf("failed to freeze account %s: %w", owner, err)
	}
	if result.RowsAffected() == 0 {
		return entities.ErrUnknownAccount
	}
	return nil
}

// AdvanceDepositCursor moves the deposit scan cursor forward. It never moves backwards.
func (r *AccountRepository) AdvanceDepositCursor(ctx context.Context, owner entities.Principal, cursor uint64) error {
	value, err := fromAmount(cursor)
	if err != nil {
		return err
	}

	query := `
		UPDATE accounts
		SET deposit_cursor = GREATEST(deposit_cursor, $2), updated_at = NOW()
		WHERE owner = $1
	`

	result, err := r.q.Exec(ctx, query, owner, value)
	if err != nil {
		return fmt.Errorf("failed to advance deposit cursor for %s: %w", owner, err)
	}
	if result.RowsAffected() == 0 {
		return entities.ErrUnknownAccount
	}
	return nil
}

// ListOwners returns every account owner in creation order
func (r *AccountRepository) ListOwners(ctx context.Context) ([]entities.Principal, error) {
	rows, err := r.q.Query(ctx, `SELECT owner FROM accounts ORDER BY created_at, owner`)
	if err != nil {
		return nil, fmt.Errorf("failed to list account owners: %w", err)
	}

	owners, err := pgx.CollectRows(rows, pgx.RowTo[entities.Principal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan account owners: %w", err)
	}
	return owners, nil
}
