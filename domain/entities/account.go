package entities

import (
	"fmt"
	"math"
	"time"
)

// Account is a user's ledger position inside the service
type Account struct {
	Owner             Principal  `db:"owner"`
	Balance           uint64     `db:"balance"`
	DepositSubaccount Subaccount `db:"deposit_subaccount"`
	Frozen            bool       `db:"frozen"`
	DepositCursor     uint64     `db:"deposit_cursor"` // Next ledger block index to scan
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`

	// Populated on read by the account service
	TransactionHistory []*Transaction `db:"-"`
	WinningHistory     []*Winning     `db:"-"`
}

// DepositAccount returns the treasury account the user deposits into
func (a *Account) DepositAccount(treasury Principal) LedgerAccount {
	return LedgerAccount{Owner: treasury, Subaccount: a.DepositSubaccount}
}

// HasSufficientBalance checks if the account can pay an amount
func (a *Account) HasSufficientBalance(amount uint64) bool {
	return a.Balance >= amount
}

// ValidateAmount checks that an amount is positive and storable
func ValidateAmount(amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if amount > MaxAmount {
		return ErrInvalidAmount
	}
	return nil
}

// MaxAmount is the largest amount that can be stored in a BIGINT column
const MaxAmount uint64 = math.MaxInt64
