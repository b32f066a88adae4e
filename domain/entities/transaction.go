package entities

import (
	"errors"
	"time"
)

// Transaction is an append-only record of a single balance change
type Transaction struct {
	ID            int64           `db:"id" json:"id"`
	Owner         Principal       `db:"owner" json:"-"`
	Type          TransactionType `db:"type" json:"type"`
	Amount        uint64          `db:"amount" json:"amount"`
	BalanceBefore uint64          `db:"balance_before" json:"balance_before"`
	BalanceAfter  uint64          `db:"balance_after" json:"balance_after"`
	Metadata      map[string]any  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"-"`
}

// SignedAmount returns the change as a signed value
func (t *Transaction) SignedAmount() int64 {
	if t.Type.IsDebit() {
		return -int64(t.Amount)
	}
	return int64(t.Amount)
}

// GetTransactionDescription returns a human-readable description of the transaction
func (t *Transaction) GetTransactionDescription() string {
	switch t.Type {
	case TransactionTypeDeposit:
		return "Deposit"
	case TransactionTypeBet:
		return "Lottery ticket"
	case TransactionTypeWin:
		return "Lottery win"
	case TransactionTypeWithdraw:
		return "Withdrawal"
	case TransactionTypeWithdrawRefund:
		return "Withdrawal refund"
	default:
		return string(t.Type)
	}
}

// ValidateTransaction performs basic validation on the transaction
func (t *Transaction) ValidateTransaction() error {
	if !t.Type.IsValid() {
		return errors.New("unknown transaction type")
	}
	if t.Amount == 0 {
		return errors.New("amount cannot be zero")
	}

	if t.Type.IsCredit() && t.BalanceAfter != t.BalanceBefore+t.Amount {
		return errors.New("balance calculation is inconsistent")
	}
	if t.Type.IsDebit() && (t.BalanceBefore < t.Amount || t.BalanceAfter != t.BalanceBefore-t.Amount) {
		return errors.New("balance calculation is inconsistent")
	}

	return nil
}
