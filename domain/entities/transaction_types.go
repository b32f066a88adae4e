package entities

// TransactionType represents the type of balance change
type TransactionType string

const (
	// Ledger movements
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeWithdraw       TransactionType = "withdraw"
	TransactionTypeWithdrawRefund TransactionType = "withdraw_refund"

	// Lottery transactions
	TransactionTypeBet TransactionType = "bet"
	TransactionTypeWin TransactionType = "win"
)

// IsCredit returns true if the transaction type increases the balance
func (tt TransactionType) IsCredit() bool {
	return tt == TransactionTypeDeposit ||
		tt == TransactionTypeWin ||
		tt == TransactionTypeWithdrawRefund
}

// IsDebit returns true if the transaction type decreases the balance
func (tt TransactionType) IsDebit() bool {
	return tt == TransactionTypeBet ||
		tt == TransactionTypeWithdraw
}

// IsValid returns true for known transaction types
func (tt TransactionType) IsValid() bool {
	return tt.IsCredit() || tt.IsDebit()
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
