package entities

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus tracks the withdrawal saga
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusFailed    WithdrawalStatus = "failed"
)

// Withdrawal is an outbound transfer of balance to the external ledger
type Withdrawal struct {
	ID            uuid.UUID        `db:"id"`
	Owner         Principal        `db:"owner"`
	Amount        uint64           `db:"amount"`        // Debited from the balance
	Fee           uint64           `db:"fee"`           // Ledger fee deducted from the transferred amount
	Destination   LedgerAccount    `db:"-"`
	Status        WithdrawalStatus `db:"status"`
	BlockIndex    *uint64          `db:"block_index"`
	FailureReason *string          `db:"failure_reason"`
	CreatedAtTime uint64           `db:"created_at_time"` // ns, ledger dedup key
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}

// NewWithdrawal creates a pending withdrawal
func NewWithdrawal(owner Principal, amount, fee uint64, destination LedgerAccount, now time.Time) *Withdrawal {
	return &Withdrawal{
		ID:            uuid.New(),
		Owner:         owner,
		Amount:        amount,
		Fee:           fee,
		Destination:   destination,
		Status:        WithdrawalStatusPending,
		CreatedAtTime: uint64(now.UnixNano()),
	}
}

// IsPending returns true while the outcome of the transfer is unknown
func (w *Withdrawal) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}

// Memo is the ledger memo identifying this withdrawal
func (w *Withdrawal) Memo() []byte {
	return w.ID[:]
}

// TransferArgs builds the ledger transfer for this withdrawal. Resubmitting the
// same arguments is deduplicated by the ledger.
func (w *Withdrawal) TransferArgs() TransferArgs {
	createdAt := w.CreatedAtTime
	fee := w.Fee
	return TransferArgs{
		To:            w.Destination,
		Amount:        w.Amount - w.Fee,
		Fee:           &fee,
		Memo:          w.Memo(),
		CreatedAtTime: &createdAt,
	}
}

// Complete marks the transfer as executed at the given block
func (w *Withdrawal) Complete(blockIndex uint64) {
	w.Status = WithdrawalStatusCompleted
	w.BlockIndex = &blockIndex
}

// Fail marks the transfer as rejected
func (w *Withdrawal) Fail(reason string) {
	w.Status = WithdrawalStatusFailed
	w.FailureReason = &reason
}
