package entities

import "time"

// DepositStatus is the reconciliation state of an inbound transfer
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusFailed    DepositStatus = "failed"
)

// Deposit records an external ledger transfer credited to an account.
// TxHash is globally unique and makes crediting idempotent.
type Deposit struct {
	ID         int64         `db:"id"`
	TxHash     string        `db:"tx_hash"`
	Owner      Principal     `db:"owner"`
	Amount     uint64        `db:"amount"`
	Status     DepositStatus `db:"status"`
	BlockIndex uint64        `db:"block_index"`
	Swept      bool          `db:"swept"`
	CreatedAt  time.Time     `db:"created_at"`
}

// IsConfirmed returns true once the deposit has been credited
func (d *Deposit) IsConfirmed() bool {
	return d.Status == DepositStatusConfirmed
}

// LedgerTransfer is a transfer as observed on the external ledger
type LedgerTransfer struct {
	BlockIndex uint64        `json:"block_index"`
	TxHash     string        `json:"tx_hash"`
	From       LedgerAccount `json:"from"`
	To         LedgerAccount `json:"to"`
	Amount     uint64        `json:"amount"`
	Fee        uint64        `json:"fee"`
	Memo       []byte        `json:"memo,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// TransferPage is one page of transfers returned by the ledger
type TransferPage struct {
	Transfers []LedgerTransfer `json:"transfers"`
	// NextStart is the block index to resume scanning from
	NextStart uint64 `json:"next_start"`
}

// TransferArgs describes an outbound ledger transfer
type TransferArgs struct {
	FromSubaccount *Subaccount
	To             LedgerAccount
	Amount         uint64
	Fee            *uint64
	Memo           []byte
	CreatedAtTime  *uint64 // ns; with Memo forms the ledger deduplication key
}

// TransferErrorKind classifies rejected ledger transfers
type TransferErrorKind string

const (
	TransferErrorBadFee             TransferErrorKind = "bad_fee"
	TransferErrorInsufficientFunds  TransferErrorKind = "insufficient_funds"
	TransferErrorTooOld             TransferErrorKind = "too_old"
	TransferErrorCreatedInFuture    TransferErrorKind = "created_in_future"
	TransferErrorDuplicate          TransferErrorKind = "duplicate"
	TransferErrorTemporarilyUnavail TransferErrorKind = "temporarily_unavailable"
	TransferErrorGeneric            TransferErrorKind = "generic"
)

// TransferError is a ledger-level rejection of a transfer
type TransferError struct {
	Kind TransferErrorKind
	// DuplicateOf holds the block index of the original transfer for Duplicate
	DuplicateOf uint64
	Message     string
}

func (e *TransferError) Error() string {
	if e.Message != "" {
		return "ledger rejected transfer: " + string(e.Kind) + ": " + e.Message
	}
	return "ledger rejected transfer: " + string(e.Kind)
}

// IsTransient returns true if resubmitting the same transfer may succeed
func (e *TransferError) IsTransient() bool {
	return e.Kind == TransferErrorTemporarilyUnavail
}
