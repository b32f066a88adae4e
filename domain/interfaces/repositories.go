package interfaces

import (
	"context"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/events"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access.
// Balance mutations are single conditional statements; callers never
// read-modify-write a balance.
type AccountRepository interface {
	// GetByOwner retrieves an account, nil if absent
	GetByOwner(ctx context.Context, owner entities.Principal) (*entities.Account, error)

	// CreateIfAbsent inserts a zero-balance account unless one exists.
	// created reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, owner entities.Principal, depositSubaccount entities.Subaccount) (account *entities.Account, created bool, err error)

	// AddBalance atomically increases the balance and returns the new balance
	AddBalance(ctx context.Context, owner entities.Principal, amount uint64) (uint64, error)

	// DeductBalance atomically decreases the balance if it covers the amount
	// and the account is not frozen, returning the new balance
	DeductBalance(ctx context.Context, owner entities.Principal, amount uint64) (uint64, error)

	// VerifyBalance checks the stored balance against the transaction history
	VerifyBalance(ctx context.Context, owner entities.Principal) (bool, error)

	// Freeze blocks further debits on an account
	Freeze(ctx context.Context, owner entities.Principal) error

	// AdvanceDepositCursor moves the next block index to scan forward, never backward
	AdvanceDepositCursor(ctx context.Context, owner entities.Principal, cursor uint64) error

	// ListOwners returns every account owner
	ListOwners(ctx context.Context) ([]entities.Principal, error)
}

// TransactionRepository defines the interface for the append-only balance history
type TransactionRepository interface {
	// Record appends a transaction, populating its ID and CreatedAt
	Record(ctx context.Context, tx *entities.Transaction) error

	// GetByOwner returns the most recent transactions first
	GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Transaction, error)
}

// WinningRepository defines the interface for the append-only winning history
type WinningRepository interface {
	Create(ctx context.Context, winning *entities.Winning) error
	GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Winning, error)
}

// RoundRepository defines the interface for round data access
type RoundRepository interface {
	// GetCurrent returns the single undrawn round, nil if there is none
	GetCurrent(ctx context.Context) (*entities.Round, error)

	// GetCurrentForUpdate is GetCurrent with a row lock held until the transaction ends
	GetCurrentForUpdate(ctx context.Context) (*entities.Round, error)

	// GetByID retrieves a round, nil if absent
	GetByID(ctx context.Context, id int64) (*entities.Round, error)

	// GetByIDForUpdate retrieves a round with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error)

	// CreateIfNoneActive inserts the round unless another undrawn round exists
	CreateIfNoneActive(ctx context.Context, round *entities.Round) (bool, error)

	// IncrementPrizePool adds to the pool of an undrawn round
	IncrementPrizePool(ctx context.Context, id int64, amount uint64) (uint64, error)

	// MarkDrawn stores the draw outcome if the round is still active.
	// Returns false when another caller already settled it.
	MarkDrawn(ctx context.Context, round *entities.Round) (bool, error)

	// AddEntry registers a paid entry
	AddEntry(ctx context.Context, entry *entities.RoundEntry) error

	// GetEntries returns entries ordered by entry id
	GetEntries(ctx context.Context, roundID int64) ([]*entities.RoundEntry, error)

	// GetNextEndTime returns the end time of the undrawn round, nil if none
	GetNextEndTime(ctx context.Context) (*time.Time, error)
}

// DepositRepository defines the interface for deposit records
type DepositRepository interface {
	// InsertIfAbsent records a pending deposit keyed by tx hash.
	// Returns false when the tx hash was already recorded.
	InsertIfAbsent(ctx context.Context, deposit *entities.Deposit) (bool, error)

	// MarkConfirmed marks a deposit credited
	MarkConfirmed(ctx context.Context, id int64) error

	// MarkSwept marks a deposit consolidated into the treasury
	MarkSwept(ctx context.Context, id int64) error

	// GetByTxHash retrieves a deposit, nil if absent
	GetByTxHash(ctx context.Context, txHash string) (*entities.Deposit, error)

	// GetByOwner returns the most recent deposits first
	GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error)

	// GetUnswept returns confirmed deposits not yet consolidated
	GetUnswept(ctx context.Context, limit int) ([]*entities.Deposit, error)
}

// WithdrawalRepository defines the interface for withdrawal records
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *entities.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error)
	Update(ctx context.Context, withdrawal *entities.Withdrawal) error

	// GetPending returns pending withdrawals created before the cutoff, oldest first
	GetPending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Withdrawal, error)

	GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error)
}

// AdminRepository defines the interface for the admin capability
type AdminRepository interface {
	// Grant is idempotent
	Grant(ctx context.Context, principal entities.Principal) error
	IsAdmin(ctx context.Context, principal entities.Principal) (bool, error)
}

// StatsRepository computes aggregates over committed state
type StatsRepository interface {
	GetSystemStats(ctx context.Context) (*entities.SystemStats, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
