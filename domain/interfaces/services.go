package interfaces

import (
	"context"
	"time"

	"btclotto/domain/entities"

	"github.com/google/uuid"
)

// AccountService defines the interface for the account store
type AccountService interface {
	CreateUser(ctx context.Context, owner entities.Principal) (*entities.Account, error)

	// GetUser returns the account with its histories, nil if absent
	GetUser(ctx context.Context, owner entities.Principal) (*entities.Account, error)

	Credit(ctx context.Context, owner entities.Principal, amount uint64, txType entities.TransactionType, metadata map[string]any) (*entities.Transaction, error)
	Debit(ctx context.Context, owner entities.Principal, amount uint64, txType entities.TransactionType, metadata map[string]any) (*entities.Transaction, error)

	// Freeze quarantines an account after an invariant violation
	Freeze(ctx context.Context, owner entities.Principal, reason string) error

	// DepositAccount returns the stable treasury account the owner deposits into
	DepositAccount(owner entities.Principal) (entities.LedgerAccount, error)
}

// RoundService defines the interface for the round manager
type RoundService interface {
	// CurrentRound returns the live round, settling an expired one and opening its successor first
	CurrentRound(ctx context.Context, now time.Time) (*entities.Round, error)

	GetRound(ctx context.Context, id int64) (*entities.Round, error)

	// RegisterParticipant records a paid entry while the round is active
	RegisterParticipant(ctx context.Context, roundID int64, owner entities.Principal, payment *entities.Transaction, now time.Time) (*entities.RoundEntry, error)

	// ManualTriggerDraw settles the current round regardless of its end time
	ManualTriggerDraw(ctx context.Context, caller entities.Principal, now time.Time) (*DrawResult, error)
}

// DrawService defines the interface for the draw engine
type DrawService interface {
	// Settle draws the round and opens the next one in the same transaction.
	// Returns entities.ErrAlreadySettled if another caller won the race.
	Settle(ctx context.Context, roundID int64, now time.Time) (*DrawResult, error)

	// OpenRound opens a new round starting now unless one is already open
	OpenRound(ctx context.Context, now time.Time) (*entities.Round, error)
}

// BettingService defines the interface for bet admission
type BettingService interface {
	PlaceBet(ctx context.Context, owner entities.Principal, now time.Time) (*BetResult, error)
}

// DepositService defines the interface for applying observed ledger transfers
type DepositService interface {
	// ApplyTransfer credits a transfer into the owner's deposit account exactly once.
	// Returns entities.ErrDuplicateDeposit when the tx hash was already recorded.
	ApplyTransfer(ctx context.Context, owner entities.Principal, transfer entities.LedgerTransfer) (*entities.Deposit, error)

	AdvanceCursor(ctx context.Context, owner entities.Principal, cursor uint64) error
	MarkSwept(ctx context.Context, deposit *entities.Deposit) error
	ListDeposits(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error)
}

// WithdrawalService defines the interface for the withdrawal saga steps
type WithdrawalService interface {
	// Initiate debits the owner and records a pending withdrawal
	Initiate(ctx context.Context, owner entities.Principal, amount, fee uint64, destination entities.LedgerAccount, now time.Time) (*entities.Withdrawal, error)

	// Complete records a successful ledger transfer
	Complete(ctx context.Context, id uuid.UUID, blockIndex uint64) (*entities.Withdrawal, error)

	// Fail refunds the owner and records the failure
	Fail(ctx context.Context, id uuid.UUID, reason string) (*entities.Withdrawal, error)

	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Withdrawal, error)
	ListWithdrawals(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error)
}

// StatsService defines the interface for the stats aggregator
type StatsService interface {
	GetStats(ctx context.Context) (*entities.SystemStats, error)
}

// AdminService defines the interface for the admin capability
type AdminService interface {
	InitializeAuth(ctx context.Context, caller entities.Principal) error
	IsAdmin(ctx context.Context, caller entities.Principal) (bool, error)
}

// DrawResult contains the outcome of a settlement
type DrawResult struct {
	Round     *entities.Round // The settled round
	Winner    *entities.Principal
	PrizePool uint64
	NextRound *entities.Round
}

// BetResult contains the outcome of a placed bet
type BetResult struct {
	Round       *entities.Round
	Entry       *entities.RoundEntry
	Transaction *entities.Transaction
	NewBalance  uint64
}
