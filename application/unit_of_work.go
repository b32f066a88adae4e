package application

import (
	"context"

	"btclotto/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	AccountRepository() interfaces.AccountRepository
	TransactionRepository() interfaces.TransactionRepository
	WinningRepository() interfaces.WinningRepository
	RoundRepository() interfaces.RoundRepository
	DepositRepository() interfaces.DepositRepository
	WithdrawalRepository() interfaces.WithdrawalRepository
	AdminRepository() interfaces.AdminRepository
	StatsRepository() interfaces.StatsRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// TransactionalEventPublisher buffers events until the surrounding transaction commits
type TransactionalEventPublisher interface {
	interfaces.EventPublisher

	// Flush publishes all buffered events
	Flush(ctx context.Context) error

	// Discard drops all buffered events
	Discard()
}
