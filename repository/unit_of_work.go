package repository

import (
	"context"
	"errors"
	"fmt"

	"btclotto/application"
	"btclotto/database"
	"btclotto/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements application.UnitOfWork over a single pgx transaction
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher application.TransactionalEventPublisher
	accountRepo            interfaces.AccountRepository
	transactionRepo        interfaces.TransactionRepository
	winningRepo            interfaces.WinningRepository
	roundRepo              interfaces.RoundRepository
	depositRepo            interfaces.DepositRepository
	withdrawalRepo         interfaces.WithdrawalRepository
	adminRepo              interfaces.AdminRepository
	statsRepo              interfaces.StatsRepository
}

// UnitOfWorkFactory creates transaction scoped units of work
type UnitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

// CreateWithPublisher creates a new UnitOfWork whose events are buffered in
// the given transactional publisher
func (f *UnitOfWorkFactory) CreateWithPublisher(transactionalPublisher application.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction. The transaction outlives cancellation of
// ctx so a write that has started applying ends in commit or rollback.
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("transaction already started")
	}

	ctx = context.WithoutCancel(ctx)
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.accountRepo = NewAccountRepositoryWithTx(tx)
	u.transactionRepo = NewTransactionRepositoryWithTx(tx)
	u.winningRepo = NewWinningRepositoryWithTx(tx)
	u.roundRepo = NewRoundRepositoryWithTx(tx)
	u.depositRepo = NewDepositRepositoryWithTx(tx)
	u.withdrawalRepo = NewWithdrawalRepositoryWithTx(tx)
	u.adminRepo = NewAdminRepositoryWithTx(tx)
	u.statsRepo = NewStatsRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction, then flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return errors.New("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Events are best effort once the transaction has committed
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

func (u *unitOfWork) TransactionRepository() interfaces.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

func (u *unitOfWork) WinningRepository() interfaces.WinningRepository {
	if u.winningRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.winningRepo
}

func (u *unitOfWork) RoundRepository() interfaces.RoundRepository {
	if u.roundRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roundRepo
}

func (u *unitOfWork) DepositRepository() interfaces.DepositRepository {
	if u.depositRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.depositRepo
}

func (u *unitOfWork) WithdrawalRepository() interfaces.WithdrawalRepository {
	if u.withdrawalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.withdrawalRepo
}

func (u *unitOfWork) AdminRepository() interfaces.AdminRepository {
	if u.adminRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.adminRepo
}

func (u *unitOfWork) StatsRepository() interfaces.StatsRepository {
	if u.statsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.statsRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("transactional publisher not configured")
	}
	return u.transactionalPublisher
}
