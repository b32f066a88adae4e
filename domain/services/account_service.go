package services

import (
	"context"
	"errors"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/events"
	"btclotto/domain/interfaces"
	"btclotto/domain/utils"

	log "github.com/sirupsen/logrus"
)

// HistoryLimit caps the transaction and winning history returned with an account
const HistoryLimit = 100

// accountService implements the account store
type accountService struct {
	accountRepo     interfaces.AccountRepository
	transactionRepo interfaces.TransactionRepository
	winningRepo     interfaces.WinningRepository
	eventPublisher  interfaces.EventPublisher
	treasury        entities.Principal
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo interfaces.AccountRepository,
	transactionRepo interfaces.TransactionRepository,
	winningRepo interfaces.WinningRepository,
	eventPublisher interfaces.EventPublisher,
	treasury entities.Principal,
) interfaces.AccountService {
	return &accountService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		winningRepo:     winningRepo,
		eventPublisher:  eventPublisher,
		treasury:        treasury,
	}
}

// CreateUser creates the owner's account if absent and returns it
func (s *accountService) CreateUser(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	if owner.IsAnonymous() {
		return nil, entities.ErrAnonymousCaller
	}

	subaccount, err := entities.DepositSubaccount(owner)
	if err != nil {
		return nil, err
	}

	account, created, err := s.accountRepo.CreateIfAbsent(ctx, owner, subaccount)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if created {
		log.WithFields(log.Fields{
			"owner": owner,
		}).Info("Created account")

		event := events.UserCreatedEvent{
			Owner:          owner,
			DepositAccount: account.DepositAccount(s.treasury).String(),
		}
		if err := s.eventPublisher.Publish(event); err != nil {
			log.WithError(err).Error("Failed to publish user created event")
		}
		return account, nil
	}

	if account.Frozen {
		return nil, &entities.InvariantError{Owner: owner, Reason: "account is frozen", Corrupt: true}
	}
	consistent, err := s.accountRepo.VerifyBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to verify account balance: %w", err)
	}
	if !consistent {
		return nil, &entities.InvariantError{Owner: owner, Reason: "balance does not match transaction history", Corrupt: true}
	}

	return account, nil
}

// GetUser returns the account with its most recent history in chronological order
func (s *accountService) GetUser(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	account, err := s.accountRepo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, nil
	}

	transactions, err := s.transactionRepo.GetByOwner(ctx, owner, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	winnings, err := s.winningRepo.GetByOwner(ctx, owner, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get winning history: %w", err)
	}

	account.TransactionHistory = reversed(transactions)
	account.WinningHistory = reversed(winnings)
	return account, nil
}

// Credit atomically increases the balance and appends a history entry
func (s *accountService) Credit(ctx context.Context, owner entities.Principal, amount uint64, txType entities.TransactionType, metadata map[string]any) (*entities.Transaction, error) {
	if err := entities.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !txType.IsCredit() {
		return nil, fmt.Errorf("transaction type %s is not a credit", txType)
	}

	newBalance, err := s.accountRepo.AddBalance(ctx, owner, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account: %w", err)
	}
	if newBalance < amount {
		return nil, &entities.InvariantError{Owner: owner, Reason: "credited balance is below the credited amount"}
	}

	tx := &entities.Transaction{
		Owner:         owner,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: newBalance - amount,
		BalanceAfter:  newBalance,
		Metadata:      metadata,
	}
	if err := utils.RecordBalanceChange(ctx, s.transactionRepo, s.eventPublisher, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// Debit atomically decreases the balance and appends a history entry.
// On ErrInsufficientBalance the balance is unchanged.
func (s *accountService) Debit(ctx context.Context, owner entities.Principal, amount uint64, txType entities.TransactionType, metadata map[string]any) (*entities.Transaction, error) {
	if err := entities.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if !txType.IsDebit() {
		return nil, fmt.Errorf("transaction type %s is not a debit", txType)
	}

	newBalance, err := s.accountRepo.DeductBalance(ctx, owner, amount)
	if err != nil {
		if errors.Is(err, entities.ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit account: %w", err)
	}
	if newBalance > entities.MaxAmount-amount {
		return nil, &entities.InvariantError{Owner: owner, Reason: "debited balance exceeds storable range"}
	}

	tx := &entities.Transaction{
		Owner:         owner,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: newBalance + amount,
		BalanceAfter:  newBalance,
		Metadata:      metadata,
	}
	if err := utils.RecordBalanceChange(ctx, s.transactionRepo, s.eventPublisher, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// Freeze quarantines an account, blocking further debits
func (s *accountService) Freeze(ctx context.Context, owner entities.Principal, reason string) error {
	if err := s.accountRepo.Freeze(ctx, owner); err != nil {
		return fmt.Errorf("failed to freeze account: %w", err)
	}

	log.WithFields(log.Fields{
		"owner":  owner,
		"reason": reason,
	}).Error("Account frozen after invariant violation")

	if err := s.eventPublisher.Publish(events.AccountFrozenEvent{Owner: owner, Reason: reason}); err != nil {
		log.WithError(err).Error("Failed to publish account frozen event")
	}
	return nil
}

// DepositAccount derives the treasury subaccount the owner deposits into
func (s *accountService) DepositAccount(owner entities.Principal) (entities.LedgerAccount, error) {
	subaccount, err := entities.DepositSubaccount(owner)
	if err != nil {
		return entities.LedgerAccount{}, err
	}
	return entities.LedgerAccount{Owner: s.treasury, Subaccount: subaccount}, nil
}

func reversed[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}
