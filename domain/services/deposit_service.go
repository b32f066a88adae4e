package services

import (
	"context"
	"errors"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/events"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ErrForeignTransfer is returned for transfers not addressed to the owner's deposit account
var ErrForeignTransfer = errors.New("transfer is not addressed to the owner's deposit account")

// depositService applies observed ledger transfers to accounts
type depositService struct {
	depositRepo    interfaces.DepositRepository
	accountRepo    interfaces.AccountRepository
	accountService interfaces.AccountService
	eventPublisher interfaces.EventPublisher
	treasury       entities.Principal
}

// NewDepositService creates a new deposit service
func NewDepositService(
	depositRepo interfaces.DepositRepository,
	accountRepo interfaces.AccountRepository,
	accountService interfaces.AccountService,
	eventPublisher interfaces.EventPublisher,
	treasury entities.Principal,
) interfaces.DepositService {
	return &depositService{
		depositRepo:    depositRepo,
		accountRepo:    accountRepo,
		accountService: accountService,
		eventPublisher: eventPublisher,
		treasury:       treasury,
	}
}

// ApplyTransfer records the transfer under its tx hash and credits the owner.
// The insert and the credit share the caller's transaction, so a concurrent
// reconciliation of the same tx hash either waits and finds the record or
// rolls back entirely.
func (s *depositService) ApplyTransfer(ctx context.Context, owner entities.Principal, transfer entities.LedgerTransfer) (*entities.Deposit, error) {
	account, err := s.accountRepo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.ErrUnknownAccount
	}

	if !transfer.To.Equal(account.DepositAccount(s.treasury)) {
		return nil, ErrForeignTransfer
	}
	if transfer.TxHash == "" {
		return nil, errors.New("transfer has no tx hash")
	}
	if err := entities.ValidateAmount(transfer.Amount); err != nil {
		return nil, err
	}

	deposit := &entities.Deposit{
		TxHash:     transfer.TxHash,
		Owner:      owner,
		Amount:     transfer.Amount,
		Status:     entities.DepositStatusPending,
		BlockIndex: transfer.BlockIndex,
	}
	inserted, err := s.depositRepo.InsertIfAbsent(ctx, deposit)
	if err != nil {
		return nil, fmt.Errorf("failed to record deposit: %w", err)
	}
	if !inserted {
		return nil, entities.ErrDuplicateDeposit
	}

	if _, err := s.accountService.Credit(ctx, owner, transfer.Amount, entities.TransactionTypeDeposit, map[string]any{
		"tx_hash":     transfer.TxHash,
		"block_index": transfer.BlockIndex,
	}); err != nil {
		return nil, err
	}

	if err := s.depositRepo.MarkConfirmed(ctx, deposit.ID); err != nil {
		return nil, fmt.Errorf("failed to confirm deposit: %w", err)
	}
	deposit.Status = entities.DepositStatusConfirmed

	log.WithFields(log.Fields{
		"owner":      owner,
		"txHash":     transfer.TxHash,
		"amount":     transfer.Amount,
		"blockIndex": transfer.BlockIndex,
	}).Info("Deposit confirmed")

	event := events.DepositConfirmedEvent{
		Owner:      owner,
		TxHash:     transfer.TxHash,
		Amount:     transfer.Amount,
		BlockIndex: transfer.BlockIndex,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish deposit confirmed event")
	}

	return deposit, nil
}

// AdvanceCursor stores the next ledger block index to scan for the owner
func (s *depositService) AdvanceCursor(ctx context.Context, owner entities.Principal, cursor uint64) error {
	if err := s.accountRepo.AdvanceDepositCursor(ctx, owner, cursor); err != nil {
		return fmt.Errorf("failed to advance deposit cursor: %w", err)
	}
	return nil
}

// MarkSwept records that the deposit was consolidated into the treasury
func (s *depositService) MarkSwept(ctx context.Context, deposit *entities.Deposit) error {
	if err := s.depositRepo.MarkSwept(ctx, deposit.ID); err != nil {
		return fmt.Errorf("failed to mark deposit swept: %w", err)
	}
	deposit.Swept = true
	return nil
}

// ListDeposits returns the owner's most recent deposits
func (s *depositService) ListDeposits(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error) {
	deposits, err := s.depositRepo.GetByOwner(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, nil
}
