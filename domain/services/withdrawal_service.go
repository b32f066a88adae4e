package services

import (
	"context"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/events"
	"btclotto/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// withdrawalService implements the local steps of the withdrawal saga
type withdrawalService struct {
	withdrawalRepo interfaces.WithdrawalRepository
	accountService interfaces.AccountService
	eventPublisher interfaces.EventPublisher
	treasury       entities.Principal
}

// NewWithdrawalService creates a new withdrawal service
func NewWithdrawalService(
	withdrawalRepo interfaces.WithdrawalRepository,
	accountService interfaces.AccountService,
	eventPublisher interfaces.EventPublisher,
	treasury entities.Principal,
) interfaces.WithdrawalService {
	return &withdrawalService{
		withdrawalRepo: withdrawalRepo,
		accountService: accountService,
		eventPublisher: eventPublisher,
		treasury:       treasury,
	}
}

// Initiate debits the full amount and records a pending withdrawal. The
// destination receives amount minus the ledger fee.
func (s *withdrawalService) Initiate(ctx context.Context, owner entities.Principal, amount, fee uint64, destination entities.LedgerAccount, now time.Time) (*entities.Withdrawal, error) {
	if err := entities.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if amount <= fee {
		return nil, fmt.Errorf("%w: amount %d does not cover the ledger fee %d", entities.ErrInvalidAmount, amount, fee)
	}
	if destination.Owner == s.treasury {
		return nil, fmt.Errorf("%w: cannot withdraw to a treasury account", entities.ErrInvalidDestination)
	}
	if destination.Owner.IsAnonymous() {
		return nil, fmt.Errorf("%w: cannot withdraw to the anonymous principal", entities.ErrInvalidDestination)
	}

	withdrawal := entities.NewWithdrawal(owner, amount, fee, destination, now)

	if _, err := s.accountService.Debit(ctx, owner, amount, entities.TransactionTypeWithdraw, map[string]any{
		"withdrawal_id": withdrawal.ID.String(),
		"destination":   destination.String(),
	}); err != nil {
		return nil, err
	}

	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	s.publish(withdrawal)
	return withdrawal, nil
}

// Complete records the executed transfer. Already resolved withdrawals are returned unchanged.
func (s *withdrawalService) Complete(ctx context.Context, id uuid.UUID, blockIndex uint64) (*entities.Withdrawal, error) {
	withdrawal, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	if !withdrawal.IsPending() {
		return withdrawal, nil
	}

	withdrawal.Complete(blockIndex)
	if err := s.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawal.ID,
		"owner":        withdrawal.Owner,
		"amount":       withdrawal.Amount,
		"blockIndex":   blockIndex,
	}).Info("Withdrawal completed")

	s.publish(withdrawal)
	return withdrawal, nil
}

// Fail applies the compensating credit and records the failure. Already
// resolved withdrawals are returned unchanged so the refund happens at most once.
func (s *withdrawalService) Fail(ctx context.Context, id uuid.UUID, reason string) (*entities.Withdrawal, error) {
	withdrawal, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	if !withdrawal.IsPending() {
		return withdrawal, nil
	}

	if _, err := s.accountService.Credit(ctx, withdrawal.Owner, withdrawal.Amount, entities.TransactionTypeWithdrawRefund, map[string]any{
		"withdrawal_id": withdrawal.ID.String(),
		"reason":        reason,
	}); err != nil {
		return nil, fmt.Errorf("failed to refund withdrawal: %w", err)
	}

	withdrawal.Fail(reason)
	if err := s.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawal.ID,
		"owner":        withdrawal.Owner,
		"amount":       withdrawal.Amount,
		"reason":       reason,
	}).Warn("Withdrawal failed, balance refunded")

	s.publish(withdrawal)
	return withdrawal, nil
}

// ListPending returns pending withdrawals created before the cutoff
func (s *withdrawalService) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Withdrawal, error) {
	withdrawals, err := s.withdrawalRepo.GetPending(ctx, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	return withdrawals, nil
}

// ListWithdrawals returns the owner's most recent withdrawals
func (s *withdrawalService) ListWithdrawals(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error) {
	withdrawals, err := s.withdrawalRepo.GetByOwner(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (s *withdrawalService) lock(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock withdrawal: %w", err)
	}
	if withdrawal == nil {
		return nil, fmt.Errorf("withdrawal %s not found", id)
	}
	return withdrawal, nil
}

func (s *withdrawalService) publish(withdrawal *entities.Withdrawal) {
	event := events.WithdrawalChangedEvent{
		WithdrawalID: withdrawal.ID.String(),
		Owner:        withdrawal.Owner,
		Amount:       withdrawal.Amount,
		Status:       withdrawal.Status,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish withdrawal changed event")
	}
}
