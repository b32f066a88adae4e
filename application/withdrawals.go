package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/domain/entities"

	log "github.com/sirupsen/logrus"
)

// ErrWithdrawalPending is returned when the outcome of a withdrawal transfer is
// unknown. The withdrawal stays pending until recovery resolves it.
var ErrWithdrawalPending = errors.New("withdrawal outcome unknown, left pending")

// Withdraw moves balance to an external ledger account. The balance is debited
// and a pending withdrawal recorded in one transaction; the transfer runs with
// no transaction open; its outcome is recorded in a second transaction, with a
// compensating refund when the ledger rejects the transfer.
func (l *Ledger) Withdraw(ctx context.Context, owner entities.Principal, amount uint64, destination *entities.LedgerAccount) (*entities.Withdrawal, error) {
	to := entities.LedgerAccount{Owner: owner}
	if destination != nil {
		to = *destination
	}

	fee, err := l.fee(ctx)
	if err != nil {
		return nil, err
	}

	var withdrawal *entities.Withdrawal
	err = l.write(ctx, func(svc *domainServices) error {
		var err error
		withdrawal, err = svc.withdrawal.Initiate(ctx, owner, amount, fee, to, l.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawal.ID,
		"owner":        owner,
		"amount":       amount,
		"destination":  to.String(),
	}).Info("Withdrawal initiated")

	return l.executeWithdrawal(context.WithoutCancel(ctx), withdrawal)
}

// ListWithdrawals returns the owner's most recent withdrawals
func (l *Ledger) ListWithdrawals(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error) {
	var withdrawals []*entities.Withdrawal
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		withdrawals, err = svc.withdrawal.ListWithdrawals(ctx, owner, limit)
		return err
	})
	return withdrawals, err
}

// RecoverWithdrawals resubmits withdrawals left pending for longer than
// minAge. The ledger deduplicates resubmissions, so a transfer that already
// went through resolves to its original block.
func (l *Ledger) RecoverWithdrawals(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	var pending []*entities.Withdrawal
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		pending, err = svc.withdrawal.ListPending(ctx, l.now().Add(-minAge), limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, withdrawal := range pending {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		result, err := l.executeWithdrawal(ctx, withdrawal)
		if errors.Is(err, ErrWithdrawalPending) {
			continue
		}
		if result != nil && !result.IsPending() {
			resolved++
		}
	}

	if len(pending) > 0 {
		log.WithFields(log.Fields{
			"pending":  len(pending),
			"resolved": resolved,
		}).Info("Withdrawal recovery pass completed")
	}
	return resolved, nil
}

// executeWithdrawal submits the transfer and records its outcome
func (l *Ledger) executeWithdrawal(ctx context.Context, withdrawal *entities.Withdrawal) (*entities.Withdrawal, error) {
	args := withdrawal.TransferArgs()

	var blockIndex uint64
	err := l.callLedger(ctx, "withdraw", func(ctx context.Context) error {
		var err error
		blockIndex, err = l.ledgerClient.Transfer(ctx, args)
		return err
	})

	var transferErr *entities.TransferError
	if errors.As(err, &transferErr) && transferErr.Kind == entities.TransferErrorDuplicate {
		blockIndex, err = transferErr.DuplicateOf, nil
	}

	if err == nil {
		return l.completeWithdrawal(ctx, withdrawal, blockIndex)
	}

	// Past the dedup window the transfer can no longer execute, so the ledger
	// history decides between completed and refunded.
	if errors.As(err, &transferErr) && transferErr.Kind == entities.TransferErrorTooOld {
		return l.resolveExpiredWithdrawal(ctx, withdrawal, transferErr)
	}

	// Only a definite rejection may be refunded; anything else could still execute.
	if !errors.As(err, &transferErr) || transferErr.IsTransient() {
		log.WithFields(log.Fields{
			"withdrawalID": withdrawal.ID,
			"owner":        withdrawal.Owner,
			"error":        err,
		}).Warn("Withdrawal transfer outcome unknown")
		return withdrawal, fmt.Errorf("%w: %s: %w", ErrWithdrawalPending, withdrawal.ID, err)
	}

	failed, failErr := l.failWithdrawal(ctx, withdrawal, transferErr.Error())
	if failErr != nil {
		return nil, failErr
	}
	return failed, fmt.Errorf("%w: %w", entities.ErrWithdrawFailed, err)
}

func (l *Ledger) resolveExpiredWithdrawal(ctx context.Context, withdrawal *entities.Withdrawal, cause *entities.TransferError) (*entities.Withdrawal, error) {
	blockIndex, found, err := l.findWithdrawalBlock(ctx, withdrawal)
	if err != nil {
		log.WithFields(log.Fields{
			"withdrawalID": withdrawal.ID,
			"error":        err,
		}).Warn("Failed to search ledger for expired withdrawal")
		return withdrawal, fmt.Errorf("%w: %s: %w", ErrWithdrawalPending, withdrawal.ID, err)
	}
	if found {
		log.WithFields(log.Fields{
			"withdrawalID": withdrawal.ID,
			"blockIndex":   blockIndex,
		}).Info("Expired withdrawal found on ledger")
		return l.completeWithdrawal(ctx, withdrawal, blockIndex)
	}

	failed, failErr := l.failWithdrawal(ctx, withdrawal, cause.Error())
	if failErr != nil {
		return nil, failErr
	}
	return failed, fmt.Errorf("%w: %w", entities.ErrWithdrawFailed, cause)
}

// findWithdrawalBlock scans the destination's incoming transfers for the block
// paid from the treasury with this withdrawal's memo
func (l *Ledger) findWithdrawalBlock(ctx context.Context, withdrawal *entities.Withdrawal) (uint64, bool, error) {
	treasury := l.TreasuryAccount()
	memo := withdrawal.Memo()

	var start uint64
	for {
		page, err := l.listTransfers(ctx, withdrawal.Destination, start)
		if err != nil {
			return 0, false, err
		}
		for _, transfer := range page.Transfers {
			if transfer.From.Equal(treasury) && bytes.Equal(transfer.Memo, memo) {
				return transfer.BlockIndex, true, nil
			}
		}
		if page.NextStart <= start {
			return 0, false, nil
		}
		start = page.NextStart
	}
}

func (l *Ledger) completeWithdrawal(ctx context.Context, withdrawal *entities.Withdrawal, blockIndex uint64) (*entities.Withdrawal, error) {
	var completed *entities.Withdrawal
	err := l.write(ctx, func(svc *domainServices) error {
		var err error
		completed, err = svc.withdrawal.Complete(ctx, withdrawal.ID, blockIndex)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record completed withdrawal %s: %w", withdrawal.ID, err)
	}
	return completed, nil
}

func (l *Ledger) failWithdrawal(ctx context.Context, withdrawal *entities.Withdrawal, reason string) (*entities.Withdrawal, error) {
	var failed *entities.Withdrawal
	err := l.write(ctx, func(svc *domainServices) error {
		var err error
		failed, err = svc.withdrawal.Fail(ctx, withdrawal.ID, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refund withdrawal %s: %w", withdrawal.ID, err)
	}
	return failed, nil
}
