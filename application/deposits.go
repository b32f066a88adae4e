package application

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/services"

	log "github.com/sirupsen/logrus"
)

// DepositPageSize bounds the transfers fetched from the ledger per call
const DepositPageSize = 100

// DepositReport summarizes one reconciliation pass for an owner
type DepositReport struct {
	Owner    entities.Principal  `json:"owner"`
	Credited []*entities.Deposit `json:"credited"`
	Cursor   uint64              `json:"cursor"`
}

// CheckDeposits credits every new transfer into the owner's deposit account.
// The ledger is queried outside any transaction; each transfer is then applied
// in its own short transaction keyed by tx hash, so repeating a check never
// credits a transfer twice.
func (l *Ledger) CheckDeposits(ctx context.Context, owner entities.Principal) (*DepositReport, error) {
	account, err := l.account(ctx, owner)
	if err != nil {
		return nil, err
	}

	depositAccount := account.DepositAccount(l.settings.Treasury)
	report := &DepositReport{
		Owner:    owner,
		Credited: make([]*entities.Deposit, 0),
		Cursor:   account.DepositCursor,
	}

	for {
		page, err := l.listTransfers(ctx, depositAccount, report.Cursor)
		if err != nil {
			return report, err
		}

		for _, transfer := range page.Transfers {
			deposit, err := l.applyTransfer(ctx, owner, transfer)
			if err != nil {
				return report, err
			}
			if deposit != nil {
				report.Credited = append(report.Credited, deposit)
			}
		}

		if page.NextStart <= report.Cursor {
			break
		}
		next := page.NextStart
		if err := l.write(ctx, func(svc *domainServices) error {
			return svc.deposit.AdvanceCursor(ctx, owner, next)
		}); err != nil {
			return report, err
		}
		report.Cursor = next

		if len(page.Transfers) < DepositPageSize {
			break
		}
	}

	if len(report.Credited) > 0 {
		log.WithFields(log.Fields{
			"owner":    owner,
			"credited": len(report.Credited),
			"cursor":   report.Cursor,
		}).Info("Deposits reconciled")
	}

	if l.settings.ConsolidateDeposits {
		for _, deposit := range report.Credited {
			if err := l.sweep(ctx, deposit, account.DepositSubaccount); err != nil {
				log.WithError(err).WithField("txHash", deposit.TxHash).Warn("Failed to consolidate deposit")
			}
		}
	}

	return report, nil
}

// CheckAllDeposits reconciles every account and retries pending consolidations.
// Returns the number of credited deposits.
func (l *Ledger) CheckAllDeposits(ctx context.Context) (int, error) {
	var owners []entities.Principal
	err := l.readRepositories(ctx, func(uow UnitOfWork) error {
		var err error
		owners, err = uow.AccountRepository().ListOwners(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	credited := 0
	var failures int
	for _, owner := range owners {
		if ctx.Err() != nil {
			return credited, ctx.Err()
		}
		report, err := l.CheckDeposits(ctx, owner)
		if report != nil {
			credited += len(report.Credited)
		}
		if err != nil {
			failures++
			log.WithError(err).WithField("owner", owner).Warn("Deposit reconciliation failed")
		}
	}

	if l.settings.ConsolidateDeposits {
		if err := l.ConsolidatePending(ctx, DepositPageSize); err != nil {
			log.WithError(err).Warn("Failed to consolidate pending deposits")
		}
	}

	log.WithFields(log.Fields{
		"accounts": len(owners),
		"credited": credited,
		"failures": failures,
	}).Debug("Deposit poll completed")

	return credited, nil
}

// ListDeposits returns the owner's most recent deposits
func (l *Ledger) ListDeposits(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error) {
	var deposits []*entities.Deposit
	err := l.read(ctx, func(svc *domainServices) error {
		var err error
		deposits, err = svc.deposit.ListDeposits(ctx, owner, limit)
		return err
	})
	return deposits, err
}

// ConsolidatePending sweeps confirmed deposits that are still in their deposit subaccounts
func (l *Ledger) ConsolidatePending(ctx context.Context, limit int) error {
	var unswept []*entities.Deposit
	err := l.readRepositories(ctx, func(uow UnitOfWork) error {
		var err error
		unswept, err = uow.DepositRepository().GetUnswept(ctx, limit)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list unswept deposits: %w", err)
	}

	for _, deposit := range unswept {
		subaccount, err := entities.DepositSubaccount(deposit.Owner)
		if err != nil {
			return err
		}
		if err := l.sweep(ctx, deposit, subaccount); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) applyTransfer(ctx context.Context, owner entities.Principal, transfer entities.LedgerTransfer) (*entities.Deposit, error) {
	var deposit *entities.Deposit
	err := l.write(ctx, func(svc *domainServices) error {
		var err error
		deposit, err = svc.deposit.ApplyTransfer(ctx, owner, transfer)
		return err
	})

	switch {
	case errors.Is(err, entities.ErrDuplicateDeposit):
		log.WithField("txHash", transfer.TxHash).Debug("Transfer already credited")
		return nil, nil
	case errors.Is(err, services.ErrForeignTransfer):
		log.WithFields(log.Fields{
			"txHash": transfer.TxHash,
			"to":     transfer.To.String(),
		}).Warn("Skipping transfer not addressed to the deposit account")
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to apply transfer %s: %w", transfer.TxHash, err)
	}
	return deposit, nil
}

func (l *Ledger) listTransfers(ctx context.Context, account entities.LedgerAccount, start uint64) (*entities.TransferPage, error) {
	var page *entities.TransferPage
	err := l.callLedger(ctx, "list_transfers", func(ctx context.Context) error {
		var err error
		page, err = l.ledgerClient.ListTransfers(ctx, account, start, DepositPageSize)
		return err
	})
	return page, err
}

func (l *Ledger) fee(ctx context.Context) (uint64, error) {
	var fee uint64
	err := l.callLedger(ctx, "fee", func(ctx context.Context) error {
		var err error
		fee, err = l.ledgerClient.Fee(ctx)
		return err
	})
	return fee, err
}

// sweep moves a credited deposit from its deposit subaccount into the treasury.
// User balances are never touched; only the swept flag is recorded.
func (l *Ledger) sweep(ctx context.Context, deposit *entities.Deposit, from entities.Subaccount) error {
	fee, err := l.fee(ctx)
	if err != nil {
		return err
	}
	if deposit.Amount <= fee {
		log.WithFields(log.Fields{
			"txHash": deposit.TxHash,
			"amount": deposit.Amount,
			"fee":    fee,
		}).Debug("Deposit too small to consolidate")
		return nil
	}

	memo := make([]byte, 13)
	copy(memo, "sweep")
	binary.BigEndian.PutUint64(memo[5:], deposit.BlockIndex)
	createdAt := uint64(l.now().UnixNano())
	args := entities.TransferArgs{
		FromSubaccount: &from,
		To:             l.TreasuryAccount(),
		Amount:         deposit.Amount - fee,
		Fee:            &fee,
		Memo:           memo,
		CreatedAtTime:  &createdAt,
	}

	var blockIndex uint64
	err = l.callLedger(ctx, "sweep", func(ctx context.Context) error {
		var err error
		blockIndex, err = l.ledgerClient.Transfer(ctx, args)
		return err
	})
	var transferErr *entities.TransferError
	if errors.As(err, &transferErr) && transferErr.Kind == entities.TransferErrorDuplicate {
		blockIndex, err = transferErr.DuplicateOf, nil
	}
	if err != nil {
		return fmt.Errorf("failed to sweep deposit %s: %w", deposit.TxHash, err)
	}

	if err := l.write(ctx, func(svc *domainServices) error {
		return svc.deposit.MarkSwept(ctx, deposit)
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"txHash":     deposit.TxHash,
		"amount":     args.Amount,
		"blockIndex": blockIndex,
	}).Info("Deposit consolidated into treasury")
	return nil
}

func (l *Ledger) account(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	var account *entities.Account
	err := l.readRepositories(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = uow.AccountRepository().GetByOwner(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.ErrUnknownAccount
	}
	return account, nil
}
