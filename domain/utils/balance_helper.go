package utils

import (
	"context"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/events"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordBalanceChange validates and records a transaction and emits a balance change event.
// This is the single entry point for balance history in the system; a record that
// does not add up is an invariant violation on the owner's account.
func RecordBalanceChange(ctx context.Context, transactionRepo interfaces.TransactionRepository, eventPublisher interfaces.EventPublisher, tx *entities.Transaction) error {
	if err := tx.ValidateTransaction(); err != nil {
		return &entities.InvariantError{Owner: tx.Owner, Reason: err.Error()}
	}

	if err := transactionRepo.Record(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	event := events.BalanceChangeEvent{
		Owner:           tx.Owner,
		OldBalance:      tx.BalanceBefore,
		NewBalance:      tx.BalanceAfter,
		TransactionType: tx.Type,
		Amount:          tx.Amount,
		TransactionID:   tx.ID,
	}
	log.WithFields(log.Fields{
		"owner":           event.Owner,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"amount":          event.Amount,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}
