package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/domain/entities"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const maxLedgerRetries = 4

func defaultBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = 10 * time.Second
	return policy
}

// isTransient reports whether repeating an external call may succeed
func isTransient(err error) bool {
	var transferErr *entities.TransferError
	if errors.As(err, &transferErr) {
		return transferErr.IsTransient()
	}
	return errors.Is(err, entities.ErrExternalCallFailed)
}

// callLedger runs an external ledger call with bounded exponential backoff.
// Only transient failures are retried.
func (l *Ledger) callLedger(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(l.newBackOff(), maxLedgerRetries), ctx)

	err := backoff.RetryNotify(
		func() error {
			err := call(ctx)
			if err != nil && !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
		func(err error, wait time.Duration) {
			log.WithFields(log.Fields{
				"operation": operation,
				"wait":      wait,
				"error":     err,
			}).Warn("Ledger call failed, retrying")
		},
	)
	if err != nil {
		l.metrics.RecordExternalCallFailure(operation)
		var transferErr *entities.TransferError
		if !errors.As(err, &transferErr) && !errors.Is(err, entities.ErrExternalCallFailed) {
			return fmt.Errorf("%w: %s: %w", entities.ErrExternalCallFailed, operation, err)
		}
	}
	return err
}
