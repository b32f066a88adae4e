package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// recoveryBatchSize bounds the withdrawals resubmitted per pass
const recoveryBatchSize = 50

// WithdrawalRecoverer resolves withdrawals left pending
type WithdrawalRecoverer interface {
	RecoverWithdrawals(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

// WithdrawalRecoveryWorker resubmits withdrawals whose transfer outcome was
// never recorded, for example after a crash between the transfer and the
// second transaction
type WithdrawalRecoveryWorker struct {
	recoverer WithdrawalRecoverer
	interval  time.Duration
}

// NewWithdrawalRecoveryWorker creates a new withdrawal recovery worker
func NewWithdrawalRecoveryWorker(recoverer WithdrawalRecoverer, interval time.Duration) *WithdrawalRecoveryWorker {
	return &WithdrawalRecoveryWorker{
		recoverer: recoverer,
		interval:  interval,
	}
}

// Start runs the worker until ctx is cancelled or the returned stop function is called
func (w *WithdrawalRecoveryWorker) Start(ctx context.Context) func() {
	return runPeriodically(ctx, "Withdrawal recovery worker", w.interval, func(ctx context.Context) {
		// Withdrawals younger than one interval may still be in flight.
		if _, err := w.recoverer.RecoverWithdrawals(ctx, w.interval, recoveryBatchSize); err != nil {
			log.WithError(err).Error("Withdrawal recovery failed")
		}
	})
}
