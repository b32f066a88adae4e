package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DepositChecker reconciles deposits for every account
type DepositChecker interface {
	CheckAllDeposits(ctx context.Context) (int, error)
}

// DepositPollWorker periodically reconciles deposits for all accounts
type DepositPollWorker struct {
	checker  DepositChecker
	interval time.Duration
}

// NewDepositPollWorker creates a new deposit poll worker
func NewDepositPollWorker(checker DepositChecker, interval time.Duration) *DepositPollWorker {
	return &DepositPollWorker{
		checker:  checker,
		interval: interval,
	}
}

// Start runs the worker until ctx is cancelled or the returned stop function is called
func (w *DepositPollWorker) Start(ctx context.Context) func() {
	return runPeriodically(ctx, "Deposit poll worker", w.interval, func(ctx context.Context) {
		credited, err := w.checker.CheckAllDeposits(ctx)
		if err != nil {
			log.WithError(err).Error("Deposit poll failed")
			return
		}
		if credited > 0 {
			log.WithField("credited", credited).Info("Deposit poll credited deposits")
		}
	})
}

// runPeriodically calls fn immediately and then on every tick
func runPeriodically(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context)) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", interval).Infof("%s started", name)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			fn(ctx)

			select {
			case <-ctx.Done():
				log.Infof("%s shutting down (context cancelled)...", name)
				return
			case <-stopChan:
				log.Infof("%s shutting down (stop requested)...", name)
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		close(stopChan)
		<-done
	}
}
