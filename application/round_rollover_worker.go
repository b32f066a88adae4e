package application

import (
	"context"
	"time"

	"btclotto/domain/entities"

	log "github.com/sirupsen/logrus"
)

// RoundScheduler is the part of the ledger the rollover worker drives
type RoundScheduler interface {
	CurrentRound(ctx context.Context) (*entities.Round, error)
	NextRoundEnd(ctx context.Context) (*time.Time, error)
}

// RoundRolloverWorker settles each round when its end time passes, so rounds
// roll over even when nobody calls the API. Settlement goes through the same
// idempotent path as the lazy rollover on reads.
type RoundRolloverWorker struct {
	scheduler  RoundScheduler
	retryDelay time.Duration
}

// NewRoundRolloverWorker creates a new round rollover worker
func NewRoundRolloverWorker(scheduler RoundScheduler) *RoundRolloverWorker {
	return &RoundRolloverWorker{
		scheduler:  scheduler,
		retryDelay: 5 * time.Second,
	}
}

// Start runs the worker until ctx is cancelled or the returned stop function is called
func (w *RoundRolloverWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.Info("Round rollover worker started")

		for {
			wait := w.step(ctx)

			select {
			case <-ctx.Done():
				log.Info("Round rollover worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Round rollover worker shutting down (stop requested)...")
				return
			case <-time.After(wait):
			}
		}
	}()

	return func() {
		close(stopChan)
		<-done
	}
}

// step rolls over a due round and returns how long to sleep before the next check
func (w *RoundRolloverWorker) step(ctx context.Context) time.Duration {
	end, err := w.scheduler.NextRoundEnd(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to get next round end time")
		return w.retryDelay
	}

	if end != nil {
		if wait := time.Until(*end); wait > 0 {
			log.WithFields(log.Fields{
				"endTime": end.UTC(),
				"wait":    wait,
			}).Debug("Waiting for round to end")
			return wait
		}
	}

	round, err := w.scheduler.CurrentRound(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to roll over round")
		return w.retryDelay
	}

	log.WithFields(log.Fields{
		"roundID": round.ID,
		"endTime": round.EndTime.UTC(),
	}).Info("Round open")
	return time.Until(round.EndTime)
}
