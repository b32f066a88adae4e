package application

import (
	"context"

	"btclotto/domain/entities"
	"btclotto/domain/events"

	log "github.com/sirupsen/logrus"
)

// LocalEventRegistry accepts in-process event handlers
type LocalEventRegistry interface {
	RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error)
}

// RegisterApplicationSubscriptions wires in-process reactions to committed events:
// stats cache invalidation and activity metrics. cache may be nil.
func RegisterApplicationSubscriptions(registry LocalEventRegistry, cache StatsCache, metrics MetricsRecorder) {
	if cache != nil {
		invalidate := func(ctx context.Context, event events.Event) error {
			if err := cache.Invalidate(ctx); err != nil {
				log.WithError(err).WithField("eventType", event.Type()).Warn("Failed to invalidate stats cache")
				return err
			}
			return nil
		}
		for _, eventType := range []events.EventType{
			events.EventTypeRoundSettled,
			events.EventTypeDepositConfirmed,
			events.EventTypeUserCreated,
			events.EventTypeBetPlaced,
		} {
			registry.RegisterLocalHandler(eventType, invalidate)
		}
	}

	if metrics == nil {
		return
	}

	registry.RegisterLocalHandler(events.EventTypeBetPlaced, func(ctx context.Context, event events.Event) error {
		bet, err := AssertEventType[events.BetPlacedEvent](event, "BetPlacedEvent")
		if err != nil {
			return err
		}
		metrics.RecordBet(bet.Amount)
		return nil
	})

	registry.RegisterLocalHandler(events.EventTypeRoundSettled, func(ctx context.Context, event events.Event) error {
		settled, err := AssertEventType[events.RoundSettledEvent](event, "RoundSettledEvent")
		if err != nil {
			return err
		}
		metrics.RecordSettlement(settled.EntryCount, settled.PrizePool, settled.Winner != nil)
		return nil
	})

	registry.RegisterLocalHandler(events.EventTypeDepositConfirmed, func(ctx context.Context, event events.Event) error {
		deposit, err := AssertEventType[events.DepositConfirmedEvent](event, "DepositConfirmedEvent")
		if err != nil {
			return err
		}
		metrics.RecordDeposit(deposit.Amount)
		return nil
	})

	registry.RegisterLocalHandler(events.EventTypeWithdrawalChanged, func(ctx context.Context, event events.Event) error {
		changed, err := AssertEventType[events.WithdrawalChangedEvent](event, "WithdrawalChangedEvent")
		if err != nil {
			return err
		}
		if changed.Status != entities.WithdrawalStatusPending {
			metrics.RecordWithdrawal(changed.Amount, changed.Status)
		}
		return nil
	})
}
