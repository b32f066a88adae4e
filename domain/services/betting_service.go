package services

import (
	"context"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/events"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// bettingService implements bet admission
type bettingService struct {
	roundRepo      interfaces.RoundRepository
	accountService interfaces.AccountService
	roundService   interfaces.RoundService
	eventPublisher interfaces.EventPublisher
}

// NewBettingService creates a new betting service
func NewBettingService(
	roundRepo interfaces.RoundRepository,
	accountService interfaces.AccountService,
	roundService interfaces.RoundService,
	eventPublisher interfaces.EventPublisher,
) interfaces.BettingService {
	return &bettingService{
		roundRepo:      roundRepo,
		accountService: accountService,
		roundService:   roundService,
		eventPublisher: eventPublisher,
	}
}

// PlaceBet buys one entry in the current round for the round's bet cost.
// Round liveness is checked under the round lock before any debit, so
// ErrRoundClosed and ErrInsufficientBalance both leave the balance untouched.
func (s *bettingService) PlaceBet(ctx context.Context, owner entities.Principal, now time.Time) (*interfaces.BetResult, error) {
	round, err := s.roundRepo.GetCurrentForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock current round: %w", err)
	}
	if round == nil || !round.AcceptsBets(now) {
		return nil, entities.ErrRoundClosed
	}

	tx, err := s.accountService.Debit(ctx, owner, round.BetCost, entities.TransactionTypeBet, map[string]any{
		"round_id": round.ID,
	})
	if err != nil {
		return nil, err
	}

	entry, err := s.roundService.RegisterParticipant(ctx, round.ID, owner, tx, now)
	if err != nil {
		return nil, err
	}

	round, err = s.roundService.GetRound(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh round: %w", err)
	}

	log.WithFields(log.Fields{
		"owner":     owner,
		"roundID":   round.ID,
		"entryID":   entry.ID,
		"prizePool": round.PrizePool,
	}).Info("Bet placed")

	event := events.BetPlacedEvent{
		Owner:     owner,
		RoundID:   round.ID,
		EntryID:   entry.ID,
		Amount:    tx.Amount,
		PrizePool: round.PrizePool,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish bet placed event")
	}

	return &interfaces.BetResult{
		Round:       round,
		Entry:       entry,
		Transaction: tx,
		NewBalance:  tx.BalanceAfter,
	}, nil
}
