package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// roundService implements the round manager
type roundService struct {
	roundRepo   interfaces.RoundRepository
	adminRepo   interfaces.AdminRepository
	drawService interfaces.DrawService
}

// NewRoundService creates a new round service
func NewRoundService(
	roundRepo interfaces.RoundRepository,
	adminRepo interfaces.AdminRepository,
	drawService interfaces.DrawService,
) interfaces.RoundService {
	return &roundService{
		roundRepo:   roundRepo,
		adminRepo:   adminRepo,
		drawService: drawService,
	}
}

// CurrentRound returns the round accepting bets. An expired round is settled and
// its successor opened before returning; concurrent callers settle it exactly once.
func (s *roundService) CurrentRound(ctx context.Context, now time.Time) (*entities.Round, error) {
	round, err := s.roundRepo.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}
	if round != nil && round.AcceptsBets(now) {
		return s.withParticipants(ctx, round)
	}

	locked, err := s.roundRepo.GetCurrentForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock current round: %w", err)
	}

	if locked == nil {
		opened, err := s.drawService.OpenRound(ctx, now)
		if err != nil {
			return nil, err
		}
		return s.withParticipants(ctx, opened)
	}

	if !locked.IsEnded(now) {
		return s.withParticipants(ctx, locked)
	}

	log.WithFields(log.Fields{
		"roundID": locked.ID,
		"endTime": locked.EndTime,
	}).Debug("Rolling over expired round")

	result, err := s.drawService.Settle(ctx, locked.ID, now)
	if errors.Is(err, entities.ErrAlreadySettled) {
		current, err := s.roundRepo.GetCurrent(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get current round: %w", err)
		}
		if current == nil {
			return nil, errors.New("round settled concurrently but no successor found")
		}
		return s.withParticipants(ctx, current)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle expired round: %w", err)
	}

	return s.withParticipants(ctx, result.NextRound)
}

// GetRound returns a round with its participants, nil if absent
func (s *roundService) GetRound(ctx context.Context, id int64) (*entities.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return nil, nil
	}
	return s.withParticipants(ctx, round)
}

// RegisterParticipant records an entry paid by the given bet debit and adds it to the prize pool
func (s *roundService) RegisterParticipant(ctx context.Context, roundID int64, owner entities.Principal, payment *entities.Transaction, now time.Time) (*entities.RoundEntry, error) {
	round, err := s.roundRepo.GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock round: %w", err)
	}
	if round == nil {
		return nil, entities.ErrRoundNotFound
	}
	if !round.AcceptsBets(now) {
		return nil, entities.ErrRoundClosed
	}

	if payment == nil || payment.ID == 0 || payment.Owner != owner ||
		payment.Type != entities.TransactionTypeBet || payment.Amount != round.BetCost {
		return nil, &entities.InvariantError{Owner: owner, Reason: "entry is not backed by a matching bet debit"}
	}

	entry := &entities.RoundEntry{
		RoundID:       round.ID,
		Owner:         owner,
		TransactionID: payment.ID,
	}
	if err := s.roundRepo.AddEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add round entry: %w", err)
	}

	if _, err := s.roundRepo.IncrementPrizePool(ctx, round.ID, payment.Amount); err != nil {
		return nil, fmt.Errorf("failed to increment prize pool: %w", err)
	}

	return entry, nil
}

// ManualTriggerDraw settles the current round immediately. Restricted to admins.
// With no round open yet it only opens the first one.
func (s *roundService) ManualTriggerDraw(ctx context.Context, caller entities.Principal, now time.Time) (*interfaces.DrawResult, error) {
	isAdmin, err := s.adminRepo.IsAdmin(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("failed to check admin: %w", err)
	}
	if !isAdmin {
		return nil, entities.ErrUnauthorized
	}

	round, err := s.roundRepo.GetCurrentForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to lock current round: %w", err)
	}
	if round == nil {
		opened, err := s.drawService.OpenRound(ctx, now)
		if err != nil {
			return nil, err
		}
		return &interfaces.DrawResult{NextRound: opened}, nil
	}

	log.WithFields(log.Fields{
		"roundID": round.ID,
		"caller":  caller,
	}).Info("Manual draw triggered")

	return s.drawService.Settle(ctx, round.ID, now)
}

func (s *roundService) withParticipants(ctx context.Context, round *entities.Round) (*entities.Round, error) {
	entries, err := s.roundRepo.GetEntries(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round entries: %w", err)
	}
	round.Participants = participantsOf(entries)
	return round, nil
}
