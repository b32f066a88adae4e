package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/events"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// drawService implements the draw engine
type drawService struct {
	roundRepo      interfaces.RoundRepository
	winningRepo    interfaces.WinningRepository
	accountService interfaces.AccountService
	randomness     interfaces.RandomnessSource
	eventPublisher interfaces.EventPublisher
	rules          entities.LotteryRules
}

// NewDrawService creates a new draw service
func NewDrawService(
	roundRepo interfaces.RoundRepository,
	winningRepo interfaces.WinningRepository,
	accountService interfaces.AccountService,
	randomness interfaces.RandomnessSource,
	eventPublisher interfaces.EventPublisher,
	rules entities.LotteryRules,
) interfaces.DrawService {
	return &drawService{
		roundRepo:      roundRepo,
		winningRepo:    winningRepo,
		accountService: accountService,
		randomness:     randomness,
		eventPublisher: eventPublisher,
		rules:          rules,
	}
}

// OpenRound opens a round covering [now, now+RoundDuration) unless one is already open
func (s *drawService) OpenRound(ctx context.Context, now time.Time) (*entities.Round, error) {
	round, err := entities.NewRound(now, s.rules)
	if err != nil {
		return nil, err
	}

	created, err := s.roundRepo.CreateIfNoneActive(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	if !created {
		// Another caller opened it first
		current, err := s.roundRepo.GetCurrent(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get current round: %w", err)
		}
		if current == nil {
			return nil, errors.New("round conflict but no open round found")
		}
		return current, nil
	}

	log.WithFields(log.Fields{
		"roundID": round.ID,
		"endTime": round.EndTime,
		"betCost": round.BetCost,
	}).Info("Opened lottery round")

	event := events.RoundOpenedEvent{
		RoundID:   round.ID,
		StartTime: round.StartTime,
		EndTime:   round.EndTime,
		SeedHash:  round.SeedHash,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish round opened event")
	}

	return round, nil
}

// Settle draws the round, credits the winner and opens the next round.
// Everything happens in the caller's transaction: either the round is drawn with
// its winner credited and a successor open, or nothing changes.
func (s *drawService) Settle(ctx context.Context, roundID int64, now time.Time) (*interfaces.DrawResult, error) {
	round, err := s.roundRepo.GetByIDForUpdate(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock round: %w", err)
	}
	if round == nil {
		return nil, entities.ErrRoundNotFound
	}
	if round.IsDrawn() {
		return nil, entities.ErrAlreadySettled
	}

	entries, err := s.roundRepo.GetEntries(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get round entries: %w", err)
	}
	round.Participants = participantsOf(entries)

	var winner *entities.Principal
	if round.HasParticipants() {
		beacon, err := s.randomness.Beacon(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get settlement beacon: %w", err)
		}

		index, err := SelectWinnerIndex(beacon, round.ServerSeed, round.ID, len(entries))
		if err != nil {
			return nil, err
		}

		selected := entries[index].Owner
		winner = &selected
		winningIndex := int64(index)
		round.Complete(winner, &winningIndex, beacon, now)
	} else {
		round.Complete(nil, nil, nil, now)
	}

	settled, err := s.roundRepo.MarkDrawn(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("failed to mark round drawn: %w", err)
	}
	if !settled {
		return nil, entities.ErrAlreadySettled
	}

	if winner != nil && round.PrizePool > 0 {
		tx, err := s.accountService.Credit(ctx, *winner, round.PrizePool, entities.TransactionTypeWin, map[string]any{
			"round_id":      round.ID,
			"winning_index": *round.WinningIndex,
			"entry_count":   len(entries),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit winner: %w", err)
		}

		winning := &entities.Winning{
			Owner:         *winner,
			RoundID:       round.ID,
			Amount:        round.PrizePool,
			TransactionID: tx.ID,
		}
		if err := s.winningRepo.Create(ctx, winning); err != nil {
			return nil, fmt.Errorf("failed to record winning: %w", err)
		}
	}

	next, err := s.OpenRound(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to open next round: %w", err)
	}

	fields := log.Fields{
		"roundID":     round.ID,
		"entryCount":  len(entries),
		"prizePool":   round.PrizePool,
		"nextRoundID": next.ID,
	}
	if winner != nil {
		fields["winner"] = *winner
	}
	log.WithFields(fields).Info("Settled lottery round")

	event := events.RoundSettledEvent{
		RoundID:      round.ID,
		Winner:       winner,
		PrizePool:    round.PrizePool,
		EntryCount:   len(entries),
		WinningIndex: round.WinningIndex,
		ServerSeed:   round.ServerSeed,
		Beacon:       round.Beacon,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish round settled event")
	}

	return &interfaces.DrawResult{
		Round:     round,
		Winner:    winner,
		PrizePool: round.PrizePool,
		NextRound: next,
	}, nil
}

func participantsOf(entries []*entities.RoundEntry) []entities.Principal {
	participants := make([]entities.Principal, 0, len(entries))
	for _, entry := range entries {
		participants = append(participants, entry.Owner)
	}
	return participants
}
