package entities

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"
)

// ServerSeedLength is the size of the committed per-round server seed
const ServerSeedLength = 32

// RoundStatus is the stored lifecycle state of a round
type RoundStatus string

const (
	RoundStatusActive RoundStatus = "active"
	RoundStatusDrawn  RoundStatus = "drawn"
)

// RoundPhase is the observable phase of a round at a point in time
type RoundPhase string

const (
	RoundPhaseActive RoundPhase = "active"
	RoundPhaseEnded  RoundPhase = "ended"
	RoundPhaseDrawn  RoundPhase = "drawn"
)

// Round represents a single lottery round
type Round struct {
	ID           int64       `db:"id"`
	Status       RoundStatus `db:"status"`
	StartTime    time.Time   `db:"start_time"`
	EndTime      time.Time   `db:"end_time"`
	BetCost      uint64      `db:"bet_cost"` // Captured from rules at creation
	PrizePool    uint64      `db:"prize_pool"`
	SeedHash     []byte      `db:"seed_hash"`     // sha256(ServerSeed), published while active
	ServerSeed   []byte      `db:"server_seed"`   // Revealed only once drawn
	Beacon       []byte      `db:"beacon"`        // NULL until drawn with participants
	WinningIndex *int64      `db:"winning_index"` // NULL until drawn with participants
	Winner       *Principal  `db:"winner"`
	DrawnAt      *time.Time  `db:"drawn_at"`
	CreatedAt    time.Time   `db:"created_at"`

	// Entry owners ordered by entry id, populated on read
	Participants []Principal `db:"-"`
}

// NewRound creates an unsaved active round covering [start, start+RoundDuration)
// with a fresh committed server seed
func NewRound(start time.Time, rules LotteryRules) (*Round, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lottery rules: %w", err)
	}

	seed := make([]byte, ServerSeedLength)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to generate server seed: %w", err)
	}
	hash := sha256.Sum256(seed)

	return &Round{
		Status:     RoundStatusActive,
		StartTime:  start,
		EndTime:    start.Add(rules.RoundDuration),
		BetCost:    rules.BetCost,
		SeedHash:   hash[:],
		ServerSeed: seed,
	}, nil
}

// IsDrawn returns true once the round has been settled
func (r *Round) IsDrawn() bool {
	return r.Status == RoundStatusDrawn
}

// IsEnded returns true when the round is still unsettled but its end time has passed
func (r *Round) IsEnded(now time.Time) bool {
	return !r.IsDrawn() && !now.Before(r.EndTime)
}

// AcceptsBets returns true while the round is active and before its end time
func (r *Round) AcceptsBets(now time.Time) bool {
	return !r.IsDrawn() && now.Before(r.EndTime)
}

// Phase derives the observable phase at the given time
func (r *Round) Phase(now time.Time) RoundPhase {
	switch {
	case r.IsDrawn():
		return RoundPhaseDrawn
	case r.IsEnded(now):
		return RoundPhaseEnded
	default:
		return RoundPhaseActive
	}
}

// Winners returns the winner list: empty or exactly one principal
func (r *Round) Winners() []Principal {
	if r.Winner == nil {
		return []Principal{}
	}
	return []Principal{*r.Winner}
}

// HasParticipants returns true if at least one entry was registered
func (r *Round) HasParticipants() bool {
	return len(r.Participants) > 0
}

// RevealedSeed returns the server seed once drawn, nil while it is still secret
func (r *Round) RevealedSeed() []byte {
	if !r.IsDrawn() {
		return nil
	}
	return r.ServerSeed
}

// VerifySeed checks the server seed against the published commitment
func (r *Round) VerifySeed() bool {
	hash := sha256.Sum256(r.ServerSeed)
	return subtle.ConstantTimeCompare(hash[:], r.SeedHash) == 1
}

// Complete marks the round drawn. Winner and index are nil for an empty round.
func (r *Round) Complete(winner *Principal, winningIndex *int64, beacon []byte, drawnAt time.Time) {
	r.Status = RoundStatusDrawn
	r.Winner = winner
	r.WinningIndex = winningIndex
	r.Beacon = beacon
	r.DrawnAt = &drawnAt
}

// RoundEntry is one paid registration of an owner in a round
type RoundEntry struct {
	ID            int64     `db:"id"`
	RoundID       int64     `db:"round_id"`
	Owner         Principal `db:"owner"`
	TransactionID int64     `db:"transaction_id"` // The bet debit that paid for this entry
	CreatedAt     time.Time `db:"created_at"`
}
