package events

import (
	"time"

	"btclotto/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeUserCreated       EventType = "user_created"
	EventTypeBetPlaced         EventType = "bet_placed"
	EventTypeRoundOpened       EventType = "round_opened"
	EventTypeRoundSettled      EventType = "round_settled"
	EventTypeDepositConfirmed  EventType = "deposit_confirmed"
	EventTypeWithdrawalChanged EventType = "withdrawal_changed"
	EventTypeAccountFrozen     EventType = "account_frozen"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	Owner           entities.Principal       `json:"owner"`
	OldBalance      uint64                   `json:"old_balance"`
	NewBalance      uint64                   `json:"new_balance"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	Amount          uint64                   `json:"amount"`
	TransactionID   int64                    `json:"transaction_id"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserCreatedEvent represents a new account
type UserCreatedEvent struct {
	Owner          entities.Principal `json:"owner"`
	DepositAccount string             `json:"deposit_account"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// BetPlacedEvent represents a paid entry in a round
type BetPlacedEvent struct {
	Owner     entities.Principal `json:"owner"`
	RoundID   int64              `json:"round_id"`
	EntryID   int64              `json:"entry_id"`
	Amount    uint64             `json:"amount"`
	PrizePool uint64             `json:"prize_pool"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// RoundOpenedEvent is published when a new round starts accepting bets
type RoundOpenedEvent struct {
	RoundID   int64     `json:"round_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	SeedHash  []byte    `json:"seed_hash"`
}

func (e RoundOpenedEvent) Type() EventType {
	return EventTypeRoundOpened
}

// RoundSettledEvent is published when a round is drawn
type RoundSettledEvent struct {
	RoundID      int64               `json:"round_id"`
	Winner       *entities.Principal `json:"winner,omitempty"`
	PrizePool    uint64              `json:"prize_pool"`
	EntryCount   int                 `json:"entry_count"`
	WinningIndex *int64              `json:"winning_index,omitempty"`
	ServerSeed   []byte              `json:"server_seed"`
	Beacon       []byte              `json:"beacon,omitempty"`
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}

// DepositConfirmedEvent is published when a ledger transfer is credited
type DepositConfirmedEvent struct {
	Owner      entities.Principal `json:"owner"`
	TxHash     string             `json:"tx_hash"`
	Amount     uint64             `json:"amount"`
	BlockIndex uint64             `json:"block_index"`
}

func (e DepositConfirmedEvent) Type() EventType {
	return EventTypeDepositConfirmed
}

// WithdrawalChangedEvent represents a withdrawal state transition
type WithdrawalChangedEvent struct {
	WithdrawalID string                    `json:"withdrawal_id"`
	Owner        entities.Principal        `json:"owner"`
	Amount       uint64                    `json:"amount"`
	Status       entities.WithdrawalStatus `json:"status"`
}

func (e WithdrawalChangedEvent) Type() EventType {
	return EventTypeWithdrawalChanged
}

// AccountFrozenEvent is published when an account is quarantined after an invariant violation
type AccountFrozenEvent struct {
	Owner  entities.Principal `json:"owner"`
	Reason string             `json:"reason"`
}

func (e AccountFrozenEvent) Type() EventType {
	return EventTypeAccountFrozen
}
