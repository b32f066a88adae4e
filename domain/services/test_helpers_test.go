package services

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
	"btclotto/domain/testhelpers"

	"github.com/stretchr/testify/mock"
)

var (
	testOwnerA   = mustPrincipal([]byte{0x01, 0xaa})
	testOwnerB   = mustPrincipal([]byte{0x02, 0xbb})
	testTreasury = mustPrincipal([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x01, 0x01})
	testDeployer = mustPrincipal([]byte{0x03, 0xcc})

	testRules = entities.LotteryRules{BetCost: 1_000_000, RoundDuration: 5 * time.Minute}
)

func mustPrincipal(raw []byte) entities.Principal {
	p, err := entities.PrincipalFromBytes(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// beaconFor derives a deterministic beacon from a counter
func beaconFor(i int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	sum := sha256.Sum256(buf[:])
	return sum[:]
}

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	AccountRepo     *testhelpers.MockAccountRepository
	TransactionRepo *testhelpers.MockTransactionRepository
	WinningRepo     *testhelpers.MockWinningRepository
	RoundRepo       *testhelpers.MockRoundRepository
	DepositRepo     *testhelpers.MockDepositRepository
	WithdrawalRepo  *testhelpers.MockWithdrawalRepository
	AdminRepo       *testhelpers.MockAdminRepository
	StatsRepo       *testhelpers.MockStatsRepository
	EventPublisher  *testhelpers.MockEventPublisher
	Randomness      *testhelpers.SequenceRandomness

	nextTransactionID int64
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		AccountRepo:     &testhelpers.MockAccountRepository{},
		TransactionRepo: &testhelpers.MockTransactionRepository{},
		WinningRepo:     &testhelpers.MockWinningRepository{},
		RoundRepo:       &testhelpers.MockRoundRepository{},
		DepositRepo:     &testhelpers.MockDepositRepository{},
		WithdrawalRepo:  &testhelpers.MockWithdrawalRepository{},
		AdminRepo:       &testhelpers.MockAdminRepository{},
		StatsRepo:       &testhelpers.MockStatsRepository{},
		EventPublisher:  &testhelpers.MockEventPublisher{},
		Randomness:      &testhelpers.SequenceRandomness{Beacons: [][]byte{beaconFor(0)}},
	}
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AccountRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.WinningRepo.AssertExpectations(t)
	m.RoundRepo.AssertExpectations(t)
	m.DepositRepo.AssertExpectations(t)
	m.WithdrawalRepo.AssertExpectations(t)
	m.AdminRepo.AssertExpectations(t)
	m.StatsRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// AllowEvents accepts any published event
func (m *TestMocks) AllowEvents() {
	m.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
}

// ExpectRecords accepts transaction records and assigns sequential ids
func (m *TestMocks) ExpectRecords() {
	m.TransactionRepo.On("Record", mock.Anything, mock.AnythingOfType("*entities.Transaction")).Run(func(args mock.Arguments) {
		m.nextTransactionID++
		args.Get(1).(*entities.Transaction).ID = m.nextTransactionID
	}).Return(nil)
}

func (m *TestMocks) AccountService() interfaces.AccountService {
	return NewAccountService(m.AccountRepo, m.TransactionRepo, m.WinningRepo, m.EventPublisher, testTreasury)
}

func (m *TestMocks) DrawService() interfaces.DrawService {
	return NewDrawService(m.RoundRepo, m.WinningRepo, m.AccountService(), m.Randomness, m.EventPublisher, testRules)
}

func (m *TestMocks) RoundService() interfaces.RoundService {
	return NewRoundService(m.RoundRepo, m.AdminRepo, m.DrawService())
}

func (m *TestMocks) BettingService() interfaces.BettingService {
	return NewBettingService(m.RoundRepo, m.AccountService(), m.RoundService(), m.EventPublisher)
}

// createTestRound creates an active round with common defaults
func createTestRound(id int64, opts ...func(*entities.Round)) *entities.Round {
	round, err := entities.NewRound(time.Now().Add(-time.Minute), testRules)
	if err != nil {
		panic(err)
	}
	round.ID = id
	for _, opt := range opts {
		opt(round)
	}
	return round
}

func expired(round *entities.Round) {
	round.StartTime = time.Now().Add(-10 * time.Minute)
	round.EndTime = time.Now().Add(-5 * time.Minute)
}

func createTestEntries(roundID int64, owners ...entities.Principal) []*entities.RoundEntry {
	entries := make([]*entities.RoundEntry, 0, len(owners))
	for i, owner := range owners {
		entries = append(entries, &entities.RoundEntry{
			ID:            int64(i + 1),
			RoundID:       roundID,
			Owner:         owner,
			TransactionID: int64(100 + i),
		})
	}
	return entries
}
