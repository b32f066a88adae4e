package testhelpers

import (
	"context"
	"time"

	"btclotto/domain/entities"
	"btclotto/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByOwner(ctx context.Context, owner entities.Principal) (*entities.Account, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) CreateIfAbsent(ctx context.Context, owner entities.Principal, depositSubaccount entities.Subaccount) (*entities.Account, bool, error) {
	args := m.Called(ctx, owner, depositSubaccount)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.Account), args.Bool(1), args.Error(2)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, owner entities.Principal, amount uint64) (uint64, error) {
	args := m.Called(ctx, owner, amount)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, owner entities.Principal, amount uint64) (uint64, error) {
	args := m.Called(ctx, owner, amount)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockAccountRepository) VerifyBalance(ctx context.Context, owner entities.Principal) (bool, error) {
	args := m.Called(ctx, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Freeze(ctx context.Context, owner entities.Principal) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

func (m *MockAccountRepository) AdvanceDepositCursor(ctx context.Context, owner entities.Principal, cursor uint64) error {
	args := m.Called(ctx, owner, cursor)
	return args.Error(0)
}

func (m *MockAccountRepository) ListOwners(ctx context.Context) ([]entities.Principal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Principal), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

// MockWinningRepository is a mock implementation of WinningRepository
type MockWinningRepository struct {
	mock.Mock
}

func (m *MockWinningRepository) Create(ctx context.Context, winning *entities.Winning) error {
	args := m.Called(ctx, winning)
	return args.Error(0)
}

func (m *MockWinningRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Winning, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Winning), args.Error(1)
}

// MockRoundRepository is a mock implementation of RoundRepository
type MockRoundRepository struct {
	mock.Mock
}

func (m *MockRoundRepository) GetCurrent(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetCurrentForUpdate(ctx context.Context) (*entities.Round, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetByID(ctx context.Context, id int64) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Round, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Round), args.Error(1)
}

func (m *MockRoundRepository) CreateIfNoneActive(ctx context.Context, round *entities.Round) (bool, error) {
	args := m.Called(ctx, round)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) IncrementPrizePool(ctx context.Context, id int64, amount uint64) (uint64, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockRoundRepository) MarkDrawn(ctx context.Context, round *entities.Round) (bool, error) {
	args := m.Called(ctx, round)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoundRepository) AddEntry(ctx context.Context, entry *entities.RoundEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRoundRepository) GetEntries(ctx context.Context, roundID int64) ([]*entities.RoundEntry, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RoundEntry), args.Error(1)
}

func (m *MockRoundRepository) GetNextEndTime(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// MockDepositRepository is a mock implementation of DepositRepository
type MockDepositRepository struct {
	mock.Mock
}

func (m *MockDepositRepository) InsertIfAbsent(ctx context.Context, deposit *entities.Deposit) (bool, error) {
	args := m.Called(ctx, deposit)
	return args.Bool(0), args.Error(1)
}

func (m *MockDepositRepository) MarkConfirmed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDepositRepository) MarkSwept(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDepositRepository) GetByTxHash(ctx context.Context, txHash string) (*entities.Deposit, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Deposit, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

func (m *MockDepositRepository) GetUnswept(ctx context.Context, limit int) ([]*entities.Deposit, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Deposit), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, withdrawal *entities.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) Update(ctx context.Context, withdrawal *entities.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetPending(ctx context.Context, createdBefore time.Time, limit int) ([]*entities.Withdrawal, error) {
	args := m.Called(ctx, createdBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByOwner(ctx context.Context, owner entities.Principal, limit int) ([]*entities.Withdrawal, error) {
	args := m.Called(ctx, owner, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Withdrawal), args.Error(1)
}

// MockAdminRepository is a mock implementation of AdminRepository
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) Grant(ctx context.Context, principal entities.Principal) error {
	args := m.Called(ctx, principal)
	return args.Error(0)
}

func (m *MockAdminRepository) IsAdmin(ctx context.Context, principal entities.Principal) (bool, error) {
	args := m.Called(ctx, principal)
	return args.Bool(0), args.Error(1)
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetSystemStats(ctx context.Context) (*entities.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SystemStats), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
