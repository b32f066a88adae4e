package testhelpers

import (
	"context"
	"sync"

	"btclotto/domain/entities"

	"github.com/stretchr/testify/mock"
)

// MockLedgerClient is a mock implementation of LedgerClient
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) ListTransfers(ctx context.Context, account entities.LedgerAccount, start uint64, limit int) (*entities.TransferPage, error) {
	args := m.Called(ctx, account, start, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TransferPage), args.Error(1)
}

func (m *MockLedgerClient) BalanceOf(ctx context.Context, account entities.LedgerAccount) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerClient) Transfer(ctx context.Context, transfer entities.TransferArgs) (uint64, error) {
	args := m.Called(ctx, transfer)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerClient) Fee(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

// SequenceRandomness returns a fixed sequence of beacons, cycling when exhausted
type SequenceRandomness struct {
	Beacons [][]byte

	mu   sync.Mutex
	next int
}

func (s *SequenceRandomness) Beacon(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	beacon := s.Beacons[s.next%len(s.Beacons)]
	s.next++
	return beacon, nil
}
