package services

import (
	"context"
	"testing"
	"time"

	"btclotto/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoundService_CurrentRound(t *testing.T) {
	t.Parallel()

	t.Run("live round returned without locking", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		round := createTestRound(2)
		mocks.RoundRepo.On("GetCurrent", mock.Anything).Return(round, nil)
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(2)).Return(createTestEntries(2, testOwnerA, testOwnerA), nil)

		current, err := mocks.RoundService().CurrentRound(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(2), current.ID)
		assert.Equal(t, []entities.Principal{testOwnerA, testOwnerA}, current.Participants)
		mocks.RoundRepo.AssertNotCalled(t, "GetCurrentForUpdate", mock.Anything)
	})

	t.Run("first call opens a round", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		mocks.RoundRepo.On("GetCurrent", mock.Anything).Return(nil, nil)
		mocks.RoundRepo.On("GetCurrentForUpdate", mock.Anything).Return(nil, nil)
		mocks.RoundRepo.On("CreateIfNoneActive", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Round).ID = 1
		}).Return(true, nil)
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(1)).Return([]*entities.RoundEntry{}, nil)
		mocks.AllowEvents()

		now := time.Now()
		current, err := mocks.RoundService().CurrentRound(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), current.ID)
		assert.True(t, current.AcceptsBets(now))
	})

	t.Run("expired round is settled before returning its successor", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		old := createTestRound(4, expired)
		mocks.RoundRepo.On("GetCurrent", mock.Anything).Return(old, nil).Once()
		mocks.RoundRepo.On("GetCurrentForUpdate", mock.Anything).Return(old, nil)
		mocks.RoundRepo.On("GetByIDForUpdate", mock.Anything, int64(4)).Return(old, nil)
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(4)).Return([]*entities.RoundEntry{}, nil)
		mocks.RoundRepo.On("MarkDrawn", mock.Anything, mock.Anything).Return(true, nil)
		mocks.RoundRepo.On("CreateIfNoneActive", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*entities.Round).ID = 5
		}).Return(true, nil)
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(5)).Return([]*entities.RoundEntry{}, nil)
		mocks.AllowEvents()

		now := time.Now()
		current, err := mocks.RoundService().CurrentRound(context.Background(), now)
		require.NoError(t, err)
		assert.Equal(t, int64(5), current.ID)
		assert.True(t, old.IsDrawn())
		assert.True(t, current.AcceptsBets(now))
	})

	t.Run("round settled by another caller", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		old := createTestRound(4, expired)
		successor := createTestRound(5)
		mocks.RoundRepo.On("GetCurrent", mock.Anything).Return(old, nil).Once()
		mocks.RoundRepo.On("GetCurrentForUpdate", mock.Anything).Return(old, nil)
		mocks.RoundRepo.On("GetByIDForUpdate", mock.Anything, int64(4)).Return(old, nil)
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(4)).Return([]*entities.RoundEntry{}, nil)
		mocks.RoundRepo.On("MarkDrawn", mock.Anything, mock.Anything).Return(false, nil)
		mocks.RoundRepo.On("GetCurrent", mock.Anything).Return(successor, nil).Once()
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(5)).Return([]*entities.RoundEntry{}, nil)

		current, err := mocks.RoundService().CurrentRound(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(5), current.ID)
	})
}

func TestRoundService_RegisterParticipant(t *testing.T) {
	t.Parallel()

	payment := func(owner entities.Principal) *entities.Transaction {
		return &entities.Transaction{ID: 10, Owner: owner, Type: entities.TransactionTypeBet, Amount: testRules.BetCost}
	}

	tests := []struct {
		name       string
		round      *entities.Round
		payment    *entities.Transaction
		setupMocks func(*TestMocks)
		wantErr    error
	}{
		{
			name:    "registers entry and grows the pool",
			round:   createTestRound(1),
			payment: payment(testOwnerA),
			setupMocks: func(m *TestMocks) {
				m.RoundRepo.On("AddEntry", mock.Anything, mock.MatchedBy(func(e *entities.RoundEntry) bool {
					return e.RoundID == 1 && e.Owner == testOwnerA && e.TransactionID == 10
				})).Return(nil)
				m.RoundRepo.On("IncrementPrizePool", mock.Anything, int64(1), testRules.BetCost).Return(testRules.BetCost, nil)
			},
		},
		{
			name:       "rejected after end time",
			round:      createTestRound(1, expired),
			payment:    payment(testOwnerA),
			setupMocks: func(m *TestMocks) {},
			wantErr:    entities.ErrRoundClosed,
		},
		{
			name:       "rejected once drawn",
			round:      createTestRound(1, func(r *entities.Round) { r.Status = entities.RoundStatusDrawn }),
			payment:    payment(testOwnerA),
			setupMocks: func(m *TestMocks) {},
			wantErr:    entities.ErrRoundClosed,
		},
		{
			name:       "payment from another owner",
			round:      createTestRound(1),
			payment:    payment(testOwnerB),
			setupMocks: func(m *TestMocks) {},
			wantErr:    entities.ErrInvariantViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mocks := NewTestMocks()
			mocks.RoundRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.round, nil)
			tt.setupMocks(mocks)

			entry, err := mocks.RoundService().RegisterParticipant(context.Background(), 1, testOwnerA, tt.payment, time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				mocks.RoundRepo.AssertNotCalled(t, "AddEntry", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testOwnerA, entry.Owner)
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestRoundService_ManualTriggerDraw(t *testing.T) {
	t.Parallel()

	t.Run("non admin rejected", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		mocks.AdminRepo.On("IsAdmin", mock.Anything, testOwnerA).Return(false, nil)

		_, err := mocks.RoundService().ManualTriggerDraw(context.Background(), testOwnerA, time.Now())
		assert.ErrorIs(t, err, entities.ErrUnauthorized)
		mocks.RoundRepo.AssertNotCalled(t, "GetCurrentForUpdate", mock.Anything)
	})

	t.Run("admin settles a live round early", func(t *testing.T) {
		t.Parallel()

		mocks := NewTestMocks()
		round := createTestRound(7, func(r *entities.Round) { r.PrizePool = testRules.BetCost })
		mocks.AdminRepo.On("IsAdmin", mock.Anything, testDeployer).Return(true, nil)
		mocks.RoundRepo.On("GetCurrentForUpdate", mock.Anything).Return(round, nil)
		mocks.RoundRepo.On("GetByIDForUpdate", mock.Anything, int64(7)).Return(round, nil)
		mocks.RoundRepo.On("GetEntries", mock.Anything, int64(7)).Return(createTestEntries(7, testOwnerB), nil)
		mocks.RoundRepo.On("MarkDrawn", mock.Anything, mock.Anything).Return(true, nil)
		mocks.AccountRepo.On("AddBalance", mock.Anything, testOwnerB, testRules.BetCost).Return(testRules.BetCost, nil)
		mocks.ExpectRecords()
		mocks.WinningRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		mocks.RoundRepo.On("CreateIfNoneActive", mock.Anything, mock.Anything).Return(true, nil)
		mocks.AllowEvents()

		result, err := mocks.RoundService().ManualTriggerDraw(context.Background(), testDeployer, time.Now())
		require.NoError(t, err)
		require.NotNil(t, result.Winner)
		assert.Equal(t, testOwnerB, *result.Winner)
		mocks.AssertAllExpectations(t)
	})
}
