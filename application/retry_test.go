package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"btclotto/domain/entities"
	"btclotto/domain/testhelpers"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type failureCounter struct {
	noopMetrics
	failures map[string]int
}

func (f *failureCounter) RecordExternalCallFailure(operation string) {
	f.failures[operation]++
}

func newRetryTestLedger(client *testhelpers.MockLedgerClient, metrics MetricsRecorder) *Ledger {
	return NewLedger(nil, client, nil, Settings{Treasury: "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		WithMetrics(metrics),
		WithRetryPolicy(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func TestLedger_LedgerBalanceRetries(t *testing.T) {
	t.Parallel()

	unavailable := &entities.TransferError{Kind: entities.TransferErrorTemporarilyUnavail}

	tests := []struct {
		name         string
		setupMocks   func(client *testhelpers.MockLedgerClient)
		wantBalance  uint64
		wantCalls    int
		wantFailures int
		checkErr     func(t *testing.T, err error)
	}{
		{
			name: "transient failures are retried until success",
			setupMocks: func(client *testhelpers.MockLedgerClient) {
				client.On("BalanceOf", mock.Anything, mock.Anything).Return(uint64(0), unavailable).Twice()
				client.On("BalanceOf", mock.Anything, mock.Anything).Return(uint64(42), nil).Once()
			},
			wantBalance: 42,
			wantCalls:   3,
		},
		{
			name: "transport failures are retried a bounded number of times",
			setupMocks: func(client *testhelpers.MockLedgerClient) {
				client.On("BalanceOf", mock.Anything, mock.Anything).
					Return(uint64(0), fmt.Errorf("%w: connection refused", entities.ErrExternalCallFailed))
			},
			wantCalls:    maxLedgerRetries + 1,
			wantFailures: 1,
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, entities.ErrExternalCallFailed)
			},
		},
		{
			name: "ledger rejections are not retried",
			setupMocks: func(client *testhelpers.MockLedgerClient) {
				client.On("BalanceOf", mock.Anything, mock.Anything).
					Return(uint64(0), &entities.TransferError{Kind: entities.TransferErrorGeneric, Message: "bad account"}).Once()
			},
			wantCalls:    1,
			wantFailures: 1,
			checkErr: func(t *testing.T, err error) {
				var transferErr *entities.TransferError
				require.ErrorAs(t, err, &transferErr)
				assert.Equal(t, entities.TransferErrorGeneric, transferErr.Kind)
				assert.NotErrorIs(t, err, entities.ErrExternalCallFailed)
			},
		},
		{
			name: "unclassified errors fail immediately as external call failures",
			setupMocks: func(client *testhelpers.MockLedgerClient) {
				client.On("BalanceOf", mock.Anything, mock.Anything).Return(uint64(0), errors.New("boom")).Once()
			},
			wantCalls:    1,
			wantFailures: 1,
			checkErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, entities.ErrExternalCallFailed)
				assert.Contains(t, err.Error(), "balance_of")
				assert.Contains(t, err.Error(), "boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := new(testhelpers.MockLedgerClient)
			tt.setupMocks(client)
			metrics := &failureCounter{failures: make(map[string]int)}
			l := newRetryTestLedger(client, metrics)

			balance, err := l.LedgerBalance(context.Background(), l.TreasuryAccount())

			if tt.checkErr != nil {
				require.Error(t, err)
				tt.checkErr(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBalance, balance)
			}
			client.AssertNumberOfCalls(t, "BalanceOf", tt.wantCalls)
			assert.Equal(t, tt.wantFailures, metrics.failures["balance_of"])
		})
	}
}

func TestLedger_CallLedgerStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	client := new(testhelpers.MockLedgerClient)
	client.On("Fee", mock.Anything).Return(uint64(0), entities.ErrExternalCallFailed)
	l := newRetryTestLedger(client, noopMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.fee(ctx)
	require.Error(t, err)
	assert.LessOrEqual(t, len(client.Calls), 1)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"temporarily unavailable", &entities.TransferError{Kind: entities.TransferErrorTemporarilyUnavail}, true},
		{"wrapped transport failure", fmt.Errorf("list: %w", entities.ErrExternalCallFailed), true},
		{"insufficient funds", &entities.TransferError{Kind: entities.TransferErrorInsufficientFunds}, false},
		{"duplicate", &entities.TransferError{Kind: entities.TransferErrorDuplicate, DuplicateOf: 4}, false},
		{"too old", &entities.TransferError{Kind: entities.TransferErrorTooOld}, false},
		{"unrelated", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestLedger_DepositAccount(t *testing.T) {
	t.Parallel()

	l := newRetryTestLedger(new(testhelpers.MockLedgerClient), noopMetrics{})

	_, err := l.DepositAccount(entities.AnonymousPrincipal)
	assert.ErrorIs(t, err, entities.ErrAnonymousCaller)

	owner, err := entities.PrincipalFromBytes([]byte{0x30, 0x01})
	require.NoError(t, err)

	account, err := l.DepositAccount(owner)
	require.NoError(t, err)
	assert.Equal(t, l.Settings().Treasury, account.Owner)
	assert.False(t, account.Subaccount.IsDefault())

	again, err := l.DepositAccount(owner)
	require.NoError(t, err)
	assert.True(t, account.Equal(again), "deposit account is stable per owner")
}
