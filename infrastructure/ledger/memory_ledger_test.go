package ledger

import (
	"context"
	"testing"
	"time"

	"btclotto/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPrincipal(t *testing.T, n byte) entities.Principal {
	t.Helper()
	principal, err := entities.PrincipalFromBytes([]byte{0x20, n, 0x01})
	require.NoError(t, err)
	return principal
}

func TestMemoryLedger_ListTransfersFiltersByDestination(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	treasury := testPrincipal(t, 1)
	ledger := NewMemoryLedger(treasury, 10)

	deposit := entities.LedgerAccount{Owner: treasury, Subaccount: entities.Subaccount{1}}
	other := entities.LedgerAccount{Owner: testPrincipal(t, 2)}

	ledger.Mint(deposit, 100)
	ledger.Mint(other, 200)
	ledger.Mint(deposit, 300)

	page, err := ledger.ListTransfers(ctx, deposit, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Transfers, 2)
	assert.Equal(t, uint64(0), page.Transfers[0].BlockIndex)
	assert.Equal(t, uint64(2), page.Transfers[1].BlockIndex)
	assert.Equal(t, uint64(3), page.NextStart)
	assert.NotEqual(t, page.Transfers[0].TxHash, page.Transfers[1].TxHash)

	page, err = ledger.ListTransfers(ctx, deposit, 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Transfers, 1)
	assert.Equal(t, uint64(300), page.Transfers[0].Amount)
	assert.Equal(t, uint64(3), page.NextStart)

	page, err = ledger.ListTransfers(ctx, deposit, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Transfers)
	assert.Equal(t, uint64(3), page.NextStart)
}

func TestMemoryLedger_Transfer(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	treasury := testPrincipal(t, 1)
	destination := entities.LedgerAccount{Owner: testPrincipal(t, 2)}

	fee := func(v uint64) *uint64 { return &v }
	createdAt := func(at time.Time) *uint64 {
		v := uint64(at.UnixNano())
		return &v
	}

	tests := []struct {
		name     string
		args     entities.TransferArgs
		wantKind entities.TransferErrorKind
	}{
		{
			name: "success",
			args: entities.TransferArgs{To: destination, Amount: 500, Fee: fee(10), CreatedAtTime: createdAt(now)},
		},
		{
			name:     "bad fee",
			args:     entities.TransferArgs{To: destination, Amount: 500, Fee: fee(1)},
			wantKind: entities.TransferErrorBadFee,
		},
		{
			name:     "insufficient funds",
			args:     entities.TransferArgs{To: destination, Amount: 995},
			wantKind: entities.TransferErrorInsufficientFunds,
		},
		{
			name:     "too old",
			args:     entities.TransferArgs{To: destination, Amount: 1, CreatedAtTime: createdAt(now.Add(-25 * time.Hour))},
			wantKind: entities.TransferErrorTooOld,
		},
		{
			name:     "created in future",
			args:     entities.TransferArgs{To: destination, Amount: 1, CreatedAtTime: createdAt(now.Add(time.Hour))},
			wantKind: entities.TransferErrorCreatedInFuture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			ledger := NewMemoryLedger(treasury, 10).WithClock(func() time.Time { return now })
			ledger.Mint(entities.LedgerAccount{Owner: treasury}, 1000)

			index, err := ledger.Transfer(ctx, tt.args)
			if tt.wantKind != "" {
				var transferErr *entities.TransferError
				require.ErrorAs(t, err, &transferErr)
				assert.Equal(t, tt.wantKind, transferErr.Kind)

				balance, _ := ledger.BalanceOf(ctx, entities.LedgerAccount{Owner: treasury})
				assert.Equal(t, uint64(1000), balance)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, uint64(1), index)

			balance, _ := ledger.BalanceOf(ctx, entities.LedgerAccount{Owner: treasury})
			assert.Equal(t, uint64(490), balance)
			received, _ := ledger.BalanceOf(ctx, destination)
			assert.Equal(t, uint64(500), received)
		})
	}
}

func TestMemoryLedger_DeduplicatesResubmittedTransfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	treasury := testPrincipal(t, 1)
	ledger := NewMemoryLedger(treasury, 10)
	ledger.Mint(entities.LedgerAccount{Owner: treasury}, 1000)

	createdAt := uint64(time.Now().UnixNano())
	args := entities.TransferArgs{
		To:            entities.LedgerAccount{Owner: testPrincipal(t, 2)},
		Amount:        100,
		Memo:          []byte("withdrawal-1"),
		CreatedAtTime: &createdAt,
	}

	index, err := ledger.Transfer(ctx, args)
	require.NoError(t, err)

	_, err = ledger.Transfer(ctx, args)
	var transferErr *entities.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, entities.TransferErrorDuplicate, transferErr.Kind)
	assert.Equal(t, index, transferErr.DuplicateOf)

	balance, _ := ledger.BalanceOf(ctx, entities.LedgerAccount{Owner: treasury})
	assert.Equal(t, uint64(890), balance)
}

func TestMemoryLedger_Unavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	treasury := testPrincipal(t, 1)
	ledger := NewMemoryLedger(treasury, 10)
	ledger.Mint(entities.LedgerAccount{Owner: treasury}, 1000)
	ledger.SetUnavailable(1)

	args := entities.TransferArgs{To: entities.LedgerAccount{Owner: testPrincipal(t, 2)}, Amount: 100}

	_, err := ledger.Transfer(ctx, args)
	var transferErr *entities.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.True(t, transferErr.IsTransient())

	_, err = ledger.Transfer(ctx, args)
	assert.NoError(t, err)
}

func TestMemoryLedger_CallerViewPaysFromOwnAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	treasury := testPrincipal(t, 1)
	player := testPrincipal(t, 2)
	ledger := NewMemoryLedger(treasury, 10)
	ledger.Mint(entities.LedgerAccount{Owner: player}, 1000)

	deposit := entities.LedgerAccount{Owner: treasury, Subaccount: entities.Subaccount{9}}
	_, err := ledger.ForCaller(player).Transfer(ctx, entities.TransferArgs{To: deposit, Amount: 400})
	require.NoError(t, err)

	page, err := ledger.ListTransfers(ctx, deposit, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Transfers, 1)
	assert.Equal(t, player, page.Transfers[0].From.Owner)
	assert.Equal(t, uint64(400), page.Transfers[0].Amount)
}
