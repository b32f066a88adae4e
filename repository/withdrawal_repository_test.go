package repository

import (
	"context"
	"testing"
	"time"

	"btclotto/domain/entities"
	"btclotto/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawalRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	owner := testutil.TestPrincipal(1)
	testutil.CreateTestAccount(t, testDB.DB, owner, 0)

	repo := NewWithdrawalRepositoryWithTx(testDB.DB.Pool)

	destSub, err := entities.ParseSubaccount("0a")
	require.NoError(t, err)
	destination := entities.LedgerAccount{Owner: testutil.TestPrincipal(2), Subaccount: destSub}

	withdrawal := entities.NewWithdrawal(owner, 1_000, 10, destination, time.Now())
	require.NoError(t, repo.Create(ctx, withdrawal))

	stored, err := repo.GetByID(ctx, withdrawal.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, withdrawal.ID, stored.ID)
	assert.True(t, stored.Destination.Equal(destination))
	assert.Equal(t, withdrawal.CreatedAtTime, stored.CreatedAtTime)
	assert.True(t, stored.IsPending())

	pending, err := repo.GetPending(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	stored.Complete(99)
	require.NoError(t, repo.Update(ctx, stored))

	resolved, err := repo.GetByIDForUpdate(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WithdrawalStatusCompleted, resolved.Status)
	require.NotNil(t, resolved.BlockIndex)
	assert.Equal(t, uint64(99), *resolved.BlockIndex)

	pending, err = repo.GetPending(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	history, err := repo.GetByOwner(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithdrawalRepository_DefaultSubaccountStoredAsNull(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	owner := testutil.TestPrincipal(1)
	testutil.CreateTestAccount(t, testDB.DB, owner, 0)

	repo := NewWithdrawalRepositoryWithTx(testDB.DB.Pool)
	withdrawal := entities.NewWithdrawal(owner, 500, 10, entities.LedgerAccount{Owner: testutil.TestPrincipal(3)}, time.Now())
	require.NoError(t, repo.Create(ctx, withdrawal))

	var isNull bool
	err := testDB.DB.QueryRow(ctx, `SELECT destination_subaccount IS NULL FROM withdrawals WHERE id = $1`, withdrawal.ID.String()).Scan(&isNull)
	require.NoError(t, err)
	assert.True(t, isNull)
}
