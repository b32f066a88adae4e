package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"btclotto/application"
	"btclotto/config"
	"btclotto/domain/entities"
	"btclotto/domain/testhelpers"
	"btclotto/infrastructure"
	"btclotto/infrastructure/ledger"
	"btclotto/repository/testutil"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

const testLedgerFee = 10

// testClock is the wall clock shifted by an adjustable offset, so rounds can
// expire without sleeping while database timestamps stay comparable
type testClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

type ledgerFixture struct {
	ledger    *application.Ledger
	external  *ledger.MemoryLedger
	publisher *infrastructure.NoopEventPublisher
	clock     *testClock
	rules     entities.LotteryRules
	deployer  entities.Principal
}

// ledgerSetup collects fixture overrides before the ledger is built
type ledgerSetup struct {
	settings application.Settings
	options  []application.LedgerOption
}

func withSettings(fn func(*application.Settings)) func(*ledgerSetup) {
	return func(s *ledgerSetup) { fn(&s.settings) }
}

func withLedgerOptions(opts ...application.LedgerOption) func(*ledgerSetup) {
	return func(s *ledgerSetup) { s.options = append(s.options, opts...) }
}

func setupLedger(t *testing.T, configure ...func(*ledgerSetup)) *ledgerFixture {
	t.Helper()

	testDB := testutil.SetupTestDatabase(t)
	cfg := config.Get()

	treasury, err := cfg.Treasury()
	require.NoError(t, err)
	rules := cfg.Rules()
	deployer := testutil.TestPrincipal(99)

	clock := &testClock{}
	external := ledger.NewMemoryLedger(treasury, testLedgerFee).WithClock(clock.Now)
	publisher := infrastructure.NewNoopEventPublisher()

	setup := &ledgerSetup{
		settings: application.Settings{
			Treasury: treasury,
			Deployer: deployer,
			Rules:    rules,
		},
		options: []application.LedgerOption{
			application.WithClock(clock.Now),
			application.WithRetryPolicy(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		},
	}
	for _, fn := range configure {
		fn(setup)
	}

	l := application.NewLedger(
		infrastructure.NewUnitOfWorkFactory(testDB.DB, publisher),
		external,
		&testhelpers.SequenceRandomness{Beacons: [][]byte{[]byte("beacon-1"), []byte("beacon-2")}},
		setup.settings,
		setup.options...,
	)

	return &ledgerFixture{
		ledger:    l,
		external:  external,
		publisher: publisher,
		clock:     clock,
		rules:     rules,
		deployer:  deployer,
	}
}

// payIntoDepositAccount mints funds for the player and has them transfer into
// their deposit account, returning the ledger block index
func (f *ledgerFixture) payIntoDepositAccount(t *testing.T, owner entities.Principal, amount uint64) uint64 {
	t.Helper()

	f.external.Mint(entities.LedgerAccount{Owner: owner}, amount+testLedgerFee)
	depositAccount, err := f.ledger.DepositAccount(owner)
	require.NoError(t, err)

	blockIndex, err := f.external.ForCaller(owner).Transfer(context.Background(), entities.TransferArgs{
		To:     depositAccount,
		Amount: amount,
	})
	require.NoError(t, err)
	return blockIndex
}

// createFundedUser creates an account credited with amount through a real deposit
func (f *ledgerFixture) createFundedUser(t *testing.T, owner entities.Principal, amount uint64) {
	t.Helper()
	ctx := context.Background()

	_, err := f.ledger.CreateUser(ctx, owner)
	require.NoError(t, err)
	if amount == 0 {
		return
	}

	f.payIntoDepositAccount(t, owner, amount)
	report, err := f.ledger.CheckDeposits(ctx, owner)
	require.NoError(t, err)
	require.Len(t, report.Credited, 1)
}

func (f *ledgerFixture) balance(t *testing.T, owner entities.Principal) uint64 {
	t.Helper()
	account, err := f.ledger.GetUser(context.Background(), owner)
	require.NoError(t, err)
	require.NotNil(t, account)
	return account.Balance
}
