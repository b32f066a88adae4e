package application

import (
	"context"
	"errors"
	"testing"

	"btclotto/domain/entities"
	"btclotto/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	handlers map[events.EventType][]func(context.Context, events.Event) error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{handlers: make(map[events.EventType][]func(context.Context, events.Event) error)}
}

func (r *fakeRegistry) RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error) {
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

func (r *fakeRegistry) dispatch(t *testing.T, event events.Event) []error {
	t.Helper()
	var errs []error
	for _, handler := range r.handlers[event.Type()] {
		if err := handler(context.Background(), event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

type fakeStatsCache struct {
	stats         *entities.SystemStats
	invalidations int
	getErr        error
	invalidateErr error
}

func (c *fakeStatsCache) Get(ctx context.Context) (*entities.SystemStats, uint64, error) {
	return c.stats, uint64(c.invalidations), c.getErr
}

func (c *fakeStatsCache) Set(ctx context.Context, stats *entities.SystemStats, generation uint64) error {
	if generation == uint64(c.invalidations) {
		c.stats = stats
	}
	return nil
}

func (c *fakeStatsCache) Invalidate(ctx context.Context) error {
	c.invalidations++
	c.stats = nil
	return c.invalidateErr
}

type recordingMetrics struct {
	noopMetrics
	bets        []uint64
	settlements int
	winners     int
	deposits    []uint64
	withdrawals []entities.WithdrawalStatus
}

func (m *recordingMetrics) RecordBet(amount uint64) {
	m.bets = append(m.bets, amount)
}

func (m *recordingMetrics) RecordSettlement(entries int, prizePool uint64, hasWinner bool) {
	m.settlements++
	if hasWinner {
		m.winners++
	}
}

func (m *recordingMetrics) RecordDeposit(amount uint64) {
	m.deposits = append(m.deposits, amount)
}

func (m *recordingMetrics) RecordWithdrawal(amount uint64, status entities.WithdrawalStatus) {
	m.withdrawals = append(m.withdrawals, status)
}

func TestRegisterApplicationSubscriptions_InvalidatesStatsCache(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	cache := &fakeStatsCache{stats: &entities.SystemStats{TotalRounds: 3}}
	RegisterApplicationSubscriptions(registry, cache, nil)

	winner := entities.Principal("ryjl3-tyaaa-aaaaa-aaaba-cai")
	for _, event := range []events.Event{
		events.RoundSettledEvent{RoundID: 1, Winner: &winner, PrizePool: 10, EntryCount: 1},
		events.DepositConfirmedEvent{Owner: winner, TxHash: "abc", Amount: 500},
		events.UserCreatedEvent{Owner: winner},
		events.BetPlacedEvent{Owner: winner, RoundID: 2, Amount: 10},
	} {
		assert.Empty(t, registry.dispatch(t, event))
	}

	assert.Equal(t, 4, cache.invalidations)
	assert.Nil(t, cache.stats)

	// Events that do not change stats leave the cache alone
	registry.dispatch(t, events.RoundOpenedEvent{RoundID: 3})
	assert.Equal(t, 4, cache.invalidations)
}

func TestRegisterApplicationSubscriptions_InvalidationErrorIsReported(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	cache := &fakeStatsCache{invalidateErr: errors.New("redis down")}
	RegisterApplicationSubscriptions(registry, cache, nil)

	errs := registry.dispatch(t, events.UserCreatedEvent{Owner: "2vxsx-fae"})
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "redis down")
}

func TestRegisterApplicationSubscriptions_RecordsMetrics(t *testing.T) {
	t.Parallel()

	registry := newFakeRegistry()
	metrics := &recordingMetrics{}
	RegisterApplicationSubscriptions(registry, nil, metrics)

	winner := entities.Principal("ryjl3-tyaaa-aaaaa-aaaba-cai")
	registry.dispatch(t, events.BetPlacedEvent{Owner: winner, Amount: 1_000_000})
	registry.dispatch(t, events.BetPlacedEvent{Owner: winner, Amount: 1_000_000})
	registry.dispatch(t, events.RoundSettledEvent{RoundID: 1, Winner: &winner, PrizePool: 2_000_000, EntryCount: 2})
	registry.dispatch(t, events.RoundSettledEvent{RoundID: 2})
	registry.dispatch(t, events.DepositConfirmedEvent{Owner: winner, Amount: 500})
	registry.dispatch(t, events.WithdrawalChangedEvent{Owner: winner, Amount: 100, Status: entities.WithdrawalStatusPending})
	registry.dispatch(t, events.WithdrawalChangedEvent{Owner: winner, Amount: 100, Status: entities.WithdrawalStatusCompleted})
	registry.dispatch(t, events.WithdrawalChangedEvent{Owner: winner, Amount: 100, Status: entities.WithdrawalStatusFailed})

	assert.Equal(t, []uint64{1_000_000, 1_000_000}, metrics.bets)
	assert.Equal(t, 2, metrics.settlements)
	assert.Equal(t, 1, metrics.winners)
	assert.Equal(t, []uint64{500}, metrics.deposits)
	assert.Equal(t, []entities.WithdrawalStatus{
		entities.WithdrawalStatusCompleted,
		entities.WithdrawalStatusFailed,
	}, metrics.withdrawals, "pending withdrawals are not counted")
}

func TestAssertEventType(t *testing.T) {
	t.Parallel()

	event, err := AssertEventType[events.BetPlacedEvent](events.BetPlacedEvent{RoundID: 7}, "BetPlacedEvent")
	require.NoError(t, err)
	assert.Equal(t, int64(7), event.RoundID)

	_, err = AssertEventType[events.BetPlacedEvent](events.RoundOpenedEvent{RoundID: 7}, "BetPlacedEvent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected BetPlacedEvent")
	assert.Contains(t, err.Error(), "round_opened")

	_, err = AssertEventType[events.BetPlacedEvent](nil, "BetPlacedEvent")
	assert.ErrorContains(t, err, "got nil")
}
