package application

import (
	"context"

	"btclotto/domain/entities"
)

// StatsCache holds recently computed system stats. Each invalidation moves
// the cache to a new generation.
type StatsCache interface {
	// Get returns the cached stats, nil on a miss, and the current generation
	Get(ctx context.Context) (*entities.SystemStats, uint64, error)
	// Set is a no-op once the cache has moved past generation
	Set(ctx context.Context, stats *entities.SystemStats, generation uint64) error
	Invalidate(ctx context.Context) error
}

// MetricsRecorder receives counts of ledger activity
type MetricsRecorder interface {
	RecordBet(amount uint64)
	RecordSettlement(entries int, prizePool uint64, hasWinner bool)
	RecordDeposit(amount uint64)
	RecordWithdrawal(amount uint64, status entities.WithdrawalStatus)
	RecordExternalCallFailure(operation string)
	RecordInvariantViolation()
}

// noopMetrics discards all measurements
type noopMetrics struct{}

func (noopMetrics) RecordBet(uint64) {}
func (noopMetrics) RecordSettlement(int, uint64, bool) {}
func (noopMetrics) RecordDeposit(uint64) {}
func (noopMetrics) RecordWithdrawal(uint64, entities.WithdrawalStatus) {}
func (noopMetrics) RecordExternalCallFailure(string) {}
func (noopMetrics) RecordInvariantViolation() {}
