package repository

import (
	"context"
	"fmt"

	"btclotto/database"
	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
)

// StatsRepository aggregates committed state
type StatsRepository struct {
	q Queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

// NewStatsRepositoryWithTx creates a new stats repository bound to a transaction
func NewStatsRepositoryWithTx(tx Queryable) interfaces.StatsRepository {
	return &StatsRepository{q: tx}
}

// GetSystemStats recomputes all aggregates in a single statement
func (r *StatsRepository) GetSystemStats(ctx context.Context) (*entities.SystemStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM rounds WHERE status = 'drawn'),
			(SELECT COUNT(*) FROM round_entries),
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM winnings),
			(SELECT COUNT(*) FROM accounts),
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM deposits WHERE status = 'confirmed')
	`

	var rounds, bets, winnings, users, deposits int64
	if err := r.q.QueryRow(ctx, query).Scan(&rounds, &bets, &winnings, &users, &deposits); err != nil {
		return nil, fmt.Errorf("failed to compute system stats: %w", err)
	}

	stats := &entities.SystemStats{}
	var err error
	if stats.TotalRounds, err = toAmount(rounds, "round count"); err != nil {
		return nil, err
	}
	if stats.TotalBets, err = toAmount(bets, "bet count"); err != nil {
		return nil, err
	}
	if stats.TotalWinnings, err = toAmount(winnings, "total winnings"); err != nil {
		return nil, err
	}
	if stats.ActiveUsers, err = toAmount(users, "account count"); err != nil {
		return nil, err
	}
	if stats.TotalDeposits, err = toAmount(deposits, "total deposits"); err != nil {
		return nil, err
	}

	return stats, nil
}
