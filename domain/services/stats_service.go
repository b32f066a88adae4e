package services

import (
	"context"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"
)

// statsService derives system statistics from committed state
type statsService struct {
	statsRepo interfaces.StatsRepository
}

// NewStatsService creates a new stats service
func NewStatsService(statsRepo interfaces.StatsRepository) interfaces.StatsService {
	return &statsService{statsRepo: statsRepo}
}

// GetStats recomputes the aggregates
func (s *statsService) GetStats(ctx context.Context) (*entities.SystemStats, error) {
	stats, err := s.statsRepo.GetSystemStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}
