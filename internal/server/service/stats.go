package service

import (
	"context"
	"fmt"

	"chatter/internal/server/database"
	"chatter/internal/server/storage"
)

// StatsRepository reports row counts.
type StatsRepository interface {
	GetStats(ctx context.Context) (*database.Stats, error)
}

// Stats is a snapshot of server usage.
type Stats struct {
	TotalUploads     int64
	TotalMessages    int64
	StorageUsedBytes int64
	CapacityBytes    int64
}

// StatsService combines row counts with blob-area usage.
type StatsService struct {
	repo  StatsRepository
	store storage.Store
	guard *CapacityGuard
}

func NewStatsService(repo StatsRepository, store storage.Store, guard *CapacityGuard) *StatsService {
	return &StatsService{repo: repo, store: store, guard: guard}
}

func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	used, err := s.store.TotalSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to measure blob area: %w", err)
	}

	return &Stats{
		TotalUploads:     counts.TotalUploads,
		TotalMessages:    counts.TotalMessages,
		StorageUsedBytes: used,
		CapacityBytes:    s.guard.Limit(),
	}, nil
}
