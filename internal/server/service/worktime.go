package service

import (
	"context"
	"fmt"
	"log/slog"
)

// WorkTimeRepository keeps a running total of seconds per user.
type WorkTimeRepository interface {
	AddWorkingTime(ctx context.Context, username string, seconds int64) (int64, error)
}

// WorkTimeService accumulates working time reported by clients.
type WorkTimeService struct {
	repo WorkTimeRepository
}

func NewWorkTimeService(repo WorkTimeRepository) *WorkTimeService {
	return &WorkTimeService{repo: repo}
}

// AddTime adds seconds to the user's total and returns the new total.
func (s *WorkTimeService) AddTime(ctx context.Context, username string, seconds int64) (int64, error) {
	if seconds <= 0 {
		return 0, ErrInvalidSeconds
	}

	total, err := s.repo.AddWorkingTime(ctx, username, seconds)
	if err != nil {
		return 0, fmt.Errorf("failed to add working time: %w", err)
	}

	slog.Info("working time added", "username", username, "seconds", seconds, "total", total)
	return total, nil
}
