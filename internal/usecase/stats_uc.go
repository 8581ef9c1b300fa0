// File: internal/usecase/stats_uc.go
package usecase

import (
	"context"

	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase serves the admin panel: attempt counts and revenue.
type StatsUseCase interface {
	Totals(ctx context.Context) (map[model.SessionStatus]int, error)
	// Revenue returns succeeded revenue in USD cents for the current
	// week, month and year.
	Revenue(ctx context.Context) (week, month, year int64, err error)
}

type statsUC struct {
	attempts repository.SessionRepository
}

func NewStatsUseCase(attempts repository.SessionRepository) *statsUC {
	return &statsUC{attempts: attempts}
}

func (u *statsUC) Totals(ctx context.Context) (map[model.SessionStatus]int, error) {
	return u.attempts.CountByStatus(ctx, nil)
}

func (u *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	week, err := u.attempts.SumRevenueByPeriod(ctx, nil, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	month, err := u.attempts.SumRevenueByPeriod(ctx, nil, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	year, err := u.attempts.SumRevenueByPeriod(ctx, nil, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return week, month, year, nil
}
