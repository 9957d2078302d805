package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	db            TxBeginner
	dashboardRepo repositories.DashboardRepository
	logger        *slog.Logger
}

func NewDashboardService(db TxBeginner, dashboardRepo repositories.DashboardRepository, logger *slog.Logger) DashboardService {
	return &dashboardService{
		db:            db,
		dashboardRepo: dashboardRepo,
		logger:        logger,
	}
}

// GetStats читает все агрегаты из одного снимка (REPEATABLE READ), поэтому
// сумма по трекам всегда равна total_participants.
func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

	err := withTx(ctx, s.db, opts, s.logger, func(tx *sql.Tx) error {
		var err error
		if stats.TotalParticipants, err = s.dashboardRepo.CountParticipants(ctx, tx); err != nil {
			return err
		}
		if stats.PaymentsSummary, err = s.dashboardRepo.PaymentSummary(ctx, tx); err != nil {
			return err
		}
		if stats.TrackDistribution, err = s.dashboardRepo.TrackDistribution(ctx, tx); err != nil {
			return err
		}
		if stats.UniversityDistribution, err = s.dashboardRepo.UniversityDistribution(ctx, tx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return stats, nil
}
