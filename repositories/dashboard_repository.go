package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devcon26/registration-api/models"
)

// DashboardRepository выполняет агрегирующие запросы для админ-панели.
// Все методы принимают exec, чтобы сервис мог прочитать их из одного снимка.
type DashboardRepository interface {
	CountParticipants(ctx context.Context, exec SQLExecutor) (int, error)
	PaymentSummary(ctx context.Context, exec SQLExecutor) (models.PaymentsSummary, error)
	TrackDistribution(ctx context.Context, exec SQLExecutor) (map[string]int, error)
	UniversityDistribution(ctx context.Context, exec SQLExecutor) (map[string]int, error)
}

type postgresDashboardRepository struct {
	db *sql.DB
}

func NewPostgresDashboardRepository(db *sql.DB) DashboardRepository {
	return &postgresDashboardRepository{db: db}
}

func (r *postgresDashboardRepository) CountParticipants(ctx context.Context, exec SQLExecutor) (int, error) {
	var total int
	if err := executorOr(exec, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return total, nil
}

func (r *postgresDashboardRepository) PaymentSummary(ctx context.Context, exec SQLExecutor) (models.PaymentsSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'verified'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'verified'), 0)
		FROM payments`

	var s models.PaymentsSummary
	err := executorOr(exec, r.db).QueryRowContext(ctx, query).Scan(
		&s.Total,
		&s.Pending,
		&s.Verified,
		&s.Rejected,
		&s.VerifiedAmount,
	)
	if err != nil {
		return models.PaymentsSummary{}, fmt.Errorf("failed to summarize payments: %w", err)
	}
	return s, nil
}

func (r *postgresDashboardRepository) TrackDistribution(ctx context.Context, exec SQLExecutor) (map[string]int, error) {
	return r.distribution(ctx, exec, `SELECT track, COUNT(*) FROM participants GROUP BY track`)
}

// Участники без указанного университета попадают в группу "".
func (r *postgresDashboardRepository) UniversityDistribution(ctx context.Context, exec SQLExecutor) (map[string]int, error) {
	query := `
		SELECT u.university, COUNT(*)
		FROM participants p
		JOIN users u ON u.id = p.user_id
		GROUP BY u.university`
	return r.distribution(ctx, exec, query)
}

func (r *postgresDashboardRepository) distribution(ctx context.Context, exec SQLExecutor, query string) (map[string]int, error) {
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan distribution row: %w", err)
		}
		out[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution rows: %w", err)
	}
	return out, nil
}
