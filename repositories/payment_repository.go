package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devcon26/registration-api/models"
)

var (
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentNotPending         = errors.New("payment is no longer pending")
	ErrPaymentParticipantInvalid = errors.New("payment participant conflict or invalid")
)

type PaymentRepository interface {
	UpsertPending(ctx context.Context, exec SQLExecutor, p *models.Payment) error
	FindByID(ctx context.Context, id int) (*models.Payment, error)
	FindByParticipantID(ctx context.Context, exec SQLExecutor, participantID int) (*models.Payment, error)
	TransitionStatus(ctx context.Context, exec SQLExecutor, id int, to models.PaymentStatus, verifiedBy *int, method *models.PaymentMethod) (*models.Payment, error)
	ListByStatus(ctx context.Context, status *models.PaymentStatus, limit, offset int) ([]models.Payment, error)
}

type postgresPaymentRepository struct {
	db *sql.DB
}

func NewPostgresPaymentRepository(db *sql.DB) PaymentRepository {
	return &postgresPaymentRepository{db: db}
}

const paymentColumns = `id, participant_id, team_id, amount, method, status, transaction_id, receipt_path, verified_by, verified_at, created_at`

func scanPayment(row rowScanner, p *models.Payment) error {
	return row.Scan(
		&p.ID,
		&p.ParticipantID,
		&p.TeamID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.ReceiptPath,
		&p.VerifiedBy,
		&p.VerifiedAt,
		&p.CreatedAt,
	)
}

// UpsertPending создаёт платёж участника или перезаписывает ещё не
// проверенный. Платёж в статусе verified/rejected не трогается:
// в этом случае возвращается ErrPaymentNotPending.
func (r *postgresPaymentRepository) UpsertPending(ctx context.Context, exec SQLExecutor, p *models.Payment) error {
	query := `
		INSERT INTO payments (participant_id, team_id, amount, method, status, transaction_id, receipt_path)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		ON CONFLICT ON CONSTRAINT payments_participant_id_key DO UPDATE
		SET team_id = EXCLUDED.team_id,
			amount = EXCLUDED.amount,
			method = EXCLUDED.method,
			transaction_id = EXCLUDED.transaction_id,
			receipt_path = EXCLUDED.receipt_path,
			created_at = NOW()
		WHERE payments.status = 'pending'
		RETURNING ` + paymentColumns

	err := scanPayment(executorOr(exec, r.db).QueryRowContext(ctx, query,
		p.ParticipantID,
		p.TeamID,
		p.Amount,
		p.Method,
		p.TransactionID,
		p.ReceiptPath,
	), p)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentNotPending
		}
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqForeignKeyViolation:
				return ErrPaymentParticipantInvalid
			case pqCheckViolation:
				return fmt.Errorf("payment violates check constraint %s: %w", pqErr.Constraint, err)
			}
		}
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

func (r *postgresPaymentRepository) FindByID(ctx context.Context, id int) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p := &models.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by id: %w", err)
	}
	return p, nil
}

func (r *postgresPaymentRepository) FindByParticipantID(ctx context.Context, exec SQLExecutor, participantID int) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE participant_id = $1`
	p := &models.Payment{}
	if err := scanPayment(executorOr(exec, r.db).QueryRowContext(ctx, query, participantID), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by participant: %w", err)
	}
	return p, nil
}

// TransitionStatus переводит платёж из pending в to (compare-and-set).
// Если ни одна строка не обновилась, отдельным запросом выясняем причину:
// платежа нет (ErrPaymentNotFound) или он уже обработан (ErrPaymentNotPending).
func (r *postgresPaymentRepository) TransitionStatus(ctx context.Context, exec SQLExecutor, id int, to models.PaymentStatus, verifiedBy *int, method *models.PaymentMethod) (*models.Payment, error) {
	if !to.Terminal() {
		return nil, fmt.Errorf("invalid target payment status %q", to)
	}

	var methodArg interface{}
	if method != nil {
		methodArg = string(*method)
	}

	query := `
		UPDATE payments
		SET status = $1,
			verified_by = $2,
			verified_at = NOW(),
			method = COALESCE($3, method)
		WHERE id = $4 AND status = 'pending'
		RETURNING ` + paymentColumns

	ex := executorOr(exec, r.db)
	p := &models.Payment{}
	err := scanPayment(ex.QueryRowContext(ctx, query, to, verifiedBy, methodArg, id), p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	var exists bool
	if err := ex.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check payment existence: %w", err)
	}
	if !exists {
		return nil, ErrPaymentNotFound
	}
	return nil, ErrPaymentNotPending
}

func (r *postgresPaymentRepository) ListByStatus(ctx context.Context, status *models.PaymentStatus, limit, offset int) ([]models.Payment, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + paymentColumns + ` FROM payments`
	args := []interface{}{}
	if status != nil {
		args = append(args, *status)
		query += ` WHERE status = $1`
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}
