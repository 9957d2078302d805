package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devcon26/registration-api/live"
	"github.com/devcon26/registration-api/metrics"
	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, exec repositories.SQLExecutor, payment *models.Payment) error
	VerifyCashPayment(ctx context.Context, participantID, ambassadorUserID int) (*models.Payment, error)
	VerifyOnlinePayment(ctx context.Context, paymentID int, approve bool, adminUserID int) (*models.Payment, error)
}

// PaymentApprovedHook вызывается после перехода платежа в verified
// (например, для выпуска QR-билета). Ошибка хука только логируется.
type PaymentApprovedHook interface {
	PaymentApproved(ctx context.Context, payment *models.Payment) error
}

type paymentService struct {
	paymentRepo repositories.PaymentRepository
	hook        PaymentApprovedHook
	events      EventPublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	hook PaymentApprovedHook,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) PaymentService {
	if events == nil {
		events = noopPublisher{}
	}
	return &paymentService{
		paymentRepo: paymentRepo,
		hook:        hook,
		events:      events,
		metrics:     m,
		logger:      logger,
	}
}

// CreatePayment сохраняет платёж в статусе pending.
func (s *paymentService) CreatePayment(ctx context.Context, exec repositories.SQLExecutor, payment *models.Payment) error {
	payment.Status = models.PaymentStatusPending
	if err := s.paymentRepo.UpsertPending(ctx, exec, payment); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPaymentNotPending):
			return ErrPaymentNotPending
		case errors.Is(err, repositories.ErrPaymentParticipantInvalid):
			return ErrParticipantNotFound
		default:
			return fmt.Errorf("failed to create payment: %w", err)
		}
	}
	return nil
}

// VerifyCashPayment подтверждает наличную оплату участника. Повторная
// проверка уже обработанного платежа даёт ErrPaymentNotPending (409).
func (s *paymentService) VerifyCashPayment(ctx context.Context, participantID, ambassadorUserID int) (*models.Payment, error) {
	existing, err := s.paymentRepo.FindByParticipantID(ctx, nil, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPendingPaymentAbsent
		}
		return nil, fmt.Errorf("failed to find payment for participant %d: %w", participantID, err)
	}
	if existing.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrPaymentNotPending, existing.Status)
	}

	cash := models.PaymentMethodCash
	payment, err := s.transition(ctx, existing.ID, models.PaymentStatusVerified, ambassadorUserID, &cash)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrPendingPaymentAbsent
		}
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) VerifyOnlinePayment(ctx context.Context, paymentID int, approve bool, adminUserID int) (*models.Payment, error) {
	status := models.PaymentStatusRejected
	if approve {
		status = models.PaymentStatusVerified
	}
	return s.transition(ctx, paymentID, status, adminUserID, nil)
}

func (s *paymentService) transition(ctx context.Context, paymentID int, to models.PaymentStatus, actorUserID int, method *models.PaymentMethod) (*models.Payment, error) {
	payment, err := s.paymentRepo.TransitionStatus(ctx, nil, paymentID, to, &actorUserID, method)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrPaymentNotFound):
			return nil, ErrPaymentNotFound
		case errors.Is(err, repositories.ErrPaymentNotPending):
			return nil, ErrPaymentNotPending
		default:
			return nil, fmt.Errorf("failed to update payment %d: %w", paymentID, err)
		}
	}

	s.metrics.PaymentDecided(string(payment.Method), string(payment.Status))
	s.logger.InfoContext(ctx, "Payment status changed",
		slog.Int("payment_id", payment.ID),
		slog.Int("participant_id", payment.ParticipantID),
		slog.String("status", string(payment.Status)),
		slog.String("method", string(payment.Method)),
		slog.Int("actor_user_id", actorUserID),
	)

	if payment.Status == models.PaymentStatusVerified {
		s.events.Publish(live.EventPaymentVerified, payment)
		if s.hook != nil {
			if hookErr := s.hook.PaymentApproved(ctx, payment); hookErr != nil {
				s.logger.ErrorContext(ctx, "Payment approved hook failed", slog.Int("payment_id", payment.ID), slog.Any("error", hookErr))
			}
		}
	} else {
		s.events.Publish(live.EventPaymentRejected, payment)
	}
	return payment, nil
}

// LoggingApprovalHook только пишет в лог; выпуск билетов подключается
// отдельной реализацией PaymentApprovedHook.
type LoggingApprovalHook struct {
	Logger *slog.Logger
}

func (h LoggingApprovalHook) PaymentApproved(ctx context.Context, payment *models.Payment) error {
	h.Logger.InfoContext(ctx, "Payment approved, ticket issuance pending",
		slog.Int("payment_id", payment.ID),
		slog.Int("participant_id", payment.ParticipantID),
	)
	return nil
}
