package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"

	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
	"github.com/devcon26/registration-api/storage"
)

type AdminUserService interface {
	ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error)
	UpdateUserRole(ctx context.Context, userID int, role models.UserRole, actingAdminID int) (*models.User, error)
}

type adminUserService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAdminUserService(userRepo repositories.UserRepository, logger *slog.Logger) AdminUserService {
	return &adminUserService{userRepo: userRepo, logger: logger}
}

func (s *adminUserService) ListUsers(ctx context.Context, filter models.UserFilter) (models.UserListResponse, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return models.UserListResponse{}, ErrInvalidRole
	}
	filter.Search = sanitizeText(filter.Search)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	} else if filter.Limit > 200 {
		filter.Limit = 200
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return models.UserListResponse{}, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return models.UserListResponse{
		Users:      users,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// UpdateUserRole меняет роль пользователя. Администратор не может снять
// роль с самого себя, иначе система может остаться без админов.
func (s *adminUserService) UpdateUserRole(ctx context.Context, userID int, role models.UserRole, actingAdminID int) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if userID == actingAdminID && role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: cannot change your own admin role", ErrForbiddenOperation)
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrUserRoleViolation):
			return nil, ErrInvalidRole
		default:
			return nil, fmt.Errorf("failed to update role for user %d: %w", userID, err)
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to reload user %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "User role changed",
		slog.Int("user_id", userID),
		slog.String("role", string(role)),
		slog.Int("admin_id", actingAdminID),
	)
	return user, nil
}

// VerificationResult — ответ на подтверждение/отклонение платежа.
type VerificationResult struct {
	Message   string `json:"message"`
	PaymentID int    `json:"payment_id"`
}

type ReceiptFile struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
	// PublicURL заполнен, если хранилище отдаёт файл напрямую.
	PublicURL string
}

type AdminPaymentService interface {
	VerifyPayment(ctx context.Context, paymentID int, approve bool, adminUserID int) (*VerificationResult, error)
	ListPayments(ctx context.Context, status string, page, limit int) ([]models.Payment, error)
	OpenReceipt(ctx context.Context, paymentID int) (*ReceiptFile, error)
}

type adminPaymentService struct {
	payments    PaymentService
	paymentRepo repositories.PaymentRepository
	uploader    storage.FileUploader
}

func NewAdminPaymentService(payments PaymentService, paymentRepo repositories.PaymentRepository, uploader storage.FileUploader) AdminPaymentService {
	return &adminPaymentService{
		payments:    payments,
		paymentRepo: paymentRepo,
		uploader:    uploader,
	}
}

func (s *adminPaymentService) VerifyPayment(ctx context.Context, paymentID int, approve bool, adminUserID int) (*VerificationResult, error) {
	payment, err := s.payments.VerifyOnlinePayment(ctx, paymentID, approve, adminUserID)
	if err != nil {
		return nil, err
	}
	message := "Payment rejected"
	if approve {
		message = "Payment approved"
	}
	return &VerificationResult{Message: message, PaymentID: payment.ID}, nil
}

// ListPayments — очередь проверки; пустой status означает все платежи.
func (s *adminPaymentService) ListPayments(ctx context.Context, status string, page, limit int) ([]models.Payment, error) {
	var filter *models.PaymentStatus
	if status != "" {
		st := models.PaymentStatus(status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, status)
		}
		filter = &st
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	payments, err := s.paymentRepo.ListByStatus(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	for i := range payments {
		s.populateReceiptURL(&payments[i])
	}
	return payments, nil
}

func (s *adminPaymentService) populateReceiptURL(p *models.Payment) {
	if p.ReceiptPath == nil || *p.ReceiptPath == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*p.ReceiptPath); url != "" {
		p.ReceiptURL = &url
	}
}

func (s *adminPaymentService) OpenReceipt(ctx context.Context, paymentID int) (*ReceiptFile, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment %d: %w", paymentID, err)
	}
	key := derefString(payment.ReceiptPath)
	if key == "" {
		return nil, ErrReceiptUnavailable
	}

	if url := s.uploader.GetPublicURL(key); url != "" {
		return &ReceiptFile{FileName: key, PublicURL: url}, nil
	}

	body, err := s.uploader.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrReceiptUnavailable
		}
		return nil, fmt.Errorf("failed to open receipt for payment %d: %w", paymentID, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ReceiptFile{Body: body, FileName: key, ContentType: contentType}, nil
}
