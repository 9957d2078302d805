package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
// Конкретные ошибки оборачивают одну из "родовых" (ErrNotFound, ErrConflict...),
// поэтому хендлеру достаточно errors.Is по родовой ошибке.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed = errors.New("validation failed")

	// Ошибки конфликтов
	ErrConflict = errors.New("conflict with current state")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
)

func kindError(kind error, msg string) error {
	return &serviceError{kind: kind, msg: msg}
}

type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

var (
	// Регистрация
	ErrParticipantExists    = kindError(ErrValidationFailed, "Participant profile already exists")
	ErrInvalidTrack         = kindError(ErrValidationFailed, "invalid track")
	ErrTeamTrackMismatch    = kindError(ErrValidationFailed, "team track does not match participant track")
	ErrTeamNameConflict     = kindError(ErrConflict, "team name is already in use")
	ErrTeamFull             = kindError(ErrConflict, "team is full")
	ErrJoinCodeGeneration   = errors.New("failed to generate unique team join code")
	ErrParticipantRequired  = kindError(ErrForbiddenOperation, "participant profile required")
	ErrUserNotFound         = kindError(ErrNotFound, "user not found")
	ErrTeamNotFound         = kindError(ErrNotFound, "team not found")
	ErrParticipantNotFound  = kindError(ErrNotFound, "participant not found")
	ErrSearchCriteriaNeeded = kindError(ErrValidationFailed, "Provide either email or student_id")

	// Платежи
	ErrPaymentNotFound      = kindError(ErrNotFound, "Payment not found")
	ErrPendingPaymentAbsent = kindError(ErrNotFound, "No pending payment found for participant")
	ErrPaymentNotPending    = kindError(ErrConflict, "payment has already been processed")
	ErrReceiptRequired      = kindError(ErrValidationFailed, "receipt file is required")
	ErrReceiptExtension     = kindError(ErrValidationFailed, "file type not allowed")
	ErrReceiptTooLarge      = kindError(ErrValidationFailed, "file too large")
	ErrTransactionIDMissing = kindError(ErrValidationFailed, "transaction_id is required")
	ErrReceiptUnavailable   = kindError(ErrNotFound, "receipt not available for this payment")

	// Админка
	ErrUnsupportedExportFormat = kindError(ErrValidationFailed, "Invalid format. Use 'csv' or 'excel'")
	ErrInvalidRole             = kindError(ErrValidationFailed, "invalid role")
	ErrInvalidPaymentStatus    = kindError(ErrValidationFailed, "invalid payment status")
)
