package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/devcon26/registration-api/live"
	"github.com/devcon26/registration-api/metrics"
	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
	"github.com/devcon26/registration-api/storage"
)

type ParticipantService interface {
	Register(ctx context.Context, input RegisterInput, userID int) (*models.Participant, error)
	GetProfile(ctx context.Context, participantID int) (*models.Participant, error)
	GetByUserID(ctx context.Context, userID int) (*models.Participant, error)
	UploadPaymentProof(ctx context.Context, participant *models.Participant, input UploadReceiptInput) (*models.Payment, error)
	DeclareCashPayment(ctx context.Context, participant *models.Participant) (*models.Payment, error)
}

// RegisterInput — тело запроса регистрации участника.
type RegisterInput struct {
	Track         models.Track `json:"track"`
	CreateNewTeam bool         `json:"create_new_team"`
	TeamName      *string      `json:"team_name,omitempty"`
	TeamCode      *string      `json:"team_code,omitempty"`
}

type UploadReceiptInput struct {
	TransactionID string
	FileName      string
	ContentType   string
	Size          int64
	File          io.Reader
}

// EventPublisher получает события для ленты администраторов.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

type ParticipantServiceConfig struct {
	MaxTeamSize       int
	RegistrationFee   int64
	AllowedExtensions []string
	MaxFileSize       int64
}

type participantService struct {
	db              TxBeginner
	participantRepo repositories.ParticipantRepository
	teamRepo        repositories.TeamRepository
	payments        PaymentService
	paymentRepo     repositories.PaymentRepository
	uploader        storage.FileUploader
	events          EventPublisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	cfg             ParticipantServiceConfig
}

func NewParticipantService(
	db TxBeginner,
	participantRepo repositories.ParticipantRepository,
	teamRepo repositories.TeamRepository,
	paymentRepo repositories.PaymentRepository,
	payments PaymentService,
	uploader storage.FileUploader,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg ParticipantServiceConfig,
) ParticipantService {
	if events == nil {
		events = noopPublisher{}
	}
	return &participantService{
		db:              db,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		paymentRepo:     paymentRepo,
		payments:        payments,
		uploader:        uploader,
		events:          events,
		metrics:         m,
		logger:          logger,
		cfg:             cfg,
	}
}

// Register создаёт профиль участника и, при необходимости, команду или
// вступление в неё. Всё выполняется в одной транзакции.
func (s *participantService) Register(ctx context.Context, input RegisterInput, userID int) (*models.Participant, error) {
	if !input.Track.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTrack, input.Track)
	}

	teamName := sanitizeText(derefString(input.TeamName))
	teamCode := normalizeJoinCode(derefString(input.TeamCode))
	createTeam := input.CreateNewTeam && teamName != ""
	// create_new_team без имени и кода: обычная индивидуальная регистрация
	joinTeam := !createTeam && teamCode != ""

	participant := &models.Participant{
		UserID: userID,
		Track:  input.Track,
	}

	err := withTx(ctx, s.db, nil, s.logger, func(tx *sql.Tx) error {
		if _, err := s.participantRepo.FindByUserID(ctx, tx, userID); err == nil {
			return ErrParticipantExists
		} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return fmt.Errorf("failed to check existing participant: %w", err)
		}

		// Строку команды блокируем до вставки участника, чтобы параллельные
		// вступления по одному коду выполнялись строго по очереди.
		var team *models.Team
		if joinTeam {
			var err error
			team, err = s.lockTeamForJoin(ctx, tx, teamCode, input.Track)
			if err != nil {
				return err
			}
		}

		if err := s.participantRepo.Create(ctx, tx, participant); err != nil {
			switch {
			case errors.Is(err, repositories.ErrParticipantConflict):
				return ErrParticipantExists
			case errors.Is(err, repositories.ErrParticipantUserInvalid):
				return ErrUserNotFound
			default:
				return err
			}
		}

		switch {
		case createTeam:
			created, err := s.createTeam(ctx, tx, teamName, participant)
			if err != nil {
				return err
			}
			team = created
			participant.IsTeamLead = true
		case joinTeam:
			if err := s.teamRepo.IncrementMemberCount(ctx, tx, team.ID); err != nil {
				return fmt.Errorf("failed to add member to team %d: %w", team.ID, err)
			}
			team.MemberCount++
		}

		if team != nil {
			if err := s.participantRepo.AssignTeam(ctx, tx, participant.ID, team.ID, participant.IsTeamLead); err != nil {
				return fmt.Errorf("failed to link participant %d to team %d: %w", participant.ID, team.ID, err)
			}
			participant.TeamID = &team.ID
			participant.Team = team
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	teamLabel := "none"
	if createTeam {
		teamLabel = "new"
	} else if joinTeam {
		teamLabel = "joined"
	}
	s.metrics.RegistrationCreated(string(participant.Track), teamLabel)
	s.events.Publish(live.EventRegistrationCreated, participant)
	s.logger.InfoContext(ctx, "Participant registered",
		slog.Int("participant_id", participant.ID),
		slog.Int("user_id", userID),
		slog.String("track", string(participant.Track)),
		slog.String("team", teamLabel),
	)

	return participant, nil
}

func (s *participantService) lockTeamForJoin(ctx context.Context, tx *sql.Tx, code string, track models.Track) (*models.Team, error) {
	team, err := s.teamRepo.GetByJoinCodeForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team by code: %w", err)
	}
	if team.Track != track {
		return nil, fmt.Errorf("%w: team is in %q, participant chose %q", ErrTeamTrackMismatch, team.Track, track)
	}
	if s.cfg.MaxTeamSize > 0 && team.MemberCount >= s.cfg.MaxTeamSize {
		return nil, ErrTeamFull
	}
	return team, nil
}

// createTeam пробует до joinCodeMaxAttempts кодов. Конфликт в Postgres
// обрывает транзакцию, поэтому каждая попытка идёт под своим savepoint.
func (s *participantService) createTeam(ctx context.Context, tx *sql.Tx, name string, leader *models.Participant) (*models.Team, error) {
	for attempt := 0; attempt < joinCodeMaxAttempts; attempt++ {
		code, err := generateJoinCode()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrJoinCodeGeneration, err)
		}

		team := &models.Team{
			Name:                name,
			Track:               leader.Track,
			LeaderParticipantID: leader.ID,
			JoinCode:            code,
			MemberCount:         1,
		}

		if _, err := tx.ExecContext(ctx, "SAVEPOINT create_team"); err != nil {
			return nil, fmt.Errorf("failed to set savepoint: %w", err)
		}
		err = s.teamRepo.Create(ctx, tx, team)
		if err == nil {
			return team, nil
		}

		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		if !errors.Is(err, repositories.ErrTeamJoinCodeConflict) {
			return nil, fmt.Errorf("failed to create team: %w", err)
		}
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT create_team"); rbErr != nil {
			return nil, fmt.Errorf("failed to roll back to savepoint: %w", rbErr)
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrJoinCodeGeneration, joinCodeMaxAttempts)
}

func (s *participantService) GetProfile(ctx context.Context, participantID int) (*models.Participant, error) {
	p, err := s.participantRepo.GetWithDetails(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant %d: %w", participantID, err)
	}
	return p, nil
}

func (s *participantService) GetByUserID(ctx context.Context, userID int) (*models.Participant, error) {
	p, err := s.participantRepo.FindByUserID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantRequired
		}
		return nil, fmt.Errorf("failed to get participant for user %d: %w", userID, err)
	}
	return p, nil
}

// UploadPaymentProof сохраняет квитанцию и создаёт (или заменяет ещё не
// проверенный) онлайн-платёж. Сумма всегда берётся из конфигурации.
func (s *participantService) UploadPaymentProof(ctx context.Context, participant *models.Participant, input UploadReceiptInput) (*models.Payment, error) {
	txID := strings.TrimSpace(input.TransactionID)
	if txID == "" {
		return nil, ErrTransactionIDMissing
	}
	if input.File == nil {
		return nil, ErrReceiptRequired
	}
	if err := ValidateReceipt(input.FileName, input.Size, s.cfg.AllowedExtensions, s.cfg.MaxFileSize); err != nil {
		return nil, err
	}

	previous, err := s.currentPayment(ctx, participant.ID)
	if err != nil {
		return nil, err
	}

	key := receiptKey(participant.ID, input.FileName)
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body := &sizeLimitedReader{r: input.File, remaining: s.cfg.MaxFileSize}
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		if body.exceeded {
			return nil, fmt.Errorf("%w: maximum is %d bytes", ErrReceiptTooLarge, s.cfg.MaxFileSize)
		}
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}

	payment := &models.Payment{
		ParticipantID: participant.ID,
		TeamID:        participant.TeamID,
		Amount:        s.cfg.RegistrationFee,
		Method:        models.PaymentMethodOnline,
		TransactionID: &txID,
		ReceiptPath:   &key,
	}
	if err := s.payments.CreatePayment(ctx, nil, payment); err != nil {
		if errors.Is(err, ErrPaymentNotPending) {
			// Платёж успели проверить параллельно; новый файл не нужен,
			// если только он не перезаписал квитанцию этого же платежа.
			if latest, lookupErr := s.paymentRepo.FindByParticipantID(ctx, nil, participant.ID); lookupErr == nil && derefString(latest.ReceiptPath) != key {
				s.removeReceipt(ctx, key)
			}
		} else {
			s.removeReceipt(ctx, key)
		}
		return nil, err
	}

	if previous != nil && previous.ReceiptPath != nil && *previous.ReceiptPath != key {
		s.removeReceipt(ctx, *previous.ReceiptPath)
	}

	s.afterPaymentSubmitted(ctx, payment)
	return payment, nil
}

// DeclareCashPayment фиксирует намерение оплатить наличными: создаётся
// pending-платёж, который затем подтверждает амбассадор.
func (s *participantService) DeclareCashPayment(ctx context.Context, participant *models.Participant) (*models.Payment, error) {
	previous, err := s.currentPayment(ctx, participant.ID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ParticipantID: participant.ID,
		TeamID:        participant.TeamID,
		Amount:        s.cfg.RegistrationFee,
		Method:        models.PaymentMethodCash,
	}
	if err := s.payments.CreatePayment(ctx, nil, payment); err != nil {
		return nil, err
	}

	if previous != nil && previous.ReceiptPath != nil {
		s.removeReceipt(ctx, *previous.ReceiptPath)
	}

	s.afterPaymentSubmitted(ctx, payment)
	return payment, nil
}

// currentPayment возвращает существующий платёж участника (или nil).
// Уже обработанный платёж повторно отправить нельзя.
func (s *participantService) currentPayment(ctx context.Context, participantID int) (*models.Payment, error) {
	existing, err := s.paymentRepo.FindByParticipantID(ctx, nil, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up payment for participant %d: %w", participantID, err)
	}
	if existing.Status.Terminal() {
		return nil, fmt.Errorf("%w: status is %s", ErrPaymentNotPending, existing.Status)
	}
	return existing, nil
}

func (s *participantService) afterPaymentSubmitted(ctx context.Context, payment *models.Payment) {
	s.metrics.PaymentSubmitted(string(payment.Method))
	s.events.Publish(live.EventPaymentSubmitted, payment)
	s.logger.InfoContext(ctx, "Payment submitted",
		slog.Int("payment_id", payment.ID),
		slog.Int("participant_id", payment.ParticipantID),
		slog.String("method", string(payment.Method)),
	)
}

func (s *participantService) removeReceipt(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete receipt", slog.String("key", key), slog.Any("error", err))
	}
}

func receiptKey(participantID int, fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	base = strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	return fmt.Sprintf("receipt_%d_%s", participantID, base)
}
