package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
)

const ambassadorSearchLimit = 50

type AmbassadorService interface {
	Search(ctx context.Context, email, studentID string) ([]models.ParticipantSearchResult, error)
	VerifyCash(ctx context.Context, participantID, ambassadorUserID int) (*VerificationResult, error)
}

type ambassadorService struct {
	participantRepo repositories.ParticipantRepository
	payments        PaymentService
}

func NewAmbassadorService(participantRepo repositories.ParticipantRepository, payments PaymentService) AmbassadorService {
	return &ambassadorService{
		participantRepo: participantRepo,
		payments:        payments,
	}
}

// Search ищет участника на стойке регистрации по email (подстрока) и/или student_id.
func (s *ambassadorService) Search(ctx context.Context, email, studentID string) ([]models.ParticipantSearchResult, error) {
	email = strings.TrimSpace(email)
	studentID = strings.TrimSpace(studentID)
	if email == "" && studentID == "" {
		return nil, ErrSearchCriteriaNeeded
	}

	results, err := s.participantRepo.Search(ctx, email, studentID, ambassadorSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search participants: %w", err)
	}
	return results, nil
}

func (s *ambassadorService) VerifyCash(ctx context.Context, participantID, ambassadorUserID int) (*VerificationResult, error) {
	if participantID <= 0 {
		return nil, fmt.Errorf("%w: participant_id is required", ErrValidationFailed)
	}
	payment, err := s.payments.VerifyCashPayment(ctx, participantID, ambassadorUserID)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{Message: "Payment verified successfully", PaymentID: payment.ID}, nil
}
