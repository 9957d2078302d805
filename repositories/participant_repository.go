package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/devcon26/registration-api/models"
)

var (
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantConflict    = errors.New("participant conflict: user already has a participant profile")
	ErrParticipantUserInvalid = errors.New("participant user conflict or invalid")
	ErrParticipantTeamInvalid = errors.New("participant team conflict or invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	FindByUserID(ctx context.Context, exec SQLExecutor, userID int) (*models.Participant, error)
	AssignTeam(ctx context.Context, exec SQLExecutor, participantID, teamID int, isTeamLead bool) error
	GetWithDetails(ctx context.Context, participantID int) (*models.Participant, error)
	Search(ctx context.Context, email, studentID string, limit int) ([]models.ParticipantSearchResult, error)
	ListRegistrationRows(ctx context.Context) ([]models.RegistrationRow, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

const participantColumns = `id, user_id, track, team_id, is_team_lead, created_at`

func scanParticipant(row rowScanner, p *models.Participant) error {
	return row.Scan(
		&p.ID,
		&p.UserID,
		&p.Track,
		&p.TeamID,
		&p.IsTeamLead,
		&p.CreatedAt,
	)
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (user_id, track, team_id, is_team_lead)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		p.UserID,
		p.Track,
		p.TeamID,
		p.IsTeamLead,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				if pqErr.Constraint == "participants_user_id_key" {
					return ErrParticipantConflict
				}
			case pqForeignKeyViolation:
				switch pqErr.Constraint {
				case "participants_user_id_fkey":
					return ErrParticipantUserInvalid
				case "participants_team_id_fkey":
					return ErrParticipantTeamInvalid
				}
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Participant, error) {
	p := &models.Participant{}
	err := scanParticipant(executorOr(exec, r.db).QueryRowContext(ctx, query, args...), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) FindByUserID(ctx context.Context, exec SQLExecutor, userID int) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE user_id = $1`
	return r.findOne(ctx, exec, query, userID)
}

func (r *postgresParticipantRepository) AssignTeam(ctx context.Context, exec SQLExecutor, participantID, teamID int, isTeamLead bool) error {
	query := `UPDATE participants SET team_id = $1, is_team_lead = $2 WHERE id = $3`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, teamID, isTeamLead, participantID)
	if err != nil {
		if pqErr, ok := asPQError(err); ok && pqErr.Code == pqForeignKeyViolation {
			return ErrParticipantTeamInvalid
		}
		return fmt.Errorf("failed to assign team to participant: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) GetWithDetails(ctx context.Context, participantID int) (*models.Participant, error) {
	query := `
		SELECT
			p.id, p.user_id, p.track, p.team_id, p.is_team_lead, p.created_at,
			u.id, u.full_name, u.email, u.university, u.student_id, u.role, u.created_at,
			t.id, t.name, t.track, t.leader_participant_id, t.join_code, t.member_count, t.created_at,
			pay.id, pay.amount, pay.method, pay.status, pay.transaction_id, pay.verified_at, pay.created_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN teams t ON t.id = p.team_id
		LEFT JOIN payments pay ON pay.participant_id = p.id
		WHERE p.id = $1`

	var (
		p    models.Participant
		u    models.User
		team struct {
			ID, LeaderID, MemberCount sql.NullInt64
			Name, Track, JoinCode     sql.NullString
			CreatedAt                 sql.NullTime
		}
		pay struct {
			ID, Amount     sql.NullInt64
			Method, Status sql.NullString
			TransactionID  sql.NullString
			VerifiedAt     sql.NullTime
			CreatedAt      sql.NullTime
		}
	)

	err := r.db.QueryRowContext(ctx, query, participantID).Scan(
		&p.ID, &p.UserID, &p.Track, &p.TeamID, &p.IsTeamLead, &p.CreatedAt,
		&u.ID, &u.FullName, &u.Email, &u.University, &u.StudentID, &u.Role, &u.CreatedAt,
		&team.ID, &team.Name, &team.Track, &team.LeaderID, &team.JoinCode, &team.MemberCount, &team.CreatedAt,
		&pay.ID, &pay.Amount, &pay.Method, &pay.Status, &pay.TransactionID, &pay.VerifiedAt, &pay.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant with details: %w", err)
	}

	p.User = &u
	if team.ID.Valid {
		p.Team = &models.Team{
			ID:                  int(team.ID.Int64),
			Name:                team.Name.String,
			Track:               models.Track(team.Track.String),
			LeaderParticipantID: int(team.LeaderID.Int64),
			JoinCode:            team.JoinCode.String,
			MemberCount:         int(team.MemberCount.Int64),
			CreatedAt:           team.CreatedAt.Time,
		}
	}
	if pay.ID.Valid {
		payment := &models.Payment{
			ID:            int(pay.ID.Int64),
			ParticipantID: p.ID,
			TeamID:        p.TeamID,
			Amount:        pay.Amount.Int64,
			Method:        models.PaymentMethod(pay.Method.String),
			Status:        models.PaymentStatus(pay.Status.String),
			CreatedAt:     pay.CreatedAt.Time,
		}
		if pay.TransactionID.Valid {
			payment.TransactionID = &pay.TransactionID.String
		}
		if pay.VerifiedAt.Valid {
			payment.VerifiedAt = &pay.VerifiedAt.Time
		}
		p.Payment = payment
	}
	return &p, nil
}

// Search ищет участников по части email и/или точному student_id.
// Если заданы оба параметра, подходит совпадение по любому из них.
func (r *postgresParticipantRepository) Search(ctx context.Context, email, studentID string, limit int) ([]models.ParticipantSearchResult, error) {
	var conds []string
	var args []interface{}

	if email = strings.TrimSpace(email); email != "" {
		args = append(args, likePattern(email))
		conds = append(conds, fmt.Sprintf("u.email ILIKE $%d", len(args)))
	}
	if studentID = strings.TrimSpace(studentID); studentID != "" {
		args = append(args, studentID)
		conds = append(conds, fmt.Sprintf("u.student_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return []models.ParticipantSearchResult{}, nil
	}
	if limit < 1 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT
			p.id, u.id, u.full_name, u.email, u.university, u.student_id, p.track,
			t.name, pay.id, pay.status, pay.method
		FROM participants p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN teams t ON t.id = p.team_id
		LEFT JOIN payments pay ON pay.participant_id = p.id
		WHERE %s
		ORDER BY p.id ASC
		LIMIT $%d`, strings.Join(conds, " OR "), len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search participants: %w", err)
	}
	defer rows.Close()

	results := make([]models.ParticipantSearchResult, 0)
	for rows.Next() {
		var res models.ParticipantSearchResult
		if err := rows.Scan(
			&res.ParticipantID, &res.UserID, &res.FullName, &res.Email, &res.University, &res.StudentID, &res.Track,
			&res.TeamName, &res.PaymentID, &res.PaymentStatus, &res.PaymentMethod,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant search row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant search rows: %w", err)
	}
	return results, nil
}

// ListRegistrationRows возвращает всех участников в порядке id для выгрузки.
func (r *postgresParticipantRepository) ListRegistrationRows(ctx context.Context) ([]models.RegistrationRow, error) {
	query := `
		SELECT p.id, u.full_name, u.email, u.university, p.track, t.name, pay.status
		FROM participants p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN teams t ON t.id = p.team_id
		LEFT JOIN payments pay ON pay.participant_id = p.id
		ORDER BY p.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	out := make([]models.RegistrationRow, 0)
	for rows.Next() {
		var row models.RegistrationRow
		if err := rows.Scan(
			&row.ParticipantID, &row.FullName, &row.Email, &row.University, &row.Track,
			&row.TeamName, &row.PaymentStatus,
		); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return out, nil
}
