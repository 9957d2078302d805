package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devcon26/registration-api/models"
)

var (
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamNameConflict     = errors.New("team name conflict")
	ErrTeamJoinCodeConflict = errors.New("team join code conflict")
	ErrTeamLeaderInvalid    = errors.New("team leader conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByJoinCodeForUpdate(ctx context.Context, exec SQLExecutor, joinCode string) (*models.Team, error)
	IncrementMemberCount(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, name, track, leader_participant_id, join_code, member_count, created_at`

func scanTeam(row rowScanner, t *models.Team) error {
	return row.Scan(
		&t.ID,
		&t.Name,
		&t.Track,
		&t.LeaderParticipantID,
		&t.JoinCode,
		&t.MemberCount,
		&t.CreatedAt,
	)
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (name, track, leader_participant_id, join_code, member_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	if team.MemberCount < 1 {
		team.MemberCount = 1
	}

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		team.Name,
		team.Track,
		team.LeaderParticipantID,
		team.JoinCode,
		team.MemberCount,
	).Scan(&team.ID, &team.CreatedAt)

	if err != nil {
		if pqErr, ok := asPQError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				switch pqErr.Constraint {
				case "teams_name_key":
					return ErrTeamNameConflict
				case "teams_join_code_key":
					return ErrTeamJoinCodeConflict
				}
			case pqForeignKeyViolation:
				return ErrTeamLeaderInvalid
			}
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetByJoinCodeForUpdate блокирует строку команды до конца транзакции,
// чтобы параллельные вступления не превысили лимит участников.
func (r *postgresTeamRepository) GetByJoinCodeForUpdate(ctx context.Context, exec SQLExecutor, joinCode string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE join_code = $1 FOR UPDATE`
	team := &models.Team{}
	if err := scanTeam(executorOr(exec, r.db).QueryRowContext(ctx, query, joinCode), team); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by join code: %w", err)
	}
	return team, nil
}

func (r *postgresTeamRepository) IncrementMemberCount(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE teams SET member_count = member_count + 1 WHERE id = $1`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment team member count: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
