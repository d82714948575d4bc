package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fencing-club/models"
	"github.com/lib/pq"
)

var (
	ErrTeamMatchNotFound     = errors.New("team match not found")
	ErrTeamMatchBoutNotFound = errors.New("team match bout not found")
	ErrTeamMatchGymInvalid   = errors.New("team match gym conflict or invalid")
)

type TeamMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.TeamMatch) error
	CreateBouts(ctx context.Context, exec SQLExecutor, bouts []*models.TeamMatchBout) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamMatch, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.TeamMatch, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.TeamMatch) error
	ListBouts(ctx context.Context, exec SQLExecutor, teamMatchID int) ([]*models.TeamMatchBout, error)
	UpdateBout(ctx context.Context, exec SQLExecutor, bout *models.TeamMatchBout) error
}

type postgresTeamMatchRepository struct {
	db *sql.DB
}

func NewPostgresTeamMatchRepository(db *sql.DB) TeamMatchRepository {
	return &postgresTeamMatchRepository{db: db}
}

const teamMatchColumns = `
	id, gym_id, creator_id, status, team_a_name, team_b_name,
	team_a_1, team_a_2, team_a_3, team_b_1, team_b_2, team_b_3,
	total_score_a, total_score_b, current_bout, winner,
	overtime_score_a, overtime_score_b, timer_running, clock_elapsed_ms, clock_started_at,
	created_at, updated_at`

func scanTeamMatch(row rowScanner) (*models.TeamMatch, error) {
	m := &models.TeamMatch{}
	err := row.Scan(
		&m.ID, &m.GymID, &m.CreatorID, &m.Status, &m.TeamAName, &m.TeamBName,
		&m.TeamA[0], &m.TeamA[1], &m.TeamA[2], &m.TeamB[0], &m.TeamB[1], &m.TeamB[2],
		&m.TotalScoreA, &m.TotalScoreB, &m.CurrentBout, &m.Winner,
		&m.OvertimeScoreA, &m.OvertimeScoreB, &m.TimerRunning, &m.ClockElapsedMs, &m.ClockStartedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func (r *postgresTeamMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.TeamMatch) error {
	query := `
		INSERT INTO team_matches
			(gym_id, creator_id, status, team_a_name, team_b_name,
			 team_a_1, team_a_2, team_a_3, team_b_1, team_b_2, team_b_3, current_bout)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := pick(r.db, exec).QueryRowContext(ctx, query,
		m.GymID, m.CreatorID, m.Status, m.TeamAName, m.TeamBName,
		m.TeamA[0], m.TeamA[1], m.TeamA[2], m.TeamB[0], m.TeamB[1], m.TeamB[2],
		m.CurrentBout,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleTeamMatchError(err)
}

func (r *postgresTeamMatchRepository) CreateBouts(ctx context.Context, exec SQLExecutor, bouts []*models.TeamMatchBout) error {
	query := `
		INSERT INTO team_match_bouts
			(team_match_id, bout_number, slot_a, slot_b, target_score, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	executor := pick(r.db, exec)
	for _, b := range bouts {
		err := executor.QueryRowContext(ctx, query,
			b.TeamMatchID, b.BoutNumber, b.SlotA, b.SlotB, b.TargetScore, b.Status,
		).Scan(&b.ID)
		if err != nil {
			return fmt.Errorf("failed to create bout %d of team match %d: %w", b.BoutNumber, b.TeamMatchID, err)
		}
	}
	return nil
}

func (r *postgresTeamMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamMatch, error) {
	return r.get(ctx, exec, `SELECT`+teamMatchColumns+` FROM team_matches WHERE id = $1`, id)
}

func (r *postgresTeamMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.TeamMatch, error) {
	return r.get(ctx, exec, `SELECT`+teamMatchColumns+` FROM team_matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTeamMatchRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.TeamMatch, error) {
	m, err := scanTeamMatch(pick(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan team match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresTeamMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.TeamMatch) error {
	query := `
		UPDATE team_matches
		SET status = $1, total_score_a = $2, total_score_b = $3, current_bout = $4, winner = $5,
		    overtime_score_a = $6, overtime_score_b = $7, timer_running = $8,
		    clock_elapsed_ms = $9, clock_started_at = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	err := pick(r.db, exec).QueryRowContext(ctx, query,
		m.Status, m.TotalScoreA, m.TotalScoreB, m.CurrentBout, m.Winner,
		m.OvertimeScoreA, m.OvertimeScoreB, m.TimerRunning,
		m.ClockElapsedMs, m.ClockStartedAt, m.ID,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTeamMatchNotFound
	}
	return r.handleTeamMatchError(err)
}

func (r *postgresTeamMatchRepository) ListBouts(ctx context.Context, exec SQLExecutor, teamMatchID int) ([]*models.TeamMatchBout, error) {
	query := `
		SELECT id, team_match_id, bout_number, slot_a, slot_b, target_score,
		       start_score_a, start_score_b, end_score_a, end_score_b,
		       bout_touches_a, bout_touches_b, elapsed_seconds, status, end_reason, started_at
		FROM team_match_bouts
		WHERE team_match_id = $1
		ORDER BY bout_number ASC`

	rows, err := pick(r.db, exec).QueryContext(ctx, query, teamMatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bouts of team match %d: %w", teamMatchID, err)
	}
	defer rows.Close()

	bouts := make([]*models.TeamMatchBout, 0, 9)
	for rows.Next() {
		b := &models.TeamMatchBout{}
		if scanErr := rows.Scan(
			&b.ID, &b.TeamMatchID, &b.BoutNumber, &b.SlotA, &b.SlotB, &b.TargetScore,
			&b.StartScoreA, &b.StartScoreB, &b.EndScoreA, &b.EndScoreB,
			&b.BoutTouchesA, &b.BoutTouchesB, &b.ElapsedSeconds, &b.Status, &b.EndReason, &b.StartedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan bout row: %w", scanErr)
		}
		bouts = append(bouts, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during bout rows iteration: %w", err)
	}
	return bouts, nil
}

func (r *postgresTeamMatchRepository) UpdateBout(ctx context.Context, exec SQLExecutor, b *models.TeamMatchBout) error {
	query := `
		UPDATE team_match_bouts
		SET start_score_a = $1, start_score_b = $2, end_score_a = $3, end_score_b = $4,
		    bout_touches_a = $5, bout_touches_b = $6, elapsed_seconds = $7, status = $8,
		    end_reason = $9, started_at = $10
		WHERE id = $11`

	result, err := pick(r.db, exec).ExecContext(ctx, query,
		b.StartScoreA, b.StartScoreB, b.EndScoreA, b.EndScoreB,
		b.BoutTouchesA, b.BoutTouchesB, b.ElapsedSeconds, b.Status,
		b.EndReason, b.StartedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bout %d: %w", b.ID, err)
	}
	return checkAffectedRows(result, ErrTeamMatchBoutNotFound)
}

func (r *postgresTeamMatchRepository) handleTeamMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" && pqErr.Constraint == "team_matches_gym_id_fkey" {
		return ErrTeamMatchGymInvalid
	}
	return err
}
