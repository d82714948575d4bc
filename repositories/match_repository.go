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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchAthleteInvalid    = errors.New("match athlete conflict or invalid")
	ErrMatchSelfPair          = errors.New("match athletes must differ")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the row until exec's transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	ListStandaloneByAthlete(ctx context.Context, athleteID int) ([]*models.Match, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error
	// ApproveScored approves every pending match of the tournament with both
	// scores set, stamping missing approval fields with approverID.
	ApproveScored(ctx context.Context, exec SQLExecutor, tournamentID, approverID int) (int64, error)
	CancelByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, keepApproved bool) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, athlete_a_id, athlete_b_id, score_a, score_b, weapon, status,
	approved_by_a, approved_by_b, creator_id, created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.AthleteAID,
		&m.AthleteBID,
		&m.ScoreA,
		&m.ScoreB,
		&m.Weapon,
		&m.Status,
		&m.ApprovedByA,
		&m.ApprovedByB,
		&m.CreatorID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, athlete_a_id, athlete_b_id, score_a, score_b, weapon, status,
			 approved_by_a, approved_by_b, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := pick(r.db, exec).QueryRowContext(ctx, query,
		match.TournamentID,
		match.AthleteAID,
		match.AthleteBID,
		match.ScoreA,
		match.ScoreB,
		match.Weapon,
		match.Status,
		match.ApprovedByA,
		match.ApprovedByB,
		match.CreatorID,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, exec, `SELECT`+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, exec, `SELECT`+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	m, err := scanMatch(pick(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY id ASC`
	return r.list(ctx, pick(r.db, exec), query, tournamentID)
}

func (r *postgresMatchRepository) ListStandaloneByAthlete(ctx context.Context, athleteID int) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id IS NULL AND (athlete_a_id = $1 OR athlete_b_id = $1)
		ORDER BY created_at DESC`
	return r.list(ctx, r.db, query, athleteID)
}

func (r *postgresMatchRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET score_a = $1, score_b = $2, weapon = $3, status = $4,
		    approved_by_a = $5, approved_by_b = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	err := pick(r.db, exec).QueryRowContext(ctx, query,
		match.ScoreA,
		match.ScoreB,
		match.Weapon,
		match.Status,
		match.ApprovedByA,
		match.ApprovedByB,
		match.ID,
	).Scan(&match.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) ApproveScored(ctx context.Context, exec SQLExecutor, tournamentID, approverID int) (int64, error) {
	query := `
		UPDATE matches
		SET status = $1,
		    approved_by_a = COALESCE(approved_by_a, $2),
		    approved_by_b = COALESCE(approved_by_b, $2),
		    updated_at = NOW()
		WHERE tournament_id = $3
		  AND status = $4
		  AND score_a IS NOT NULL AND score_b IS NOT NULL
		  AND athlete_a_id <> athlete_b_id`

	result, err := pick(r.db, exec).ExecContext(ctx, query, models.MatchApproved, approverID, tournamentID, models.MatchPending)
	if err != nil {
		return 0, fmt.Errorf("failed to approve scored matches for tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) CancelByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, keepApproved bool) (int64, error) {
	query := `UPDATE matches SET status = $1, updated_at = NOW() WHERE tournament_id = $2 AND status <> $1`
	args := []interface{}{models.MatchCancelled, tournamentID}
	if keepApproved {
		query += ` AND status <> $3`
		args = append(args, models.MatchApproved)
	}

	result, err := pick(r.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel matches for tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_athlete_a_id_fkey", "matches_athlete_b_id_fkey":
			return ErrMatchAthleteInvalid
		case "matches_distinct_athletes":
			return ErrMatchSelfPair
		}
	}
	return err
}
