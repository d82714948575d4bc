package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentInvalidGym     = errors.New("invalid gym reference")
	ErrTournamentInvalidCreator = errors.New("invalid creator reference")
	// ErrTournamentStatusChanged means the row no longer had the expected status.
	ErrTournamentStatusChanged = errors.New("tournament status changed concurrently")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	ListByGym(ctx context.Context, gymID int, status *models.TournamentStatus) ([]*models.Tournament, error)
	// TransitionStatus moves the tournament from one status to another and
	// fails with ErrTournamentStatusChanged when it is no longer in from.
	TransitionStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error
	ListStale(ctx context.Context, exec SQLExecutor, createdBefore time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, name, slug, date, status, creator_id, gym_id, athlete_ids, created_at, completed_at`

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	var athletes pq.Int64Array
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Date, &t.Status, &t.CreatorID, &t.GymID,
		&athletes, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.AthleteIDs = make([]int, len(athletes))
	for i, id := range athletes {
		t.AthleteIDs[i] = int(id)
	}
	return t, nil
}

func toInt64Array(ids []int) pq.Int64Array {
	out := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, slug, date, status, creator_id, gym_id, athlete_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := pick(r.db, exec).QueryRowContext(ctx, query,
		t.Name, t.Slug, t.Date, t.Status, t.CreatorID, t.GymID, toInt64Array(t.AthleteIDs),
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, `SELECT`+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, `SELECT`+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Tournament, error) {
	t, err := scanTournament(pick(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListByGym(ctx context.Context, gymID int, status *models.TournamentStatus) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE gym_id = $1`
	args := []interface{}{gymID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY date DESC, created_at DESC`
	return r.list(ctx, r.db, query, args...)
}

func (r *postgresTournamentRepository) ListStale(ctx context.Context, exec SQLExecutor, createdBefore time.Time) ([]*models.Tournament, error) {
	query := `SELECT` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND created_at <= $2
		ORDER BY id ASC`
	return r.list(ctx, pick(r.db, exec), query, models.TournamentInProgress, createdBefore)
}

func (r *postgresTournamentRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Tournament, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) TransitionStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	query := `
		UPDATE tournaments
		SET status = $1,
		    completed_at = CASE WHEN $4 THEN NOW() ELSE completed_at END
		WHERE id = $2 AND status = $3`
	result, err := pick(r.db, exec).ExecContext(ctx, query, to, id, from, to == models.TournamentCompleted)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentStatusChanged)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "tournaments_gym_id_fkey":
			return ErrTournamentInvalidGym
		case "tournaments_creator_id_fkey":
			return ErrTournamentInvalidCreator
		}
	}
	return err
}
