package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fencing-club/models"
)

var ErrMemberNotFound = errors.New("member not found")

// MemberRepository is the read side of gym membership the engine relies on.
type MemberRepository interface {
	ListByGym(ctx context.Context, gymID int) ([]*models.Member, error)
	GetByID(ctx context.Context, id int) (*models.Member, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Member, error)
}

type postgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) MemberRepository {
	return &postgresMemberRepository{db: db}
}

func (r *postgresMemberRepository) ListByGym(ctx context.Context, gymID int) ([]*models.Member, error) {
	query := `
		SELECT id, gym_id, name, role, shift, created_at
		FROM gym_members
		WHERE gym_id = $1
		ORDER BY name ASC`
	return r.list(ctx, query, gymID)
}

func (r *postgresMemberRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Member, error) {
	if len(ids) == 0 {
		return []*models.Member{}, nil
	}
	query := `
		SELECT id, gym_id, name, role, shift, created_at
		FROM gym_members
		WHERE id = ANY($1)`
	return r.list(ctx, query, toInt64Array(ids))
}

func (r *postgresMemberRepository) GetByID(ctx context.Context, id int) (*models.Member, error) {
	query := `SELECT id, gym_id, name, role, shift, created_at FROM gym_members WHERE id = $1`
	m := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.GymID, &m.Name, &m.Role, &m.Shift, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to scan member %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMemberRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		m := &models.Member{}
		if scanErr := rows.Scan(&m.ID, &m.GymID, &m.Name, &m.Role, &m.Shift, &m.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", scanErr)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during member rows iteration: %w", err)
	}
	return members, nil
}
