package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/fencing-club/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, n *models.Notification) error
	ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID int) error
}

type postgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, exec SQLExecutor, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, kind, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return pick(r.db, exec).QueryRowContext(ctx, query, n.UserID, n.Kind, []byte(n.Payload)).Scan(&n.ID, &n.CreatedAt)
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `SELECT id, user_id, kind, payload, read_at, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		var payload []byte
		if scanErr := rows.Scan(&n.ID, &n.UserID, &n.Kind, &payload, &n.ReadAt, &n.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", scanErr)
		}
		n.Payload = payload
		out = append(out, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during notification rows iteration: %w", err)
	}
	return out, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	query := `UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return checkAffectedRows(result, ErrNotificationNotFound)
}
