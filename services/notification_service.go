package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/Dosada05/fencing-club/repositories"
	"go.uber.org/zap"
)

const defaultInboxLimit = 50

// Notifier dispatches fire-and-forget messages to a member. Failures are
// logged and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int, kind models.NotificationKind, payload interface{})
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, actor models.Actor, id int) error
}

type notificationService struct {
	repo      repositories.NotificationRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, publisher realtime.Publisher, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, publisher: publisher, logger: logger}
}

func (s *notificationService) Notify(ctx context.Context, userID int, kind models.NotificationKind, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal notification payload", zap.Int("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	n := &models.Notification{UserID: userID, Kind: kind, Payload: raw}
	if err := s.repo.Create(ctx, nil, n); err != nil {
		s.logger.Error("failed to store notification", zap.Int("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.UserTopic(userID), realtime.EventInsert, "notification", n.ID, n))
}

func (s *notificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > defaultInboxLimit {
		limit = defaultInboxLimit
	}
	items, err := s.repo.ListByUser(ctx, actor.ID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %d: %w", actor.ID, err)
	}
	if items == nil {
		return []*models.Notification{}, nil
	}
	return items, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor models.Actor, id int) error {
	if err := s.repo.MarkRead(ctx, id, actor.ID); err != nil {
		return translateRepoError(err)
	}
	return nil
}
