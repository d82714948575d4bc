package services

import (
	"context"
	"errors"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/repositories"
	"go.uber.org/zap"
)

var ErrOtherGym = newError(ErrForbidden, "members of another gym are not visible")

// MemberService exposes the gym roster used when picking athletes.
type MemberService interface {
	ListByGym(ctx context.Context, actor models.Actor, gymID int) ([]*models.Member, error)
}

type memberService struct {
	repo   repositories.MemberRepository
	logger *zap.Logger
}

func NewMemberService(repo repositories.MemberRepository, logger *zap.Logger) MemberService {
	return &memberService{repo: repo, logger: logger}
}

// ListByGym returns the roster to staff or to members of that gym.
func (s *memberService) ListByGym(ctx context.Context, actor models.Actor, gymID int) ([]*models.Member, error) {
	if !actor.IsStaff() {
		me, err := s.repo.GetByID(ctx, actor.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrMemberNotFound) {
				return nil, ErrOtherGym
			}
			return nil, err
		}
		if me.GymID != gymID {
			return nil, ErrOtherGym
		}
	}

	members, err := s.repo.ListByGym(ctx, gymID)
	if err != nil {
		s.logger.Error("failed to list gym members", zap.Int("gym_id", gymID), zap.Error(err))
		return nil, translateRepoError(err)
	}
	return members, nil
}
