package services

import (
	"context"
	"fmt"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/Dosada05/fencing-club/repositories"
	"go.uber.org/zap"
)

type ResultInput struct {
	ScoreA int           `json:"score_a"`
	ScoreB int           `json:"score_b"`
	Weapon models.Weapon `json:"weapon"`
}

func (in ResultInput) validate() error {
	if in.ScoreA < 0 || in.ScoreB < 0 {
		return ErrInvalidScore
	}
	if !in.Weapon.Valid() {
		return ErrInvalidWeapon
	}
	return nil
}

type StandaloneBoutInput struct {
	OpponentID int `json:"opponent_id"`
	ResultInput
}

// MatchService runs the dual-approval protocol for tournament matches and
// standalone bouts.
type MatchService interface {
	Get(ctx context.Context, id int) (*models.Match, error)
	RecordResult(ctx context.Context, actor models.Actor, matchID int, in ResultInput) (*models.Match, error)
	Approve(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error)
	Reject(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error)
	Reset(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error)
	CreateStandaloneBout(ctx context.Context, actor models.Actor, in StandaloneBoutInput) (*models.Match, error)
	ListStandalone(ctx context.Context, athleteID int) ([]*models.Match, error)
}

type matchService struct {
	tx             repositories.Transactor
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	memberRepo     repositories.MemberRepository
	notifier       Notifier
	publisher      realtime.Publisher
	logger         *zap.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	memberRepo repositories.MemberRepository,
	notifier Notifier,
	publisher realtime.Publisher,
	logger *zap.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		memberRepo:     memberRepo,
		notifier:       notifier,
		publisher:      publisher,
		logger:         logger,
	}
}

type pendingNotice struct {
	userID  int
	kind    models.NotificationKind
	payload interface{}
}

type matchNotice struct {
	MatchID      int  `json:"match_id"`
	TournamentID *int `json:"tournament_id,omitempty"`
	ByAthleteID  int  `json:"by_athlete_id"`
}

func noticeFor(m *models.Match, actorID int) matchNotice {
	return matchNotice{MatchID: m.ID, TournamentID: m.TournamentID, ByAthleteID: actorID}
}

func (s *matchService) Get(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return m, nil
}

func (s *matchService) ListStandalone(ctx context.Context, athleteID int) ([]*models.Match, error) {
	matches, err := s.matchRepo.ListStandaloneByAthlete(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standalone bouts of athlete %d: %w", athleteID, err)
	}
	if matches == nil {
		return []*models.Match{}, nil
	}
	return matches, nil
}

// lockMatch loads the match row under lock together with its tournament and
// rejects matches whose tournament no longer accepts results.
func (s *matchService) lockMatch(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, *models.Tournament, error) {
	m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, id)
	if err != nil {
		return nil, nil, translateRepoError(err)
	}
	if m.IsSelfPair() {
		s.logger.Warn("self-paired match rejected", zap.Int("match_id", m.ID), zap.Int("athlete_id", m.AthleteAID))
		return nil, nil, ErrSelfBout
	}
	if m.IsStandalone() {
		return m, nil, nil
	}
	t, err := s.tournamentRepo.GetByID(ctx, exec, *m.TournamentID)
	if err != nil {
		return nil, nil, translateRepoError(err)
	}
	if t.Status != models.TournamentInProgress {
		return nil, nil, ErrTournamentClosed
	}
	return m, t, nil
}

// mutate runs fn on the locked match inside one transaction and, once the
// transaction has committed, publishes the change and sends notices.
func (s *matchService) mutate(ctx context.Context, id int, fn func(m *models.Match, t *models.Tournament) (changed bool, notices []pendingNotice, err error)) (*models.Match, error) {
	var (
		result  *models.Match
		changed bool
		notices []pendingNotice
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, t, err := s.lockMatch(ctx, exec, id)
		if err != nil {
			return err
		}
		changed, notices, err = fn(m, t)
		if err != nil {
			return err
		}
		if changed {
			if err := s.matchRepo.UpdateResult(ctx, exec, m); err != nil {
				return translateRepoError(err)
			}
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publishMatch(ctx, realtime.EventUpdate, result)
	}
	for _, n := range notices {
		s.notifier.Notify(ctx, n.userID, n.kind, n.payload)
	}
	return result, nil
}

func (s *matchService) publishMatch(ctx context.Context, kind realtime.EventKind, m *models.Match) {
	if m.TournamentID != nil {
		s.publisher.Publish(ctx, realtime.NewEvent(realtime.TournamentTopic(*m.TournamentID), kind, "match", m.ID, nil))
		return
	}
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.UserTopic(m.AthleteAID), kind, "match", m.ID, nil))
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.UserTopic(m.AthleteBID), kind, "match", m.ID, nil))
}

func (s *matchService) RecordResult(ctx context.Context, actor models.Actor, matchID int, in ResultInput) (*models.Match, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, matchID, func(m *models.Match, t *models.Tournament) (bool, []pendingNotice, error) {
		switch m.Status {
		case models.MatchApproved:
			return false, nil, ErrMatchAlreadyApproved
		case models.MatchCancelled:
			return false, nil, ErrMatchCancelled
		}

		scoreA, scoreB, weapon := in.ScoreA, in.ScoreB, in.Weapon
		m.ScoreA, m.ScoreB, m.Weapon = &scoreA, &scoreB, &weapon

		if CanOverrideApproval(actor, m, t) {
			approver := actor.ID
			m.ApprovedByA, m.ApprovedByB = &approver, &approver
			m.Status = models.MatchApproved
			return true, nil, nil
		}

		side := m.SideOf(actor.ID)
		if !m.IsStandalone() {
			return false, nil, ErrNotOrganizer
		}
		if side == models.SideNone {
			return false, nil, ErrOwnResult
		}

		// A new result voids any earlier countersignature.
		recorder := actor.ID
		m.ApprovedByA, m.ApprovedByB = nil, nil
		if side == models.SideA {
			m.ApprovedByA = &recorder
		} else {
			m.ApprovedByB = &recorder
		}
		m.Status = models.MatchPending

		opponent := m.Opponent(side)
		return true, []pendingNotice{{opponent, models.NotifyApprovalRequested, noticeFor(m, actor.ID)}}, nil
	})
}

// Approve stamps the actor's side. The match becomes approved exactly once,
// by whichever call observes the counterparty's stamp under the row lock.
func (s *matchService) Approve(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error) {
	return s.mutate(ctx, matchID, func(m *models.Match, _ *models.Tournament) (bool, []pendingNotice, error) {
		side := m.SideOf(actor.ID)
		if side == models.SideNone {
			return false, nil, ErrNotParticipant
		}
		switch m.Status {
		case models.MatchCancelled:
			return false, nil, ErrMatchCancelled
		case models.MatchApproved:
			return false, nil, nil
		}
		if !m.HasScores() {
			return false, nil, ErrScoresMissing
		}
		if m.ApprovedBy(side) != nil {
			return false, nil, nil
		}

		approver := actor.ID
		if side == models.SideA {
			m.ApprovedByA = &approver
		} else {
			m.ApprovedByB = &approver
		}
		if m.ApprovedByA == nil || m.ApprovedByB == nil {
			return true, nil, nil
		}

		m.Status = models.MatchApproved
		opponent := m.Opponent(side)
		return true, []pendingNotice{{opponent, models.NotifyMatchApproved, noticeFor(m, actor.ID)}}, nil
	})
}

func (s *matchService) Reject(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error) {
	return s.mutate(ctx, matchID, func(m *models.Match, _ *models.Tournament) (bool, []pendingNotice, error) {
		side := m.SideOf(actor.ID)
		if side == models.SideNone {
			return false, nil, ErrNotParticipant
		}
		switch m.Status {
		case models.MatchCancelled:
			return false, nil, nil
		case models.MatchApproved:
			return false, nil, ErrMatchAlreadyApproved
		}
		if m.ApprovedBy(side) != nil {
			return false, nil, newError(ErrConflict, "you have already approved this result")
		}

		m.Status = models.MatchCancelled
		opponent := m.Opponent(side)
		return true, []pendingNotice{{opponent, models.NotifyMatchRejected, noticeFor(m, actor.ID)}}, nil
	})
}

func (s *matchService) Reset(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error) {
	return s.mutate(ctx, matchID, func(m *models.Match, t *models.Tournament) (bool, []pendingNotice, error) {
		if !CanOverrideApproval(actor, m, t) {
			return false, nil, ErrNotOrganizer
		}
		if m.Status != models.MatchApproved {
			return false, nil, ErrMatchNotApproved
		}
		m.ClearResult()
		return true, nil, nil
	})
}

func (s *matchService) CreateStandaloneBout(ctx context.Context, actor models.Actor, in StandaloneBoutInput) (*models.Match, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.OpponentID == actor.ID {
		return nil, ErrSelfBout
	}

	self, err := s.memberRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	opponent, err := s.memberRepo.GetByID(ctx, in.OpponentID)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if self.GymID != opponent.GymID {
		return nil, ErrAthleteNotInGym
	}

	scoreA, scoreB, weapon, recorder := in.ScoreA, in.ScoreB, in.Weapon, actor.ID
	m := &models.Match{
		AthleteAID:  actor.ID,
		AthleteBID:  in.OpponentID,
		ScoreA:      &scoreA,
		ScoreB:      &scoreB,
		Weapon:      &weapon,
		Status:      models.MatchPending,
		ApprovedByA: &recorder,
		CreatorID:   actor.ID,
	}
	if err := s.matchRepo.Create(ctx, nil, m); err != nil {
		return nil, translateRepoError(err)
	}

	s.publishMatch(ctx, realtime.EventInsert, m)
	s.notifier.Notify(ctx, in.OpponentID, models.NotifyApprovalRequested, noticeFor(m, actor.ID))
	return m, nil
}
