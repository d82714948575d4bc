package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/Dosada05/fencing-club/relay"
	"github.com/Dosada05/fencing-club/repositories"
	"go.uber.org/zap"
)

var ErrNotRelayController = newError(ErrForbidden, "only the relay's creator, its fencers or staff can do this")

// errNoChange aborts a clock-driven update whose premise no longer holds.
var errNoChange = errors.New("no change")

const clockCallbackTimeout = 10 * time.Second

type CreateTeamMatchInput struct {
	GymID     int    `json:"gym_id"`
	TeamAName string `json:"team_a_name"`
	TeamBName string `json:"team_b_name"`
	TeamA     [3]int `json:"team_a"`
	TeamB     [3]int `json:"team_b"`
}

// BoutEndSummary reports a leg that just closed and what followed.
type BoutEndSummary struct {
	BoutNumber int                 `json:"bout_number"`
	Reason     relay.BoutEndReason `json:"reason"`
	Outcome    relay.Outcome       `json:"outcome"`
}

type TeamMatchState struct {
	Match            *models.TeamMatch       `json:"match"`
	Bouts            []*models.TeamMatchBout `json:"bouts"`
	ElapsedSeconds   int                     `json:"elapsed_seconds"`
	RemainingSeconds int                     `json:"remaining_seconds"`
	LastEnd          *BoutEndSummary         `json:"last_end,omitempty"`
}

type RelayService interface {
	Create(ctx context.Context, actor models.Actor, in CreateTeamMatchInput) (*TeamMatchState, error)
	Get(ctx context.Context, id int) (*TeamMatchState, error)
	Start(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error)
	Pause(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error)
	Resume(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error)
	AdjustScore(ctx context.Context, actor models.Actor, id int, team models.Team, delta int) (*TeamMatchState, error)
	Tick(ctx context.Context, actor models.Actor, id int, elapsed time.Duration) (*TeamMatchState, error)
	EndBout(ctx context.Context, actor models.Actor, id int, force bool) (*TeamMatchState, error)
	OvertimeTouch(ctx context.Context, actor models.Actor, id int, team models.Team) (*TeamMatchState, error)
	DecideOvertime(ctx context.Context, actor models.Actor, id int, team models.Team) (*TeamMatchState, error)
	Cancel(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error)
}

type relayService struct {
	tx         repositories.Transactor
	repo       repositories.TeamMatchRepository
	memberRepo repositories.MemberRepository
	timers     *LiveTimers
	publisher  realtime.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewRelayService(
	tx repositories.Transactor,
	repo repositories.TeamMatchRepository,
	memberRepo repositories.MemberRepository,
	timers *LiveTimers,
	publisher realtime.Publisher,
	logger *zap.Logger,
) RelayService {
	s := &relayService{
		tx:         tx,
		repo:       repo,
		memberRepo: memberRepo,
		timers:     timers,
		publisher:  publisher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
	timers.bind(s.onClockTick, s.onClockExpired)
	return s
}

func (s *relayService) Create(ctx context.Context, actor models.Actor, in CreateTeamMatchInput) (*TeamMatchState, error) {
	if err := relay.ValidateTeams(in.TeamA, in.TeamB); err != nil {
		return nil, translateRelayError(err)
	}
	required := append(in.TeamA[:], in.TeamB[:]...)
	if !actor.IsStaff() {
		required = append(required, actor.ID)
	}
	if err := requireGymMembers(ctx, s.memberRepo, in.GymID, required); err != nil {
		return nil, err
	}

	m := &models.TeamMatch{
		GymID:     in.GymID,
		CreatorID: actor.ID,
		Status:    models.TeamMatchSetup,
		TeamAName: teamName(in.TeamAName, "Team A"),
		TeamBName: teamName(in.TeamBName, "Team B"),
		TeamA:     in.TeamA,
		TeamB:     in.TeamB,
	}
	var bouts []*models.TeamMatchBout
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.repo.Create(ctx, exec, m); err != nil {
			return translateRepoError(err)
		}
		bouts = relay.NewBouts(m.ID)
		return translateRepoError(s.repo.CreateBouts(ctx, exec, bouts))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("team match created", zap.Int("team_match_id", m.ID), zap.Int("gym_id", m.GymID))
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.TeamMatchTopic(m.ID), realtime.EventInsert, "team_match", m.ID, nil))
	return s.state(m, bouts, nil), nil
}

func teamName(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}

func (s *relayService) Get(ctx context.Context, id int) (*TeamMatchState, error) {
	m, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	bouts, err := s.repo.ListBouts(ctx, nil, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return s.state(m, bouts, nil), nil
}

func (s *relayService) state(m *models.TeamMatch, bouts []*models.TeamMatchBout, end *BoutEndSummary) *TeamMatchState {
	st := &TeamMatchState{Match: m, Bouts: bouts, LastEnd: end}
	if st.Bouts == nil {
		st.Bouts = []*models.TeamMatchBout{}
	}
	if relay.ClockPeriod(m) != 0 {
		elapsed := relay.ClockElapsed(m, s.now())
		st.ElapsedSeconds = int(elapsed / time.Second)
		st.RemainingSeconds = int((relay.PeriodLimit(m) - elapsed) / time.Second)
	}
	return st
}

type relayOp func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error)

// mutate applies op to the locked team match and its legs in one transaction,
// writes back whatever op changed, then publishes and points this process's
// countdown at the stored clock. A nil allow skips authorization and is used
// only by the clock itself.
func (s *relayService) mutate(ctx context.Context, id int, allow func(*models.TeamMatch) bool, op relayOp) (*TeamMatchState, error) {
	var (
		m       *models.TeamMatch
		bouts   []*models.TeamMatchBout
		changed []*models.TeamMatchBout
		end     *BoutEndSummary
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		m, err = s.repo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return translateRepoError(err)
		}
		if allow != nil && !allow(m) {
			return ErrNotRelayController
		}
		bouts, err = s.repo.ListBouts(ctx, exec, id)
		if err != nil {
			return translateRepoError(err)
		}

		before := make(map[int]models.TeamMatchBout, len(bouts))
		for _, b := range bouts {
			before[b.ID] = *b
		}

		end, err = op(m, bouts)
		if err != nil {
			return err
		}
		if err := s.repo.Update(ctx, exec, m); err != nil {
			return translateRepoError(err)
		}
		for _, b := range bouts {
			if before[b.ID] == *b {
				continue
			}
			if err := s.repo.UpdateBout(ctx, exec, b); err != nil {
				return translateRepoError(err)
			}
			changed = append(changed, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncClock(m)
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.TeamMatchTopic(id), realtime.EventUpdate, "team_match", id, nil))
	for _, b := range changed {
		s.publisher.Publish(ctx, realtime.NewEvent(realtime.TeamMatchTopic(id), realtime.EventUpdate, "team_match_bout", b.ID, nil))
	}
	if end != nil {
		s.logger.Info("relay bout ended",
			zap.Int("team_match_id", id),
			zap.Int("bout", end.BoutNumber),
			zap.String("reason", end.Reason.Message),
			zap.String("outcome", string(end.Outcome.Kind)),
		)
	}
	return s.state(m, bouts, end), nil
}

// syncClock places this process's countdown at the committed clock. Terminal
// states drop it. A running clock found already spent is settled at once
// instead of waiting for a countdown that would never fire.
func (s *relayService) syncClock(m *models.TeamMatch) {
	period := relay.ClockPeriod(m)
	if period == 0 {
		s.timers.Drop(m.ID)
		return
	}
	now := s.now()
	t := s.timers.Arm(m.ID, period, relay.PeriodLimit(m), relay.ClockElapsed(m, now))
	if !m.TimerRunning {
		return
	}
	if relay.ClockExpired(m, now) {
		go s.onClockExpired(m.ID, period)
		return
	}
	t.Start()
}

func (s *relayService) controller(actor models.Actor) func(*models.TeamMatch) bool {
	return func(m *models.TeamMatch) bool { return CanControlTeamMatch(actor, m) }
}

func (s *relayService) Start(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		return nil, translateRelayError(relay.Start(m, bouts, s.now()))
	})
}

func (s *relayService) Pause(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		now := s.now()
		end, err := s.settleClock(m, bouts, now)
		if err != nil || end != nil {
			return end, err
		}
		return nil, translateRelayError(relay.Pause(m, now))
	})
}

func (s *relayService) Resume(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		now := s.now()
		if err := relay.Resume(m, now); err != nil {
			return nil, translateRelayError(err)
		}
		return s.settleClock(m, bouts, now)
	})
}

func (s *relayService) AdjustScore(ctx context.Context, actor models.Actor, id int, team models.Team, delta int) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		b, err := relay.ActiveBout(m, bouts)
		if err != nil {
			return nil, translateRelayError(err)
		}
		if err := relay.AdjustScore(m, b, team, delta); err != nil {
			return nil, translateRelayError(err)
		}
		elapsed := relay.ClockElapsed(m, s.now())
		reason, ended := relay.BoutEnd(m, b, elapsed)
		if !ended {
			return nil, nil
		}
		return s.finish(m, bouts, b.BoutNumber, reason, elapsed)
	})
}

func (s *relayService) finish(m *models.TeamMatch, bouts []*models.TeamMatchBout, boutNumber int, reason relay.BoutEndReason, elapsed time.Duration) (*BoutEndSummary, error) {
	out, err := relay.FinishBout(m, bouts, reason, elapsed, s.now())
	if err != nil {
		return nil, translateRelayError(err)
	}
	return &BoutEndSummary{BoutNumber: boutNumber, Reason: reason, Outcome: out}, nil
}

func (s *relayService) EndBout(ctx context.Context, actor models.Actor, id int, force bool) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		boutNumber := m.CurrentBout
		now := s.now()
		reason, out, err := relay.EndBout(m, bouts, relay.ClockElapsed(m, now), force, now)
		if err != nil {
			return nil, translateRelayError(err)
		}
		return &BoutEndSummary{BoutNumber: boutNumber, Reason: reason, Outcome: out}, nil
	})
}

func (s *relayService) OvertimeTouch(ctx context.Context, actor models.Actor, id int, team models.Team) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, _ []*models.TeamMatchBout) (*BoutEndSummary, error) {
		return nil, translateRelayError(relay.OvertimeTouch(m, team, s.now()))
	})
}

func (s *relayService) DecideOvertime(ctx context.Context, actor models.Actor, id int, team models.Team) (*TeamMatchState, error) {
	allow := func(m *models.TeamMatch) bool { return CanDecideTeamMatch(actor, m) }
	return s.mutate(ctx, id, allow, func(m *models.TeamMatch, _ []*models.TeamMatchBout) (*BoutEndSummary, error) {
		return nil, translateRelayError(relay.DecideOvertime(m, team, s.now()))
	})
}

func (s *relayService) Cancel(ctx context.Context, actor models.Actor, id int) (*TeamMatchState, error) {
	return s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		_, err := relay.Cancel(m, bouts)
		return nil, translateRelayError(err)
	})
}

// Tick reports the client's clock. The stored clock only moves forward, so a
// client lagging behind it changes nothing.
func (s *relayService) Tick(ctx context.Context, actor models.Actor, id int, elapsed time.Duration) (*TeamMatchState, error) {
	st, err := s.mutate(ctx, id, s.controller(actor), func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		now := s.now()
		moved, err := relay.SyncClock(m, elapsed, now)
		if err != nil {
			return nil, translateRelayError(err)
		}
		if !moved && !relay.ClockExpired(m, now) {
			return nil, errNoChange
		}
		return s.settleClock(m, bouts, now)
	})
	if errors.Is(err, errNoChange) {
		return s.Get(ctx, id)
	}
	return st, err
}

// settleClock closes the period when the stored clock has run out: the leg
// ends on time, or an overtime stops and waits for a decision.
func (s *relayService) settleClock(m *models.TeamMatch, bouts []*models.TeamMatchBout, now time.Time) (*BoutEndSummary, error) {
	if !m.TimerRunning || !relay.ClockExpired(m, now) {
		return nil, nil
	}
	switch m.Status {
	case models.TeamMatchInProgress:
		b, err := relay.ActiveBout(m, bouts)
		if err != nil {
			return nil, translateRelayError(err)
		}
		limit := relay.PeriodLimit(m)
		reason, _ := relay.BoutEnd(m, b, limit)
		return s.finish(m, bouts, b.BoutNumber, reason, limit)
	case models.TeamMatchOvertime:
		s.logger.Info("overtime expired without a touch", zap.Int("team_match_id", m.ID))
		return nil, translateRelayError(relay.ExpireOvertime(m))
	}
	return nil, nil
}

func (s *relayService) onClockTick(id int, elapsed time.Duration) {
	data := map[string]int{"elapsed_seconds": int(elapsed / time.Second)}
	s.publisher.Publish(context.Background(), realtime.NewEvent(realtime.TeamMatchTopic(id), realtime.EventUpdate, "team_match_clock", id, data))
}

// onClockExpired runs when this process's countdown for period reaches zero.
// The stored clock decides: a countdown armed for a period the match has
// left, or one running ahead of the stored anchor, is only re-placed.
func (s *relayService) onClockExpired(id, period int) {
	ctx, cancel := context.WithTimeout(context.Background(), clockCallbackTimeout)
	defer cancel()

	var stored *models.TeamMatch
	_, err := s.mutate(ctx, id, nil, func(m *models.TeamMatch, bouts []*models.TeamMatchBout) (*BoutEndSummary, error) {
		now := s.now()
		if relay.ClockPeriod(m) != period || !m.TimerRunning || !relay.ClockExpired(m, now) {
			stored = m
			return nil, errNoChange
		}
		return s.settleClock(m, bouts, now)
	})
	switch {
	case errors.Is(err, errNoChange):
		s.syncClock(stored)
	case err != nil:
		s.logger.Error("failed to apply clock expiry", zap.Int("team_match_id", id), zap.Error(err))
	}
}
