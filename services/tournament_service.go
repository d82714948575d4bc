package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/fencing-club/brackets"
	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/Dosada05/fencing-club/repositories"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultTournamentRetention = 24 * time.Hour

type CreateTournamentInput struct {
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	GymID      int       `json:"gym_id"`
	AthleteIDs []int     `json:"athlete_ids"`
}

// TournamentSnapshot is everything a client needs to rebuild its tournament
// view. Reading it has no side effects, so push events and polling can both
// trigger it.
type TournamentSnapshot struct {
	Tournament     *models.Tournament          `json:"tournament"`
	Matches        []*models.Match             `json:"matches"`
	Rounds         []brackets.Round            `json:"rounds"`
	Standings      []models.TournamentStanding `json:"standings"`
	CompletedCount int                         `json:"completed_count"`
	TotalCount     int                         `json:"total_count"`
	FetchedAt      time.Time                   `json:"fetched_at"`
}

type FinalizeResult struct {
	Tournament *models.Tournament          `json:"tournament"`
	Approved   int64                       `json:"approved"`
	Standings  []models.TournamentStanding `json:"standings"`
	ArchiveURL string                      `json:"archive_url,omitempty"`
}

// ResultsArchiver stores a copy of final results outside the database.
type ResultsArchiver interface {
	Save(ctx context.Context, slug string, tournamentID int, v interface{}) (string, error)
}

type TournamentService interface {
	Create(ctx context.Context, actor models.Actor, in CreateTournamentInput) (*models.Tournament, []*models.Match, error)
	Get(ctx context.Context, id int) (*models.Tournament, error)
	ListByGym(ctx context.Context, gymID int, status *models.TournamentStatus) ([]*models.Tournament, error)
	Finalize(ctx context.Context, actor models.Actor, id int) (*FinalizeResult, error)
	Cancel(ctx context.Context, actor models.Actor, id int, confirm bool) (*models.Tournament, error)
	AutoExpire(ctx context.Context, now time.Time) (int, error)
	Standings(ctx context.Context, id int) ([]models.TournamentStanding, error)
	Rounds(ctx context.Context, id int) ([]brackets.Round, error)
	Snapshot(ctx context.Context, id int) (*TournamentSnapshot, error)
}

type tournamentService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	memberRepo     repositories.MemberRepository
	notifier       Notifier
	publisher      realtime.Publisher
	archive        ResultsArchiver
	retention      time.Duration
	logger         *zap.Logger
}

// NewTournamentService wires the lifecycle service. archive may be nil, in
// which case finalized results are only kept in the database.
func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	memberRepo repositories.MemberRepository,
	notifier Notifier,
	publisher realtime.Publisher,
	archive ResultsArchiver,
	retention time.Duration,
	logger *zap.Logger,
) TournamentService {
	if retention <= 0 {
		retention = DefaultTournamentRetention
	}
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		memberRepo:     memberRepo,
		notifier:       notifier,
		publisher:      publisher,
		archive:        archive,
		retention:      retention,
		logger:         logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor models.Actor, in CreateTournamentInput) (*models.Tournament, []*models.Match, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, nil, ErrTournamentNameMissing
	}
	if err := brackets.ValidateRoster(in.AthleteIDs); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	required := append([]int(nil), in.AthleteIDs...)
	if !actor.IsStaff() {
		required = append(required, actor.ID)
	}
	if err := requireGymMembers(ctx, s.memberRepo, in.GymID, required); err != nil {
		return nil, nil, err
	}

	pairs, err := brackets.GeneratePairs(in.AthleteIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	t := &models.Tournament{
		Name:       name,
		Slug:       slug.Make(name + " " + date.Format("2006-01-02")),
		Date:       date,
		Status:     models.TournamentInProgress,
		CreatorID:  actor.ID,
		GymID:      in.GymID,
		AthleteIDs: append([]int(nil), in.AthleteIDs...),
	}
	matches := make([]*models.Match, 0, len(pairs))

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.Create(ctx, exec, t); err != nil {
			return translateRepoError(err)
		}
		for _, p := range pairs {
			tournamentID := t.ID
			m := &models.Match{
				TournamentID: &tournamentID,
				AthleteAID:   p.AthleteA,
				AthleteBID:   p.AthleteB,
				Status:       models.MatchPending,
				CreatorID:    actor.ID,
			}
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				return translateRepoError(err)
			}
			matches = append(matches, m)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("tournament created",
		zap.Int("tournament_id", t.ID),
		zap.Int("athletes", len(t.AthleteIDs)),
		zap.Int("matches", len(matches)),
	)
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.TournamentTopic(t.ID), realtime.EventInsert, "tournament", t.ID, nil))
	return t, matches, nil
}

func (s *tournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	return t, nil
}

func (s *tournamentService) ListByGym(ctx context.Context, gymID int, status *models.TournamentStatus) ([]*models.Tournament, error) {
	list, err := s.tournamentRepo.ListByGym(ctx, gymID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments of gym %d: %w", gymID, err)
	}
	if list == nil {
		return []*models.Tournament{}, nil
	}
	return list, nil
}

// lockForOrganizer loads the tournament under lock and checks that the actor
// may close it while it is still running.
func (s *tournamentService) lockForOrganizer(ctx context.Context, exec repositories.SQLExecutor, actor models.Actor, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
	if err != nil {
		return nil, translateRepoError(err)
	}
	if !IsOrganizer(actor, t) {
		return nil, ErrNotOrganizer
	}
	if t.Status != models.TournamentInProgress {
		return nil, ErrTournamentClosed
	}
	return t, nil
}

func (s *tournamentService) Finalize(ctx context.Context, actor models.Actor, id int) (*FinalizeResult, error) {
	var approved int64
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.lockForOrganizer(ctx, exec, actor, id); err != nil {
			return err
		}
		n, err := s.matchRepo.ApproveScored(ctx, exec, id, actor.ID)
		if err != nil {
			return err
		}
		approved = n
		return translateRepoError(s.tournamentRepo.TransitionStatus(ctx, exec, id, models.TournamentInProgress, models.TournamentCompleted))
	})
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &FinalizeResult{Tournament: snap.Tournament, Approved: approved, Standings: snap.Standings}
	result.ArchiveURL = s.archiveResults(ctx, snap)

	s.logger.Info("tournament finalized", zap.Int("tournament_id", id), zap.Int64("approved_matches", approved))
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.TournamentTopic(id), realtime.EventUpdate, "tournament", id, nil))
	s.notifyRoster(ctx, snap.Tournament, actor.ID)
	return result, nil
}

// archiveResults is best effort: a failed upload is logged and finalize
// still succeeds.
func (s *tournamentService) archiveResults(ctx context.Context, snap *TournamentSnapshot) string {
	if s.archive == nil {
		return ""
	}
	url, err := s.archive.Save(ctx, snap.Tournament.Slug, snap.Tournament.ID, snap)
	if err != nil {
		s.logger.Warn("failed to archive tournament results", zap.Int("tournament_id", snap.Tournament.ID), zap.Error(err))
		return ""
	}
	return url
}

func (s *tournamentService) notifyRoster(ctx context.Context, t *models.Tournament, actorID int) {
	payload := map[string]interface{}{"tournament_id": t.ID, "status": t.Status}
	for _, athleteID := range t.AthleteIDs {
		if athleteID == actorID {
			continue
		}
		s.notifier.Notify(ctx, athleteID, models.NotifyTournamentClosed, payload)
	}
}

func (s *tournamentService) Cancel(ctx context.Context, actor models.Actor, id int, confirm bool) (*models.Tournament, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	var cancelled int64
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.lockForOrganizer(ctx, exec, actor, id); err != nil {
			return err
		}
		n, err := s.matchRepo.CancelByTournament(ctx, exec, id, false)
		if err != nil {
			return err
		}
		cancelled = n
		return translateRepoError(s.tournamentRepo.TransitionStatus(ctx, exec, id, models.TournamentInProgress, models.TournamentCancelled))
	})
	if err != nil {
		return nil, err
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament cancelled", zap.Int("tournament_id", id), zap.Int64("cancelled_matches", cancelled))
	s.publisher.Publish(ctx, realtime.NewEvent(realtime.TournamentTopic(id), realtime.EventUpdate, "tournament", id, nil))
	s.notifyRoster(ctx, t, actor.ID)
	return t, nil
}

// AutoExpire cancels tournaments still running past the retention window.
// Approved matches survive; everything unresolved is cancelled. A tournament
// closed concurrently by its organizer is skipped.
func (s *tournamentService) AutoExpire(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.tournamentRepo.ListStale(ctx, nil, now.Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale tournaments: %w", err)
	}

	expired := 0
	var errs []error
	for _, t := range stale {
		err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.tournamentRepo.TransitionStatus(ctx, exec, t.ID, models.TournamentInProgress, models.TournamentCancelled); err != nil {
				return err
			}
			_, err := s.matchRepo.CancelByTournament(ctx, exec, t.ID, true)
			return err
		})
		switch {
		case errors.Is(err, repositories.ErrTournamentStatusChanged):
			s.logger.Info("tournament closed before expiry", zap.Int("tournament_id", t.ID))
			continue
		case err != nil:
			s.logger.Error("failed to expire tournament", zap.Int("tournament_id", t.ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("tournament %d: %w", t.ID, err))
			continue
		}
		expired++
		s.logger.Info("tournament expired", zap.Int("tournament_id", t.ID), zap.Time("created_at", t.CreatedAt))
		s.publisher.Publish(ctx, realtime.NewEvent(realtime.TournamentTopic(t.ID), realtime.EventUpdate, "tournament", t.ID, nil))
	}
	return expired, errors.Join(errs...)
}

func (s *tournamentService) Standings(ctx context.Context, id int) ([]models.TournamentStanding, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return snap.Standings, nil
}

func (s *tournamentService) Rounds(ctx context.Context, id int) ([]brackets.Round, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return snap.Rounds, nil
}

// Snapshot re-reads the tournament and derives rounds and standings from the
// stored matches.
func (s *tournamentService) Snapshot(ctx context.Context, id int) (*TournamentSnapshot, error) {
	var (
		t       *models.Tournament
		matches []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.tournamentRepo.GetByID(gctx, nil, id)
		return translateRepoError(err)
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to list matches of tournament %d: %w", id, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make(map[int]string, len(t.AthleteIDs))
	members, err := s.memberRepo.ListByIDs(ctx, t.AthleteIDs)
	if err != nil {
		s.logger.Warn("failed to load athlete names", zap.Int("tournament_id", id), zap.Error(err))
	}
	for _, m := range members {
		names[m.ID] = m.Name
	}

	rounds, err := brackets.RoundsFromMatches(t.AthleteIDs, matches)
	if err != nil {
		s.logger.Warn("cannot lay out rounds", zap.Int("tournament_id", id), zap.Error(err))
		rounds = []brackets.Round{}
	}

	snap := &TournamentSnapshot{
		Tournament: t,
		Matches:    matches,
		Rounds:     rounds,
		Standings:  ComputeStandings(t.AthleteIDs, matches, names, s.logger),
		FetchedAt:  time.Now().UTC(),
	}
	if snap.Matches == nil {
		snap.Matches = []*models.Match{}
	}
	for _, m := range matches {
		if m.IsSelfPair() || m.Status == models.MatchCancelled {
			continue
		}
		snap.TotalCount++
		if m.IsComplete() {
			snap.CompletedCount++
		}
	}
	return snap, nil
}
