package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"go.uber.org/zap"
)

func TestCreateTournamentValidation(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name     string
		actor    models.Actor
		athletes []int
		want     error
	}{
		{"too few", instructor(), []int{1, 2}, ErrValidation},
		{"too many", instructor(), []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17}, ErrValidation},
		{"duplicate", instructor(), []int{1, 2, 2}, ErrValidation},
		{"other gym athlete", instructor(), []int{1, 2, outsiderMember}, ErrAthleteNotInGym},
		{"creator from other gym", athlete(outsiderMember), []int{1, 2, 3}, ErrAthleteNotInGym},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.tournaments.Create(context.Background(), tt.actor, CreateTournamentInput{Name: "Cup", GymID: testGym, AthleteIDs: tt.athletes})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(env.store.tournaments) != 0 || len(env.store.matches) != 0 {
		t.Fatalf("rejected creations must not persist anything")
	}
}

func TestCreateTournamentGeneratesPendingMatches(t *testing.T) {
	env := newTestEnv()
	date := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	tour, matches, err := env.tournaments.Create(context.Background(), instructor(), CreateTournamentInput{
		Name: "Autumn Open", Date: date, GymID: testGym, AthleteIDs: []int{1, 2, 3, 4, 5},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tour.Status != models.TournamentInProgress || tour.CreatorID != instructorID {
		t.Fatalf("tournament = %+v", tour)
	}
	if tour.Slug != "autumn-open-2026-10-18" {
		t.Fatalf("slug = %q", tour.Slug)
	}
	if len(matches) != 10 {
		t.Fatalf("matches = %d, want 10", len(matches))
	}
	for _, m := range matches {
		if m.Status != models.MatchPending || m.HasScores() || m.TournamentID == nil || *m.TournamentID != tour.ID {
			t.Fatalf("match = %+v", m)
		}
	}
}

// scoreFor records a result between x and y whatever orientation the match
// was stored in.
func scoreFor(t *testing.T, env *testEnv, matches []*models.Match, x, y, scoreX, scoreY int) {
	t.Helper()
	for _, m := range matches {
		switch {
		case m.AthleteAID == x && m.AthleteBID == y:
			if _, err := env.matches.RecordResult(context.Background(), instructor(), m.ID, foil(scoreX, scoreY)); err != nil {
				t.Fatalf("record %d-%d: %v", x, y, err)
			}
			return
		case m.AthleteAID == y && m.AthleteBID == x:
			if _, err := env.matches.RecordResult(context.Background(), instructor(), m.ID, foil(scoreY, scoreX)); err != nil {
				t.Fatalf("record %d-%d: %v", x, y, err)
			}
			return
		}
	}
	t.Fatalf("no match between %d and %d", x, y)
}

func TestFourAthleteTournamentEndToEnd(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tour, matches := createTournament(t, env, instructor(), 1, 2, 3, 4)
	if len(matches) != 6 {
		t.Fatalf("matches = %d, want 6", len(matches))
	}

	scoreFor(t, env, matches, 1, 2, 5, 3)
	scoreFor(t, env, matches, 1, 3, 5, 4)
	scoreFor(t, env, matches, 1, 4, 5, 0)
	scoreFor(t, env, matches, 2, 3, 5, 1)
	scoreFor(t, env, matches, 4, 2, 5, 3)
	scoreFor(t, env, matches, 3, 4, 5, 2)

	snap, err := env.tournaments.Snapshot(ctx, tour.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.CompletedCount != 6 || snap.TotalCount != 6 {
		t.Fatalf("completed %d of %d", snap.CompletedCount, snap.TotalCount)
	}
	if len(snap.Rounds) != 3 {
		t.Fatalf("rounds = %d, want 3", len(snap.Rounds))
	}

	res, err := env.tournaments.Finalize(ctx, instructor(), tour.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Tournament.Status != models.TournamentCompleted || res.Tournament.CompletedAt == nil {
		t.Fatalf("tournament = %+v", res.Tournament)
	}

	wantOrder := []int{1, 2, 3, 4}
	wantWins := []int{3, 1, 1, 1}
	wantDiff := []int{8, 0, -2, -6}
	for i, s := range res.Standings {
		if s.AthleteID != wantOrder[i] || s.Wins != wantWins[i] || s.PointDiff != wantDiff[i] || s.Rank != i+1 {
			t.Fatalf("standing %d = %+v", i, s)
		}
	}
	if len(env.archive.keys) != 1 || res.ArchiveURL == "" {
		t.Fatalf("results were not archived: %v %q", env.archive.keys, res.ArchiveURL)
	}
	if env.notifier.count(1, models.NotifyTournamentClosed) != 1 {
		t.Fatalf("athletes were not notified of the result")
	}
}

func TestFinalizeOnlyApprovesScoredMatches(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tour, matches := createTournament(t, env, instructor(), 1, 2, 3)

	// One result entered but never countersigned, the rest untouched.
	scored := env.store.matches[matches[0].ID]
	scored.ScoreA, scored.ScoreB = intPtr(5), intPtr(2)
	env.store.matches[scored.ID] = scored

	res, err := env.tournaments.Finalize(ctx, instructor(), tour.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Approved != 1 {
		t.Fatalf("approved = %d, want 1", res.Approved)
	}
	for _, m := range matches {
		got := env.store.matches[m.ID]
		if m.ID == scored.ID {
			if got.Status != models.MatchApproved {
				t.Fatalf("scored match status = %s", got.Status)
			}
			continue
		}
		if got.Status != models.MatchPending || got.HasScores() {
			t.Fatalf("unscored match changed: %+v", got)
		}
	}

	if _, err := env.tournaments.Finalize(ctx, instructor(), tour.ID); !errors.Is(err, ErrTournamentClosed) {
		t.Fatalf("second finalize err = %v", err)
	}
}

func TestFinalizeSurvivesArchiveFailure(t *testing.T) {
	env := newTestEnv()
	env.archive.err = errors.New("bucket down")
	tour, _ := createTournament(t, env, instructor(), 1, 2, 3)

	res, err := env.tournaments.Finalize(context.Background(), instructor(), tour.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.ArchiveURL != "" || res.Tournament.Status != models.TournamentCompleted {
		t.Fatalf("result = %+v", res)
	}
}

func TestOrganizerOnlyTransitions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tour, _ := createTournament(t, env, athlete(1), 1, 2, 3)

	if _, err := env.tournaments.Finalize(ctx, athlete(2), tour.ID); !errors.Is(err, ErrNotOrganizer) {
		t.Fatalf("finalize by participant err = %v", err)
	}
	if _, err := env.tournaments.Cancel(ctx, athlete(2), tour.ID, true); !errors.Is(err, ErrNotOrganizer) {
		t.Fatalf("cancel by participant err = %v", err)
	}
	if env.store.tournaments[tour.ID].Status != models.TournamentInProgress {
		t.Fatalf("status changed by a forbidden call")
	}
}

func TestCancelTournament(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tour, matches := createTournament(t, env, instructor(), 1, 2, 3)
	scoreFor(t, env, matches, 1, 2, 5, 1)

	if _, err := env.tournaments.Cancel(ctx, instructor(), tour.ID, false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("unconfirmed cancel err = %v", err)
	}

	got, err := env.tournaments.Cancel(ctx, instructor(), tour.ID, true)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != models.TournamentCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	for _, m := range matches {
		if s := env.store.matches[m.ID].Status; s != models.MatchCancelled {
			t.Fatalf("match %d status = %s, want cancelled", m.ID, s)
		}
	}
}

func TestAutoExpire(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	stale, staleMatches := createTournament(t, env, instructor(), 1, 2, 3)
	scoreFor(t, env, staleMatches, 1, 2, 5, 2)
	fresh, _ := createTournament(t, env, instructor(), 4, 5, 6)
	done, _ := createTournament(t, env, instructor(), 6, 7, 8)
	if _, err := env.tournaments.Finalize(ctx, instructor(), done.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	old := env.store.now.Add(-25 * time.Hour)
	for _, id := range []int{stale.ID, done.ID} {
		tr := env.store.tournaments[id]
		tr.CreatedAt = old
		env.store.tournaments[id] = tr
	}

	n, err := env.tournaments.AutoExpire(ctx, env.store.now)
	if err != nil {
		t.Fatalf("AutoExpire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}

	if s := env.store.tournaments[stale.ID].Status; s != models.TournamentCancelled {
		t.Fatalf("stale status = %s", s)
	}
	if s := env.store.tournaments[fresh.ID].Status; s != models.TournamentInProgress {
		t.Fatalf("fresh status = %s", s)
	}
	if s := env.store.tournaments[done.ID].Status; s != models.TournamentCompleted {
		t.Fatalf("completed status = %s", s)
	}

	approved := 0
	for _, m := range staleMatches {
		got := env.store.matches[m.ID]
		switch got.Status {
		case models.MatchApproved:
			approved++
			if !got.HasScores() {
				t.Fatalf("approved match lost its score")
			}
		case models.MatchCancelled:
		default:
			t.Fatalf("match %d left as %s", m.ID, got.Status)
		}
	}
	if approved != 1 {
		t.Fatalf("approved matches = %d, want 1", approved)
	}
}

func TestComputeStandingsCountsEachPairOnce(t *testing.T) {
	sabre := models.WeaponSabre
	match := func(id, a, b, sa, sb int, status models.MatchStatus) *models.Match {
		return &models.Match{ID: id, AthleteAID: a, AthleteBID: b, ScoreA: intPtr(sa), ScoreB: intPtr(sb), Weapon: &sabre, Status: status}
	}
	matches := []*models.Match{
		match(1, 1, 2, 5, 3, models.MatchApproved),
		match(2, 2, 1, 3, 5, models.MatchApproved),
		match(3, 3, 3, 5, 0, models.MatchApproved),
		match(4, 2, 3, 5, 4, models.MatchPending),
		match(5, 1, 9, 5, 0, models.MatchApproved),
		{ID: 6, AthleteAID: 1, AthleteBID: 3, ScoreA: intPtr(5), ScoreB: intPtr(1), Status: models.MatchApproved},
	}

	got := ComputeStandings([]int{1, 2, 3}, matches, map[int]string{1: "Ana"}, zap.NewNop())
	if len(got) != 3 {
		t.Fatalf("rows = %d", len(got))
	}
	if got[0].AthleteID != 1 || got[0].Name != "Ana" || got[0].Played != 1 || got[0].Wins != 1 || got[0].PointDiff != 2 {
		t.Fatalf("leader = %+v", got[0])
	}
	if got[1].AthleteID != 3 || got[1].Played != 0 {
		t.Fatalf("second = %+v", got[1])
	}
	if got[2].AthleteID != 2 || got[2].Losses != 1 || got[2].PointDiff != -2 {
		t.Fatalf("third = %+v", got[2])
	}
}

func TestSnapshotIsSideEffectFree(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	tour, _ := createTournament(t, env, instructor(), 1, 2, 3, 4, 5)

	before := len(env.publisher.events)
	first, err := env.tournaments.Snapshot(ctx, tour.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	second, err := env.tournaments.Snapshot(ctx, tour.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(env.publisher.events) != before {
		t.Fatalf("snapshot published events")
	}
	if len(first.Rounds) != 5 || len(second.Rounds) != 5 || first.TotalCount != 10 {
		t.Fatalf("rounds %d/%d total %d", len(first.Rounds), len(second.Rounds), first.TotalCount)
	}

	if _, err := env.tournaments.Snapshot(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing tournament err = %v", err)
	}
}
