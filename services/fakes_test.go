package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/Dosada05/fencing-club/realtime"
	"github.com/Dosada05/fencing-club/repositories"
	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for the database. Rows are stored by
// value so callers only see their changes after an explicit update.
type memStore struct {
	mu            sync.Mutex
	nextID        int
	now           time.Time
	tournaments   map[int]models.Tournament
	matches       map[int]models.Match
	teamMatches   map[int]models.TeamMatch
	bouts         map[int]models.TeamMatchBout
	members       map[int]models.Member
	notifications []models.Notification
}

func newMemStore() *memStore {
	return &memStore{
		now:         time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
		tournaments: map[int]models.Tournament{},
		matches:     map[int]models.Match{},
		teamMatches: map[int]models.TeamMatch{},
		bouts:       map[int]models.TeamMatchBout{},
		members:     map[int]models.Member{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

type memSnapshot struct {
	nextID        int
	tournaments   map[int]models.Tournament
	matches       map[int]models.Match
	teamMatches   map[int]models.TeamMatch
	bouts         map[int]models.TeamMatchBout
	notifications []models.Notification
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		nextID:        s.nextID,
		tournaments:   copyMap(s.tournaments),
		matches:       copyMap(s.matches),
		teamMatches:   copyMap(s.teamMatches),
		bouts:         copyMap(s.bouts),
		notifications: append([]models.Notification(nil), s.notifications...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.tournaments = snap.tournaments
	s.matches = snap.matches
	s.teamMatches = snap.teamMatches
	s.bouts = snap.bouts
	s.notifications = snap.notifications
}

func (s *memStore) addMember(id, gymID int, name string, role models.UserRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = models.Member{ID: id, GymID: gymID, Name: name, Role: role}
}

// fakeTx serializes transactions, which stands in for row locks, and rolls
// the store back when fn fails.
type fakeTx struct {
	mu    sync.Mutex
	store *memStore
}

func (f *fakeTx) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(saved)
		return err
	}
	return nil
}

type fakeMatchRepo struct{ store *memStore }

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if m.AthleteAID == m.AthleteBID {
		return repositories.ErrMatchSelfPair
	}
	m.ID = r.store.id()
	m.CreatedAt, m.UpdatedAt = r.store.now, r.store.now
	r.store.matches[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) filter(keep func(models.Match) bool) []*models.Match {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, m := range r.store.matches {
		if keep(m) {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.filter(func(m models.Match) bool { return m.TournamentID != nil && *m.TournamentID == tournamentID }), nil
}

func (r *fakeMatchRepo) ListStandaloneByAthlete(_ context.Context, athleteID int) ([]*models.Match, error) {
	return r.filter(func(m models.Match) bool {
		return m.TournamentID == nil && (m.AthleteAID == athleteID || m.AthleteBID == athleteID)
	}), nil
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.matches[m.ID]; !ok {
		return repositories.ErrMatchNotFound
	}
	m.UpdatedAt = r.store.now
	r.store.matches[m.ID] = *m
	return nil
}

func (r *fakeMatchRepo) ApproveScored(_ context.Context, _ repositories.SQLExecutor, tournamentID, approverID int) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, m := range r.store.matches {
		if m.TournamentID == nil || *m.TournamentID != tournamentID || m.Status != models.MatchPending || !m.HasScores() || m.IsSelfPair() {
			continue
		}
		approver := approverID
		if m.ApprovedByA == nil {
			m.ApprovedByA = &approver
		}
		if m.ApprovedByB == nil {
			m.ApprovedByB = &approver
		}
		m.Status = models.MatchApproved
		r.store.matches[id] = m
		n++
	}
	return n, nil
}

func (r *fakeMatchRepo) CancelByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, keepApproved bool) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, m := range r.store.matches {
		if m.TournamentID == nil || *m.TournamentID != tournamentID || m.Status == models.MatchCancelled {
			continue
		}
		if keepApproved && m.Status == models.MatchApproved {
			continue
		}
		m.Status = models.MatchCancelled
		r.store.matches[id] = m
		n++
	}
	return n, nil
}

type fakeTournamentRepo struct{ store *memStore }

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t.ID = r.store.id()
	t.CreatedAt = r.store.now
	r.store.tournaments[t.ID] = *t
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *fakeTournamentRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTournamentRepo) list(keep func(models.Tournament) bool) []*models.Tournament {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.Tournament, 0)
	for _, t := range r.store.tournaments {
		if keep(t) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeTournamentRepo) ListByGym(_ context.Context, gymID int, status *models.TournamentStatus) ([]*models.Tournament, error) {
	return r.list(func(t models.Tournament) bool {
		return t.GymID == gymID && (status == nil || t.Status == *status)
	}), nil
}

func (r *fakeTournamentRepo) TransitionStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok || t.Status != from {
		return repositories.ErrTournamentStatusChanged
	}
	t.Status = to
	if to == models.TournamentCompleted {
		at := r.store.now
		t.CompletedAt = &at
	}
	r.store.tournaments[id] = t
	return nil
}

func (r *fakeTournamentRepo) ListStale(_ context.Context, _ repositories.SQLExecutor, createdBefore time.Time) ([]*models.Tournament, error) {
	return r.list(func(t models.Tournament) bool {
		return t.Status == models.TournamentInProgress && !t.CreatedAt.After(createdBefore)
	}), nil
}

type fakeMemberRepo struct{ store *memStore }

func (r *fakeMemberRepo) ListByGym(_ context.Context, gymID int) ([]*models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.Member, 0)
	for _, m := range r.store.members {
		if m.GymID == gymID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMemberRepo) GetByID(_ context.Context, id int) (*models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.members[id]
	if !ok {
		return nil, repositories.ErrMemberNotFound
	}
	return &m, nil
}

func (r *fakeMemberRepo) ListByIDs(_ context.Context, ids []int) ([]*models.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.Member, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.store.members[id]; ok {
			out = append(out, &m)
		}
	}
	return out, nil
}

type fakeTeamMatchRepo struct{ store *memStore }

func (r *fakeTeamMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.TeamMatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m.ID = r.store.id()
	m.CreatedAt, m.UpdatedAt = r.store.now, r.store.now
	r.store.teamMatches[m.ID] = *m
	return nil
}

func (r *fakeTeamMatchRepo) CreateBouts(_ context.Context, _ repositories.SQLExecutor, bouts []*models.TeamMatchBout) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range bouts {
		b.ID = r.store.id()
		r.store.bouts[b.ID] = *b
	}
	return nil
}

func (r *fakeTeamMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.TeamMatch, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.teamMatches[id]
	if !ok {
		return nil, repositories.ErrTeamMatchNotFound
	}
	return &m, nil
}

func (r *fakeTeamMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TeamMatch, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeTeamMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, m *models.TeamMatch) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.teamMatches[m.ID]; !ok {
		return repositories.ErrTeamMatchNotFound
	}
	r.store.teamMatches[m.ID] = *m
	return nil
}

func (r *fakeTeamMatchRepo) ListBouts(_ context.Context, _ repositories.SQLExecutor, teamMatchID int) ([]*models.TeamMatchBout, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.TeamMatchBout, 0, 9)
	for _, b := range r.store.bouts {
		if b.TeamMatchID == teamMatchID {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BoutNumber < out[j].BoutNumber })
	return out, nil
}

func (r *fakeTeamMatchRepo) UpdateBout(_ context.Context, _ repositories.SQLExecutor, b *models.TeamMatchBout) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.bouts[b.ID]; !ok {
		return repositories.ErrTeamMatchBoutNotFound
	}
	r.store.bouts[b.ID] = *b
	return nil
}

type fakeNotificationRepo struct{ store *memStore }

func (r *fakeNotificationRepo) Create(_ context.Context, _ repositories.SQLExecutor, n *models.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n.ID = r.store.id()
	n.CreatedAt = r.store.now
	r.store.notifications = append(r.store.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID int, unreadOnly bool, limit int) ([]*models.Notification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*models.Notification, 0)
	for i := len(r.store.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.store.notifications[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, &n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, n := range r.store.notifications {
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				at := r.store.now
				r.store.notifications[i].ReadAt = &at
			}
			return nil
		}
	}
	return repositories.ErrNotificationNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) count(topic, entity string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Topic == topic && ev.Entity == entity {
			n++
		}
	}
	return n
}

type sentNotice struct {
	userID int
	kind   models.NotificationKind
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (n *recordingNotifier) Notify(_ context.Context, userID int, kind models.NotificationKind, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{userID, kind})
}

func (n *recordingNotifier) count(userID int, kind models.NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.userID == userID && s.kind == kind {
			c++
		}
	}
	return c
}

type fakeArchive struct {
	keys []string
	err  error
}

func (a *fakeArchive) Save(_ context.Context, slug string, tournamentID int, _ interface{}) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, slug)
	return "https://results.example.com/" + slug, nil
}

const (
	testGym        = 1
	instructorID   = 100
	outsiderGymID  = 2
	outsiderMember = 200
)

type testEnv struct {
	store       *memStore
	publisher   *recordingPublisher
	notifier    *recordingNotifier
	archive     *fakeArchive
	timers      *LiveTimers
	matches     MatchService
	tournaments TournamentService
	relays      RelayService
}

// newTestEnv seeds one gym with an instructor (100) and athletes 1..8, plus a
// member of another gym (200).
func newTestEnv() *testEnv {
	store := newMemStore()
	store.addMember(instructorID, testGym, "Coach", models.RoleInstructor)
	for id := 1; id <= 8; id++ {
		store.addMember(id, testGym, "Athlete", models.RoleAthlete)
	}
	store.addMember(outsiderMember, outsiderGymID, "Visitor", models.RoleAthlete)

	tx := &fakeTx{store: store}
	matchRepo := &fakeMatchRepo{store: store}
	tournamentRepo := &fakeTournamentRepo{store: store}
	memberRepo := &fakeMemberRepo{store: store}
	publisher := &recordingPublisher{}
	notifier := &recordingNotifier{}
	archive := &fakeArchive{}
	timers := NewLiveTimers(time.Hour)
	logger := zap.NewNop()

	return &testEnv{
		store:       store,
		publisher:   publisher,
		notifier:    notifier,
		archive:     archive,
		timers:      timers,
		matches:     NewMatchService(tx, matchRepo, tournamentRepo, memberRepo, notifier, publisher, logger),
		tournaments: NewTournamentService(tx, tournamentRepo, matchRepo, memberRepo, notifier, publisher, archive, 24*time.Hour, logger),
		relays:      NewRelayService(tx, &fakeTeamMatchRepo{store: store}, memberRepo, timers, publisher, logger),
	}
}

func athlete(id int) models.Actor { return models.Actor{ID: id, Role: models.RoleAthlete} }

func instructor() models.Actor { return models.Actor{ID: instructorID, Role: models.RoleInstructor} }

func intPtr(v int) *int { return &v }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// relayInstance builds a relay service the way another server process would
// see the same database: shared rows, its own live timers.
func relayInstance(env *testEnv, tx repositories.Transactor, clock *testClock) (*relayService, *LiveTimers) {
	timers := NewLiveTimers(time.Hour)
	svc := NewRelayService(tx, &fakeTeamMatchRepo{store: env.store}, &fakeMemberRepo{store: env.store}, timers, env.publisher, zap.NewNop()).(*relayService)
	svc.now = clock.Now
	return svc, timers
}
