package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"scorekeeper/internal/domain"
	"scorekeeper/internal/notify"
	"scorekeeper/internal/repository"
	"scorekeeper/internal/utils"
)

var t0 = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.ResetMessage
	err  error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, msg notify.ResetMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *fakeMailer) last() notify.ResetMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// failingStore makes UpdateScores fail, inside and outside transactions
type failingStore struct {
	repository.Store
	err error
}

func (s failingStore) Predictions() repository.PredictionRepository {
	return failingPredictions{PredictionRepository: s.Store.Predictions(), err: s.err}
}

func (s failingStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(failingStore{Store: tx, err: s.err})
	})
}

type failingPredictions struct {
	repository.PredictionRepository
	err error
}

func (p failingPredictions) UpdateScores(context.Context, map[uint]int) error { return p.err }

// lockingStore records which team reads took row locks
type lockingStore struct {
	repository.Store
	mu    *sync.Mutex
	locks *[]string
}

func newLockingStore(store repository.Store) lockingStore {
	return lockingStore{Store: store, mu: &sync.Mutex{}, locks: &[]string{}}
}

func (s lockingStore) Teams() repository.TeamRepository {
	return lockingTeams{TeamRepository: s.Store.Teams(), s: s}
}

func (s lockingStore) Atomic(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Atomic(ctx, func(tx repository.Store) error {
		return fn(lockingStore{Store: tx, mu: s.mu, locks: s.locks})
	})
}

func (s lockingStore) record(lock string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.locks = append(*s.locks, lock)
}

func (s lockingStore) taken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), *s.locks...)
}

type lockingTeams struct {
	repository.TeamRepository
	s lockingStore
}

func (r lockingTeams) ListForShare(ctx context.Context, ids []uint) ([]domain.Team, error) {
	r.s.record("share")
	return r.TeamRepository.ListForShare(ctx, ids)
}

func (r lockingTeams) GetForUpdate(ctx context.Context, id uint) (*domain.Team, error) {
	r.s.record("update")
	return r.TeamRepository.GetForUpdate(ctx, id)
}

var errStoreDown = errors.New("store down")

type fixture struct {
	store       *repository.MemoryStore
	now         time.Time
	log         *logrus.Logger
	hook        *test.Hook
	mailer      *fakeMailer
	opts        Options
	auth        *AuthService
	teams       *TeamService
	matches     *MatchService
	predictions *PredictionService
	leaderboard *LeaderboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, hook := test.NewNullLogger()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		now:    t0.Add(-24 * time.Hour),
		log:    log,
		hook:   hook,
		mailer: &fakeMailer{},
	}
	f.opts = Options{
		LockBuffer:   30 * time.Minute,
		StoreTimeout: time.Second,
		Now:          func() time.Time { return f.now },
	}
	f.wire(f.store)
	return f
}

// wire (re)builds the services on top of store
func (f *fixture) wire(store repository.Store) {
	locker := utils.NewKeyedMutex()
	f.auth = NewAuthService(store, f.mailer, AuthOptions{
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		ResetTokenTTL: 15 * time.Minute,
		BaseURL:       "https://league.test/",
		BcryptCost:    bcrypt.MinCost,
	}, f.opts, f.log)
	f.teams = NewTeamService(store, nil, f.opts, f.log)
	f.matches = NewMatchService(store, locker, NewReconciler(f.log), f.opts, f.log)
	f.predictions = NewPredictionService(store, locker, f.opts, f.log)
	f.leaderboard = NewLeaderboardService(store, f.opts, f.log)
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, Email: name + "@example.com", Password: "x", Role: domain.RoleUser}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) team(t *testing.T, name string) *domain.Team {
	t.Helper()
	team, err := f.teams.Create(context.Background(), TeamInput{Name: name, ImageURL: "https://img.test/" + name + ".png"})
	require.NoError(t, err)
	return team
}

// match schedules a at b kicking off at t0
func (f *fixture) match(t *testing.T, a, b *domain.Team) *domain.Match {
	t.Helper()
	m, err := f.matches.Create(context.Background(), MatchInput{TeamOneID: a.ID, TeamTwoID: b.ID, StartsAt: t0})
	require.NoError(t, err)
	return m
}

func (f *fixture) predict(t *testing.T, u *domain.User, m *domain.Match, team *domain.Team) *domain.Prediction {
	t.Helper()
	p, _, err := f.predictions.Submit(context.Background(), u.ID, PredictionInput{MatchID: m.ID, TeamID: team.ID})
	require.NoError(t, err)
	return p
}

func (f *fixture) scores(t *testing.T, m *domain.Match) map[uint]int {
	t.Helper()
	ps, err := f.store.Predictions().ListByMatch(context.Background(), m.ID)
	require.NoError(t, err)
	out := make(map[uint]int, len(ps))
	for _, p := range ps {
		out[p.UserID] = p.Score
	}
	return out
}
