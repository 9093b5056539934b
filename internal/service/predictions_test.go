package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/domain"
)

func TestSubmit_CreatesThenUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	alice := f.user(t, "alice")

	p1, created, err := f.predictions.Submit(ctx, alice.ID, PredictionInput{MatchID: m.ID, TeamID: a.ID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.ScorePending, p1.Score)

	p2, created, err := f.predictions.Submit(ctx, alice.ID, PredictionInput{MatchID: m.ID, TeamID: b.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, b.ID, p2.TeamID)

	ps, err := f.store.Predictions().ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, ps, 1)
}

func TestSubmit_ClosedAtLockTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	alice := f.user(t, "alice")
	f.predict(t, alice, m, a)

	for _, now := range []time.Time{
		t0.Add(-30 * time.Minute), // Exactly the lock time
		t0.Add(-time.Minute),
		t0,
		t0.Add(time.Hour),
	} {
		f.now = now
		_, _, err := f.predictions.Submit(ctx, alice.ID, PredictionInput{MatchID: m.ID, TeamID: b.ID})
		assert.ErrorIs(t, err, domain.ErrPredictionClosed, now)
	}

	p, err := f.store.Predictions().Get(ctx, alice.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, p.TeamID, "ledger must be unchanged")
}

func TestSubmit_OpenJustBeforeLock(t *testing.T) {
	f := newFixture(t)
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	f.now = t0.Add(-30*time.Minute - time.Nanosecond)

	_, created, err := f.predictions.Submit(context.Background(), f.user(t, "alice").ID, PredictionInput{MatchID: m.ID, TeamID: a.ID})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSubmit_DecidedMatchIsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	_, _, err := f.matches.DeclareWinner(ctx, m.ID, a.ID)
	require.NoError(t, err)

	_, _, err = f.predictions.Submit(ctx, f.user(t, "alice").ID, PredictionInput{MatchID: m.ID, TeamID: a.ID})
	assert.ErrorIs(t, err, domain.ErrPredictionClosed)
}

func TestSubmit_Rejections(t *testing.T) {
	f := newFixture(t)
	a, b, c := f.team(t, "Alpha"), f.team(t, "Bravo"), f.team(t, "Charlie")
	m := f.match(t, a, b)
	alice := f.user(t, "alice")

	_, _, err := f.predictions.Submit(context.Background(), alice.ID, PredictionInput{MatchID: m.ID + 100, TeamID: a.ID})
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)

	_, _, err = f.predictions.Submit(context.Background(), alice.ID, PredictionInput{MatchID: m.ID, TeamID: c.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTeamChoice)
}

func TestSubmit_ConcurrentSubmissionsKeepOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	alice := f.user(t, "alice")

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		team := a
		if i%2 == 1 {
			team = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := f.predictions.Submit(ctx, alice.ID, PredictionInput{MatchID: m.ID, TeamID: team.ID})
			if !assert.NoError(t, err) {
				return
			}
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	ps, err := f.store.Predictions().ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, ps, 1)
}

func TestListForMatch_GroupsByParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	f.predict(t, f.user(t, "alice"), m, a)
	f.predict(t, f.user(t, "carol"), m, a)

	groups, err := f.predictions.ListForMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []PredictionGroup{
		{TeamID: a.ID, TeamName: "Alpha", Usernames: []string{"alice", "carol"}},
		{TeamID: b.ID, TeamName: "Bravo", Usernames: []string{}},
	}, groups)

	_, err = f.predictions.ListForMatch(ctx, m.ID+100)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}
