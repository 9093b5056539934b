package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/domain"
)

func TestMatchCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.team(t, "Alpha")

	_, err := f.matches.Create(ctx, MatchInput{TeamOneID: a.ID, TeamTwoID: a.ID, StartsAt: t0})
	assert.ErrorIs(t, err, domain.ErrInvalidTeams)
	_, err = f.matches.Create(ctx, MatchInput{TeamOneID: a.ID, TeamTwoID: a.ID + 50, StartsAt: t0})
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
	_, err = f.matches.Create(ctx, MatchInput{TeamOneID: a.ID, TeamTwoID: f.team(t, "Bravo").ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMatchList_AnnotatesForCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	later, err := f.matches.Create(ctx, MatchInput{TeamOneID: b.ID, TeamTwoID: a.ID, StartsAt: t0.Add(48 * time.Hour)})
	require.NoError(t, err)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	f.predict(t, alice, m, b)
	f.predict(t, bob, later, a)

	f.now = t0.Add(-10 * time.Minute) // m is locked, later is open
	views, err := f.matches.List(ctx, domain.Identity{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, later.ID, views[0].ID, "newest kickoff first")
	assert.True(t, views[0].CanPredict)
	assert.Nil(t, views[0].UserPrediction)

	assert.Equal(t, m.ID, views[1].ID)
	assert.False(t, views[1].CanPredict)
	assert.Equal(t, t0.Add(-30*time.Minute), views[1].LockTime)
	require.NotNil(t, views[1].UserPrediction)
	assert.Equal(t, b.ID, *views[1].UserPrediction)
	assert.Equal(t, domain.ScorePending, *views[1].UserScore)
	assert.Equal(t, "Alpha", views[1].TeamOne.Name)
}

func TestMatchDelete_CascadesPredictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.team(t, "Alpha"), f.team(t, "Bravo")
	m := f.match(t, a, b)
	f.predict(t, f.user(t, "alice"), m, a)
	f.predict(t, f.user(t, "bob"), m, b)

	removed, err := f.matches.Delete(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = f.store.Matches().GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	ps, err := f.store.Predictions().ListByMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, ps)

	_, err = f.matches.Delete(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	require.NoError(t, f.teams.Delete(ctx, a.ID), "team is free once its match is gone")
}

func TestMatchCreate_AndTeamDelete_LockTeamRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.team(t, "Alpha"), f.team(t, "Bravo"), f.team(t, "Charlie")

	locking := newLockingStore(f.store)
	f.wire(locking)
	_, err := f.matches.Create(ctx, MatchInput{TeamOneID: a.ID, TeamTwoID: b.ID, StartsAt: t0})
	require.NoError(t, err)
	assert.Equal(t, []string{"share"}, locking.taken(), "participants are share-locked while the match is inserted")

	require.NoError(t, f.teams.Delete(ctx, c.ID))
	assert.Equal(t, []string{"share", "update"}, locking.taken(), "team delete waits on the row lock")

	err = f.teams.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrTeamInUse)
	_, err = f.matches.Create(ctx, MatchInput{TeamOneID: a.ID, TeamTwoID: c.ID, StartsAt: t0})
	assert.ErrorIs(t, err, domain.ErrTeamNotFound, "deleted team cannot be scheduled")
}
