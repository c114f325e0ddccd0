package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/storage"
	"github.com/cory-johannsen/lanes/internal/storage/postgres"
	"github.com/cory-johannsen/lanes/internal/testutil"
)

func newGame(t *testing.T, names ...string) scorecard.Game {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	g, err := scorecard.New(scorecard.NewGameParams{
		Name:        "Tuesday League",
		Location:    "Sunset Lanes",
		Date:        now.Add(time.Hour),
		CreatedBy:   "admin",
		PlayerNames: names,
	}, now)
	require.NoError(t, err)
	return g
}

func TestGameRepository_CreateAndGet(t *testing.T) {
	repo := postgres.NewGameRepository(testutil.NewPool(t))
	ctx := context.Background()

	g := newGame(t, "Ana", "Ben")
	var err error
	g, _, err = g.RecordRoll(g.Players[1].ID, 0, scoring.SlotFirst, 10)
	require.NoError(t, err)
	require.NoError(t, repo.CreateGame(ctx, g))

	got, err := repo.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Name, got.Name)
	assert.Equal(t, g.Location, got.Location)
	assert.True(t, got.IsActive)
	assert.WithinDuration(t, g.Date, got.Date, time.Millisecond)
	require.Len(t, got.Players, 2)
	assert.Equal(t, "Ana", got.Players[0].Name)
	assert.Equal(t, g.Players[1], got.Players[1], "rolls and derived flags survive a round trip")

	assert.ErrorIs(t, repo.CreateGame(ctx, g), storage.ErrGameExists)
}

func TestGameRepository_SaveRollRecomputes(t *testing.T) {
	repo := postgres.NewGameRepository(testutil.NewPool(t))
	ctx := context.Background()

	g := newGame(t, "Ana")
	require.NoError(t, repo.CreateGame(ctx, g))
	pid := g.Players[0].ID

	require.NoError(t, repo.SaveRoll(ctx, g.ID, pid, 0, scoring.SlotFirst, 7))
	require.NoError(t, repo.SaveRoll(ctx, g.ID, pid, 0, scoring.SlotSecond, 3))
	require.NoError(t, repo.SaveRoll(ctx, g.ID, pid, 1, scoring.SlotFirst, 4))

	got, err := repo.GetGame(ctx, g.ID)
	require.NoError(t, err)
	p := got.Players[0]
	assert.True(t, p.Frames[0].IsSpare)
	assert.Equal(t, scoring.Scored(14), p.Frames[0].Score)

	// Overwrite.
	require.NoError(t, repo.SaveRoll(ctx, g.ID, pid, 0, scoring.SlotSecond, 2))
	got, err = repo.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.Players[0].Frames[0].IsSpare)
	assert.Equal(t, scoring.Scored(9), got.Players[0].Frames[0].Score)

	assert.ErrorIs(t, repo.SaveRoll(ctx, g.ID, "00000000-0000-0000-0000-000000000000", 0, scoring.SlotFirst, 1), storage.ErrGameNotFound)
	assert.ErrorIs(t, repo.SaveRoll(ctx, "bogus", pid, 0, scoring.SlotFirst, 1), storage.ErrGameNotFound)
}

func TestGameRepository_ListAndFinish(t *testing.T) {
	repo := postgres.NewGameRepository(testutil.NewPool(t))
	ctx := context.Background()

	open := newGame(t, "Ana")
	closed := newGame(t, "Ben")
	require.NoError(t, repo.CreateGame(ctx, open))
	require.NoError(t, repo.CreateGame(ctx, closed))
	require.NoError(t, repo.SetGameActive(ctx, closed.ID, false))

	all, err := repo.ListGames(ctx, storage.GameFilter{})
	require.NoError(t, err)
	assert.True(t, containsGame(all, open.ID))
	assert.True(t, containsGame(all, closed.ID))

	active, err := repo.ListGames(ctx, storage.GameFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.True(t, containsGame(active, open.ID))
	assert.False(t, containsGame(active, closed.ID))
	for _, g := range active {
		assert.NotEmpty(t, g.Players)
	}

	assert.ErrorIs(t, repo.SetGameActive(ctx, "00000000-0000-0000-0000-000000000000", false), storage.ErrGameNotFound)
	_, err = repo.GetGame(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, storage.ErrGameNotFound)
}

func containsGame(games []scorecard.Game, id string) bool {
	for _, g := range games {
		if g.ID == id {
			return true
		}
	}
	return false
}
