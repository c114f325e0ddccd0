package gameserver_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/gameserver"
	"github.com/cory-johannsen/lanes/internal/storage"
	"github.com/cory-johannsen/lanes/internal/storage/memory"
)

func newService(t *testing.T, opts gameserver.Options) (*gameserver.GameService, *memory.GameStore) {
	t.Helper()
	store := memory.NewGameStore()
	return gameserver.NewGameService(store, zaptest.NewLogger(t), opts), store
}

func createGame(t *testing.T, svc *gameserver.GameService, names ...string) scorecard.Game {
	t.Helper()
	g, err := svc.CreateGame(context.Background(), scorecard.NewGameParams{
		Name:        "Thursday Doubles",
		Location:    "Sunset Lanes",
		CreatedBy:   "acct-owner",
		PlayerNames: names,
	})
	require.NoError(t, err)
	return g
}

// bowl records pins in order on the player's next open rolls.
func bowl(t *testing.T, svc *gameserver.GameService, gameID, playerID string, pins ...int) gameserver.RollResult {
	t.Helper()
	ctx := context.Background()
	var res gameserver.RollResult
	for _, n := range pins {
		ref, ok, err := svc.NextRoll(ctx, gameID, playerID)
		require.NoError(t, err)
		require.True(t, ok, "scorecard already complete")
		res, err = svc.RecordRoll(ctx, gameserver.RollRequest{
			GameID: gameID, PlayerID: playerID, FrameIndex: ref.FrameIndex, Slot: ref.Slot, Pins: n,
		})
		require.NoError(t, err)
	}
	return res
}

func TestCreateGame_DefaultsDateAndStores(t *testing.T) {
	svc, store := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana", "Ben")

	assert.False(t, g.Date.IsZero())
	stored, err := store.GetGame(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, stored.ID)
	assert.Len(t, stored.Players, 2)

	_, err = svc.CreateGame(context.Background(), scorecard.NewGameParams{Name: "Empty"})
	assert.Error(t, err)
}

func TestRecordRoll_PersistsAndScores(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana")
	pid := g.Players[0].ID

	res := bowl(t, svc, g.ID, pid, 10, 3, 4)
	assert.Equal(t, scoring.Scored(17), res.Player.Frames[0].Score)
	assert.Equal(t, scoring.Scored(24), res.Player.Frames[1].Score)

	reloaded, err := svc.GetGame(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Player, reloaded.Players[0])
}

func TestRecordRoll_Errors(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana")
	ctx := context.Background()

	_, err := svc.RecordRoll(ctx, gameserver.RollRequest{GameID: "missing", PlayerID: g.Players[0].ID, Slot: scoring.SlotFirst})
	assert.ErrorIs(t, err, storage.ErrGameNotFound)

	_, err = svc.RecordRoll(ctx, gameserver.RollRequest{GameID: g.ID, PlayerID: "missing", Slot: scoring.SlotFirst})
	assert.ErrorIs(t, err, scorecard.ErrPlayerNotFound)

	_, err = svc.RecordRoll(ctx, gameserver.RollRequest{GameID: g.ID, PlayerID: g.Players[0].ID, Slot: scoring.SlotSecond, Pins: 3})
	assert.ErrorIs(t, err, scoring.ErrInvalidRoll)

	reloaded, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Players[0].Frames[0].Roll2.Set, "rejected roll is not stored")
}

func TestRecordRoll_AutoFinish(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{AutoFinish: true})
	g := createGame(t, svc, "Ana")
	pid := g.Players[0].ID

	res := bowl(t, svc, g.ID, pid, make([]int, 19)...)
	assert.False(t, res.Finished)

	res = bowl(t, svc, g.ID, pid, 0)
	assert.True(t, res.Finished)
	assert.False(t, res.Game.IsActive)

	reloaded, err := svc.GetGame(context.Background(), g.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)

	_, err = svc.RecordRoll(context.Background(), gameserver.RollRequest{
		GameID: g.ID, PlayerID: pid, FrameIndex: 0, Slot: scoring.SlotFirst, Pins: 0,
	})
	assert.ErrorIs(t, err, scorecard.ErrGameClosed)
}

func TestRecordRoll_NoAutoFinishKeepsGameOpen(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana")
	res := bowl(t, svc, g.ID, g.Players[0].ID, make([]int, 20)...)
	assert.False(t, res.Finished)
	assert.True(t, res.Game.IsActive)
	assert.True(t, res.Game.Complete())
}

func TestNextRoll(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana")
	pid := g.Players[0].ID
	ctx := context.Background()

	ref, ok, err := svc.NextRoll(ctx, g.ID, pid)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, scoring.RollRef{FrameIndex: 0, Slot: scoring.SlotFirst}, ref)

	bowl(t, svc, g.ID, pid, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)
	_, ok, err = svc.NextRoll(ctx, g.ID, pid)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.NextRoll(ctx, g.ID, "missing")
	assert.ErrorIs(t, err, scorecard.ErrPlayerNotFound)
	_, _, err = svc.NextRoll(ctx, "missing", pid)
	assert.ErrorIs(t, err, storage.ErrGameNotFound)
}

func TestFinishGame_Permissions(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana")
	ctx := context.Background()

	_, err := svc.FinishGame(ctx, g.ID, gameserver.Actor{AccountID: "someone-else"})
	assert.ErrorIs(t, err, gameserver.ErrForbidden)

	done, err := svc.FinishGame(ctx, g.ID, gameserver.Actor{AccountID: "acct-owner"})
	require.NoError(t, err)
	assert.False(t, done.IsActive)

	again, err := svc.FinishGame(ctx, g.ID, gameserver.Actor{AccountID: "admin", Admin: true})
	require.NoError(t, err)
	assert.False(t, again.IsActive)

	_, err = svc.FinishGame(ctx, "missing", gameserver.Actor{Admin: true})
	assert.ErrorIs(t, err, storage.ErrGameNotFound)
}

func TestListGamesAndStandings(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana", "Ben")
	other := createGame(t, svc, "Cy")
	_, err := svc.FinishGame(context.Background(), other.ID, gameserver.Actor{Admin: true})
	require.NoError(t, err)

	active, err := svc.ListGames(context.Background(), storage.GameFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, g.ID, active[0].ID)

	bowl(t, svc, g.ID, g.Players[1].ID, 10, 5, 3)
	rows, err := svc.Standings(context.Background(), g.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ben", rows[0].Name)
	assert.Equal(t, 26, rows[0].Running)

	_, err = svc.Standings(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrGameNotFound)
}

func TestRecordRoll_ConcurrentScorekeepersDoNotLoseRolls(t *testing.T) {
	svc, _ := newService(t, gameserver.Options{})
	g := createGame(t, svc, "Ana", "Ben", "Cy", "Dee")
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, p := range g.Players {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			for frame := 0; frame < scoring.FrameCount; frame++ {
				_, err := svc.RecordRoll(ctx, gameserver.RollRequest{
					GameID: g.ID, PlayerID: playerID, FrameIndex: frame, Slot: scoring.SlotFirst, Pins: 10,
				})
				assert.NoError(t, err)
			}
		}(p.ID)
	}
	wg.Wait()

	final, err := svc.GetGame(ctx, g.ID)
	require.NoError(t, err)
	for _, p := range final.Players {
		for i, f := range p.Frames {
			assert.True(t, f.IsStrike, "player %s frame %d", p.Name, i+1)
		}
	}
}

// Property: every accepted roll is visible on reload, and every rejected roll
// leaves the stored game unchanged.
func TestPropertyRecordRollMatchesStore(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := memory.NewGameStore()
		svc := gameserver.NewGameService(store, zap.NewNop(), gameserver.Options{})
		g, err := svc.CreateGame(context.Background(), scorecard.NewGameParams{
			Name: "League", PlayerNames: []string{"Ana"}, Date: time.Now(),
		})
		require.NoError(rt, err)
		pid := g.Players[0].ID

		n := rapid.IntRange(1, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			before, err := store.GetGame(context.Background(), g.ID)
			require.NoError(rt, err)

			req := gameserver.RollRequest{
				GameID:     g.ID,
				PlayerID:   pid,
				FrameIndex: rapid.IntRange(0, scoring.LastFrame).Draw(rt, "frame"),
				Slot:       scoring.RollSlot(rapid.IntRange(1, 3).Draw(rt, "slot")),
				Pins:       rapid.IntRange(0, 10).Draw(rt, "pins"),
			}
			res, err := svc.RecordRoll(context.Background(), req)
			after, getErr := store.GetGame(context.Background(), g.ID)
			require.NoError(rt, getErr)
			if err != nil {
				assert.ErrorIs(rt, err, scoring.ErrInvalidRoll)
				assert.Equal(rt, before, after)
				continue
			}
			assert.Equal(rt, res.Player, after.Players[0])
		}
	})
}
