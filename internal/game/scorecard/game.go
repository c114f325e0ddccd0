// Package scorecard models a bowling game shared by several players: the
// game's metadata, each player's scorecard and the standings derived from
// them.
package scorecard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

// MaxPlayers is the most bowlers a single game may hold.
const MaxPlayers = 8

// ErrPlayerNotFound is returned when a player ID is not part of the game.
var ErrPlayerNotFound = errors.New("player not found")

// ErrGameClosed is returned when recording a roll in a finished game.
var ErrGameClosed = errors.New("game is closed")

// ErrInvalidGame is matched by every error New returns.
var ErrInvalidGame = errors.New("invalid game")

// Game is a single bowling game and every player's scorecard.
type Game struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Location  string           `json:"location"`
	Date      time.Time        `json:"date"`
	Players   []scoring.Player `json:"players"`
	IsActive  bool             `json:"isActive"`
	CreatedBy string           `json:"createdBy"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewGameParams holds the caller-supplied fields of a new game.
type NewGameParams struct {
	Name        string
	Location    string
	Date        time.Time
	CreatedBy   string
	PlayerNames []string
}

// New creates an active game with an empty scorecard per player.
//
// Precondition: params.Name is non-blank; 1..MaxPlayers distinct, non-blank
// player names.
// Postcondition: Returns a Game with fresh UUIDs for the game and each player,
// in the order the names were given, or an error matching ErrInvalidGame.
func New(params NewGameParams, now time.Time) (Game, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Game{}, fmt.Errorf("%w: name must not be empty", ErrInvalidGame)
	}
	if len(params.PlayerNames) == 0 {
		return Game{}, fmt.Errorf("%w: at least one player is required", ErrInvalidGame)
	}
	if len(params.PlayerNames) > MaxPlayers {
		return Game{}, fmt.Errorf("%w: at most %d players, got %d", ErrInvalidGame, MaxPlayers, len(params.PlayerNames))
	}

	seen := make(map[string]bool, len(params.PlayerNames))
	players := make([]scoring.Player, 0, len(params.PlayerNames))
	for i, raw := range params.PlayerNames {
		pname := strings.TrimSpace(raw)
		if pname == "" {
			return Game{}, fmt.Errorf("%w: player %d name must not be empty", ErrInvalidGame, i+1)
		}
		key := strings.ToLower(pname)
		if seen[key] {
			return Game{}, fmt.Errorf("%w: player name %q is used twice", ErrInvalidGame, pname)
		}
		seen[key] = true
		players = append(players, scoring.NewPlayer(uuid.NewString(), pname))
	}

	return Game{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  strings.TrimSpace(params.Location),
		Date:      params.Date,
		Players:   players,
		IsActive:  true,
		CreatedBy: params.CreatedBy,
		CreatedAt: now,
	}, nil
}

// Clone returns a copy of g that shares no slice storage with it.
func (g Game) Clone() Game {
	g.Players = append([]scoring.Player(nil), g.Players...)
	return g
}

// Player returns the scorecard of the player with the given ID and its index.
func (g Game) Player(playerID string) (scoring.Player, int, bool) {
	for i, p := range g.Players {
		if p.ID == playerID {
			return p, i, true
		}
	}
	return scoring.Player{}, -1, false
}

// RecordRoll validates and applies a roll to one player's scorecard.
//
// Postcondition: on success returns a new Game (g is unchanged) and the
// updated player; otherwise ErrGameClosed, ErrPlayerNotFound or an error
// matching scoring.ErrInvalidRoll.
func (g Game) RecordRoll(playerID string, frameIndex int, slot scoring.RollSlot, pins int) (Game, scoring.Player, error) {
	return g.recordRoll(playerID, func(p scoring.Player) (scoring.Player, error) {
		return scoring.Apply(p, frameIndex, slot, pins)
	})
}

// RecordRollWith is RecordRoll with the roll applied through scorer, which
// logs each outcome.
func (g Game) RecordRollWith(scorer *scoring.Scorer, playerID string, frameIndex int, slot scoring.RollSlot, pins int) (Game, scoring.Player, error) {
	return g.recordRoll(playerID, func(p scoring.Player) (scoring.Player, error) {
		return scorer.Apply(p, frameIndex, slot, pins)
	})
}

func (g Game) recordRoll(playerID string, apply func(scoring.Player) (scoring.Player, error)) (Game, scoring.Player, error) {
	if !g.IsActive {
		return Game{}, scoring.Player{}, ErrGameClosed
	}
	p, idx, ok := g.Player(playerID)
	if !ok {
		return Game{}, scoring.Player{}, ErrPlayerNotFound
	}
	updated, err := apply(p)
	if err != nil {
		return Game{}, scoring.Player{}, err
	}
	out := g.Clone()
	out.Players[idx] = updated
	return out, updated, nil
}

// Complete reports whether every player has bowled every required roll.
func (g Game) Complete() bool {
	if len(g.Players) == 0 {
		return false
	}
	for _, p := range g.Players {
		if !scoring.Complete(p) {
			return false
		}
	}
	return true
}

// Finish returns a closed copy of g.
func (g Game) Finish() Game {
	out := g.Clone()
	out.IsActive = false
	return out
}

// Standing is one row of a game's leaderboard.
type Standing struct {
	Rank       int    `json:"rank"`
	PlayerID   string `json:"playerId"`
	Name       string `json:"name"`
	TotalScore int    `json:"totalScore"`
	// Running is the latest resolved running score, which for an unfinished
	// card is ahead of TotalScore (0 until the tenth frame resolves).
	Running  int  `json:"running"`
	Finished bool `json:"finished"`
}

// Standings ranks the players by their latest resolved running score,
// highest first, breaking ties by name. Tied scores share a rank.
func (g Game) Standings() []Standing {
	rows := make([]Standing, 0, len(g.Players))
	for _, p := range g.Players {
		running := 0
		for _, f := range p.Frames {
			if total, ok := f.Score.Value(); ok {
				running = total
			}
		}
		rows = append(rows, Standing{
			PlayerID:   p.ID,
			Name:       p.Name,
			TotalScore: p.TotalScore,
			Running:    running,
			Finished:   scoring.Complete(p),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Running != rows[j].Running {
			return rows[i].Running > rows[j].Running
		}
		return rows[i].Name < rows[j].Name
	})
	for i := range rows {
		if i > 0 && rows[i].Running == rows[i-1].Running {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
	return rows
}
