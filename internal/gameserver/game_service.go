// Package gameserver coordinates scorekeeping for shared games: it loads
// games from a store, applies rolls through the scoring engine and persists
// the result, one writer per game at a time.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/storage"
)

// ErrForbidden is returned when the caller may not change the game.
var ErrForbidden = errors.New("forbidden")

// GameStore persists games and their rolls.
//
// Postcondition: Lookups of unknown games return storage.ErrGameNotFound.
type GameStore interface {
	CreateGame(ctx context.Context, g scorecard.Game) error
	GetGame(ctx context.Context, id string) (scorecard.Game, error)
	ListGames(ctx context.Context, filter storage.GameFilter) ([]scorecard.Game, error)
	SaveRoll(ctx context.Context, gameID, playerID string, frameIndex int, slot scoring.RollSlot, pins int) error
	SetGameActive(ctx context.Context, id string, active bool) error
}

// Actor identifies who is asking for a change.
type Actor struct {
	AccountID string
	Admin     bool
}

// RollRequest addresses one roll on one player's scorecard. FrameIndex is
// 0-based.
type RollRequest struct {
	GameID     string
	PlayerID   string
	FrameIndex int
	Slot       scoring.RollSlot
	Pins       int
}

// RollResult is the state after a roll was recorded.
type RollResult struct {
	Game   scorecard.Game
	Player scoring.Player
	// Finished is true when this roll completed the game and closed it.
	Finished bool
}

// Options tune a GameService.
type Options struct {
	// AutoFinish closes a game once every scorecard is complete.
	AutoFinish bool
}

// GameService implements the scorekeeping operations shared by the HTTP API
// and the fixture importer.
type GameService struct {
	store  GameStore
	scorer *scoring.Scorer
	logger *zap.Logger
	opts   Options
	now    func() time.Time
	locks  gameLocks
}

// NewGameService creates a GameService.
//
// Precondition: store and logger must be non-nil.
func NewGameService(store GameStore, logger *zap.Logger, opts Options) *GameService {
	return &GameService{
		store:  store,
		scorer: scoring.NewLoggedScorer(logger),
		logger: logger,
		opts:   opts,
		now:    time.Now,
		locks:  gameLocks{locks: make(map[string]*gameLock)},
	}
}

// CreateGame builds a new active game and stores it. A zero Date means the
// game is bowled now.
//
// Postcondition: Returns the stored game or a validation / storage error.
func (s *GameService) CreateGame(ctx context.Context, params scorecard.NewGameParams) (scorecard.Game, error) {
	now := s.now().UTC()
	if params.Date.IsZero() {
		params.Date = now
	}
	g, err := scorecard.New(params, now)
	if err != nil {
		return scorecard.Game{}, err
	}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return scorecard.Game{}, fmt.Errorf("storing game: %w", err)
	}
	s.logger.Info("game created",
		zap.String("game_id", g.ID),
		zap.String("name", g.Name),
		zap.Int("players", len(g.Players)),
		zap.String("created_by", g.CreatedBy),
	)
	return g, nil
}

// ListGames returns the stored games, most recently scheduled first.
func (s *GameService) ListGames(ctx context.Context, filter storage.GameFilter) ([]scorecard.Game, error) {
	return s.store.ListGames(ctx, filter)
}

// GetGame returns one game or storage.ErrGameNotFound.
func (s *GameService) GetGame(ctx context.Context, id string) (scorecard.Game, error) {
	return s.store.GetGame(ctx, id)
}

// RecordRoll validates and records a roll. Writes to the same game are
// serialized so concurrent scorekeepers never lose each other's rolls.
//
// Postcondition: On success the roll is persisted and the returned game
// reflects it. Errors match storage.ErrGameNotFound, scorecard.ErrGameClosed,
// scorecard.ErrPlayerNotFound or scoring.ErrInvalidRoll; nothing is written.
func (s *GameService) RecordRoll(ctx context.Context, req RollRequest) (RollResult, error) {
	unlock := s.locks.lock(req.GameID)
	defer unlock()

	g, err := s.store.GetGame(ctx, req.GameID)
	if err != nil {
		return RollResult{}, err
	}
	next, player, err := g.RecordRollWith(s.scorer, req.PlayerID, req.FrameIndex, req.Slot, req.Pins)
	if err != nil {
		return RollResult{}, err
	}
	if err := s.store.SaveRoll(ctx, req.GameID, req.PlayerID, req.FrameIndex, req.Slot, req.Pins); err != nil {
		return RollResult{}, fmt.Errorf("saving roll: %w", err)
	}

	result := RollResult{Game: next, Player: player}
	if s.opts.AutoFinish && next.Complete() {
		if err := s.store.SetGameActive(ctx, req.GameID, false); err != nil {
			return RollResult{}, fmt.Errorf("finishing game: %w", err)
		}
		result.Game = next.Finish()
		result.Finished = true
		s.logger.Info("game finished",
			zap.String("game_id", req.GameID),
			zap.String("reason", "all scorecards complete"),
		)
	}
	return result, nil
}

// NextRoll returns the next roll a player still has to bowl. ok is false
// when the player's scorecard is complete.
func (s *GameService) NextRoll(ctx context.Context, gameID, playerID string) (ref scoring.RollRef, ok bool, err error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return scoring.RollRef{}, false, err
	}
	p, _, found := g.Player(playerID)
	if !found {
		return scoring.RollRef{}, false, scorecard.ErrPlayerNotFound
	}
	ref, ok = scoring.NextOpenRoll(p)
	return ref, ok, nil
}

// FinishGame closes a game to further rolls.
//
// Precondition: actor is the game's creator or an admin.
// Postcondition: Returns the closed game, ErrForbidden, or storage.ErrGameNotFound.
// Finishing a closed game is a no-op.
func (s *GameService) FinishGame(ctx context.Context, gameID string, actor Actor) (scorecard.Game, error) {
	unlock := s.locks.lock(gameID)
	defer unlock()

	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return scorecard.Game{}, err
	}
	if !actor.Admin && actor.AccountID != g.CreatedBy {
		return scorecard.Game{}, ErrForbidden
	}
	if !g.IsActive {
		return g, nil
	}
	if err := s.store.SetGameActive(ctx, gameID, false); err != nil {
		return scorecard.Game{}, fmt.Errorf("finishing game: %w", err)
	}
	s.logger.Info("game finished",
		zap.String("game_id", gameID),
		zap.String("by", actor.AccountID),
		zap.Bool("complete", g.Complete()),
	)
	return g.Finish(), nil
}

// Standings returns the game's leaderboard.
func (s *GameService) Standings(ctx context.Context, gameID string) ([]scorecard.Standing, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return g.Standings(), nil
}

// gameLocks hands out one mutex per game ID and forgets it once unused.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*gameLock
}

type gameLock struct {
	sync.Mutex
	refs int
}

func (l *gameLocks) lock(id string) (unlock func()) {
	l.mu.Lock()
	gl, ok := l.locks[id]
	if !ok {
		gl = &gameLock{}
		l.locks[id] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.Lock()
	return func() {
		gl.Unlock()
		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
