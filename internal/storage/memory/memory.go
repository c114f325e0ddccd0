// Package memory provides in-process account and game stores with the same
// contracts as the PostgreSQL repositories. Data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/storage"
)

// AccountStore keeps accounts in a map keyed by ID.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]storage.Account
	byEmail  map[string]string
	now      func() time.Time
}

// NewAccountStore returns an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]storage.Account),
		byEmail:  make(map[string]string),
		now:      time.Now,
	}
}

// Create registers a bowler account with a bcrypt-hashed password.
//
// Postcondition: Returns the created Account or storage.ErrAccountExists.
func (s *AccountStore) Create(_ context.Context, email, username, password string) (storage.Account, error) {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return storage.Account{}, err
	}
	email = storage.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return storage.Account{}, storage.ErrAccountExists
	}
	acct := storage.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         storage.RoleBowler,
		CreatedAt:    s.now(),
	}
	s.accounts[acct.ID] = acct
	s.byEmail[email] = acct.ID
	return acct, nil
}

// Authenticate verifies credentials and returns the matching account.
func (s *AccountStore) Authenticate(ctx context.Context, email, password string) (storage.Account, error) {
	acct, err := s.GetByEmail(ctx, email)
	if err != nil {
		return storage.Account{}, err
	}
	if !storage.CheckPassword(password, acct.PasswordHash) {
		return storage.Account{}, storage.ErrInvalidCredentials
	}
	return acct, nil
}

// GetByID retrieves an account by its ID.
func (s *AccountStore) GetByID(_ context.Context, id string) (storage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return storage.Account{}, storage.ErrAccountNotFound
	}
	return acct, nil
}

// GetByEmail retrieves an account by email, ignoring case.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (storage.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[storage.NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return storage.Account{}, storage.ErrAccountNotFound
	}
	return s.GetByID(ctx, id)
}

// SetRole updates the role for the given account.
func (s *AccountStore) SetRole(_ context.Context, accountID, role string) error {
	if !storage.ValidRole(role) {
		return storage.ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	acct.Role = role
	s.accounts[accountID] = acct
	return nil
}

// GameStore keeps games in a map keyed by ID. Games are copied on the way
// in and out so callers never share scorecards with the store.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]scorecard.Game
}

// NewGameStore returns an empty GameStore.
func NewGameStore() *GameStore {
	return &GameStore{games: make(map[string]scorecard.Game)}
}

// CreateGame stores g.
//
// Postcondition: Returns nil or storage.ErrGameExists.
func (s *GameStore) CreateGame(_ context.Context, g scorecard.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[g.ID]; ok {
		return storage.ErrGameExists
	}
	s.games[g.ID] = g.Clone()
	return nil
}

// GetGame returns a copy of the stored game or storage.ErrGameNotFound.
func (s *GameStore) GetGame(_ context.Context, id string) (scorecard.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return scorecard.Game{}, storage.ErrGameNotFound
	}
	return g.Clone(), nil
}

// ListGames returns copies of the stored games, most recently scheduled first.
func (s *GameStore) ListGames(_ context.Context, filter storage.GameFilter) ([]scorecard.Game, error) {
	s.mu.RLock()
	games := make([]scorecard.Game, 0, len(s.games))
	for _, g := range s.games {
		if filter.ActiveOnly && !g.IsActive {
			continue
		}
		games = append(games, g.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(games, func(i, j int) bool {
		if !games[i].Date.Equal(games[j].Date) {
			return games[i].Date.After(games[j].Date)
		}
		return games[i].CreatedAt.After(games[j].CreatedAt)
	})
	return games, nil
}

// SaveRoll records or overwrites one roll and rescores the player.
//
// Postcondition: Returns nil or storage.ErrGameNotFound when the game or
// player does not exist.
func (s *GameStore) SaveRoll(_ context.Context, gameID, playerID string, frameIndex int, slot scoring.RollSlot, pins int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return storage.ErrGameNotFound
	}
	p, idx, ok := g.Player(playerID)
	if !ok {
		return storage.ErrGameNotFound
	}
	g = g.Clone()
	g.Players[idx] = scoring.ApplyRoll(p, frameIndex, slot, pins)
	s.games[gameID] = g
	return nil
}

// SetGameActive opens or closes a game.
func (s *GameStore) SetGameActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return storage.ErrGameNotFound
	}
	g.IsActive = active
	s.games[id] = g
	return nil
}

// Ping always succeeds.
func (s *GameStore) Ping(context.Context) error { return nil }
