// Package importer loads recorded games from YAML fixture files into a game
// store, replaying every roll through the scoring engine.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/storage"
)

// GameStore is where imported games are written.
type GameStore interface {
	CreateGame(ctx context.Context, g scorecard.Game) error
}

// AccountLookup resolves the created_by email of a fixture to an account.
type AccountLookup interface {
	GetByEmail(ctx context.Context, email string) (storage.Account, error)
}

// Result counts what an import did.
type Result struct {
	Imported int
	// Skipped counts fixtures whose game ID was already stored.
	Skipped int
}

// Importer orchestrates fixture import from a Source into a GameStore.
type Importer struct {
	source   Source
	store    GameStore
	accounts AccountLookup
	logger   *zap.Logger
	now      func() time.Time
}

// New constructs an Importer. accounts may be nil, in which case created_by
// values are stored as given.
//
// Precondition: source, store and logger must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, store GameStore, accounts AccountLookup, logger *zap.Logger) *Importer {
	return &Importer{source: source, store: store, accounts: accounts, logger: logger, now: time.Now}
}

// Run loads every fixture under path, converts and validates all of them,
// then stores the games. Nothing is stored when any fixture is invalid.
//
// Postcondition: returns the import counts, or the first error. Fixtures
// whose ID is already stored are skipped.
func (imp *Importer) Run(ctx context.Context, path string) (Result, error) {
	overall := time.Now()

	t0 := time.Now()
	fixtures, err := imp.source.Load(path)
	if err != nil {
		return Result{}, fmt.Errorf("loading fixtures: %w", err)
	}
	imp.logger.Info("fixtures loaded",
		zap.Int("count", len(fixtures)),
		zap.Duration("elapsed", time.Since(t0)),
	)

	games := make([]scorecard.Game, 0, len(fixtures))
	for _, f := range fixtures {
		owner, err := imp.owner(ctx, f.Game.CreatedBy)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", f.Path, err)
		}
		g, err := ToGame(f, owner, imp.now())
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", f.Path, err)
		}
		games = append(games, g)
	}

	var res Result
	for i, g := range games {
		t1 := time.Now()
		err := imp.store.CreateGame(ctx, g)
		if errors.Is(err, storage.ErrGameExists) {
			res.Skipped++
			imp.logger.Info("game already imported", zap.String("game_id", g.ID), zap.String("file", fixtures[i].Path))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("storing %s: %w", fixtures[i].Path, err)
		}
		res.Imported++
		imp.logger.Info("game imported",
			zap.String("game_id", g.ID),
			zap.String("name", g.Name),
			zap.Int("players", len(g.Players)),
			zap.Bool("active", g.IsActive),
			zap.Duration("elapsed", time.Since(t1)),
		)
	}

	imp.logger.Info("import complete",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Duration("elapsed", time.Since(overall)),
	)
	return res, nil
}

// owner maps a fixture's created_by to the stored value: the account ID when
// it names an email and accounts can be looked up, otherwise the value itself.
func (imp *Importer) owner(ctx context.Context, createdBy string) (string, error) {
	createdBy = strings.TrimSpace(createdBy)
	if imp.accounts == nil || !strings.Contains(createdBy, "@") {
		return createdBy, nil
	}
	acct, err := imp.accounts.GetByEmail(ctx, createdBy)
	if err != nil {
		return "", fmt.Errorf("resolving created_by %q: %w", createdBy, err)
	}
	return acct.ID, nil
}
