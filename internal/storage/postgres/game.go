package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/storage"
)

const gameColumns = `id::text, name, location, scheduled_at, is_active, created_by, created_at`

// GameRepository persists games, their players and every recorded roll.
// Only raw rolls are stored; flags and scores are recomputed on load.
type GameRepository struct {
	db *pgxpool.Pool
}

// NewGameRepository creates a GameRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewGameRepository(db *pgxpool.Pool) *GameRepository {
	return &GameRepository{db: db}
}

// CreateGame stores a game, its players and any rolls already on their
// scorecards in a single transaction.
//
// Precondition: g.ID and every player ID are UUIDs.
// Postcondition: Returns nil, storage.ErrGameExists, or a wrapped database error;
// nothing is written on failure.
func (r *GameRepository) CreateGame(ctx context.Context, g scorecard.Game) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO games (id, name, location, scheduled_at, is_active, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			g.ID, g.Name, g.Location, g.Date, g.IsActive, g.CreatedBy, g.CreatedAt,
		); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for pos, p := range g.Players {
			batch.Queue(
				`INSERT INTO game_players (game_id, player_id, name, position) VALUES ($1, $2, $3, $4)`,
				g.ID, p.ID, p.Name, pos,
			)
		}
		for _, p := range g.Players {
			for i, f := range p.Frames {
				for _, slot := range []scoring.RollSlot{scoring.SlotFirst, scoring.SlotSecond, scoring.SlotThird} {
					roll := f.Roll(slot)
					if !roll.Set {
						continue
					}
					batch.Queue(
						`INSERT INTO rolls (game_id, player_id, frame, slot, pins) VALUES ($1, $2, $3, $4, $5)`,
						g.ID, p.ID, i, int(slot), roll.Pins,
					)
				}
			}
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrGameExists
		}
		return fmt.Errorf("inserting game %s: %w", g.ID, err)
	}
	return nil
}

// GetGame loads a game with every player's scorecard.
//
// Postcondition: Returns the Game or storage.ErrGameNotFound.
func (r *GameRepository) GetGame(ctx context.Context, id string) (scorecard.Game, error) {
	if _, err := uuid.Parse(id); err != nil {
		return scorecard.Game{}, storage.ErrGameNotFound
	}

	var g scorecard.Game
	err := r.db.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Location, &g.Date, &g.IsActive, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scorecard.Game{}, storage.ErrGameNotFound
		}
		return scorecard.Game{}, fmt.Errorf("querying game: %w", err)
	}

	games := []scorecard.Game{g}
	if err := r.loadScorecards(ctx, games); err != nil {
		return scorecard.Game{}, err
	}
	return games[0], nil
}

// ListGames returns games, most recently scheduled first.
func (r *GameRepository) ListGames(ctx context.Context, filter storage.GameFilter) ([]scorecard.Game, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE ($1 = FALSE OR is_active)
		 ORDER BY scheduled_at DESC, created_at DESC`,
		filter.ActiveOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	games := []scorecard.Game{}
	for rows.Next() {
		var g scorecard.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Location, &g.Date, &g.IsActive, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games: %w", err)
	}

	if err := r.loadScorecards(ctx, games); err != nil {
		return nil, err
	}
	return games, nil
}

// loadScorecards fills in the players of each game from game_players and rolls.
func (r *GameRepository) loadScorecards(ctx context.Context, games []scorecard.Game) error {
	if len(games) == 0 {
		return nil
	}
	ids := make([]string, len(games))
	byID := make(map[string]int, len(games))
	for i, g := range games {
		ids[i] = g.ID
		byID[g.ID] = i
	}

	type playerKey struct{ gameID, playerID string }
	players := make(map[playerKey]*scoring.Player)

	rows, err := r.db.Query(ctx,
		`SELECT game_id::text, player_id::text, name FROM game_players
		 WHERE game_id::text = ANY($1)
		 ORDER BY game_id, position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("querying players: %w", err)
	}
	var order []playerKey
	for rows.Next() {
		var key playerKey
		var name string
		if err := rows.Scan(&key.gameID, &key.playerID, &name); err != nil {
			rows.Close()
			return fmt.Errorf("scanning player: %w", err)
		}
		p := scoring.NewPlayer(key.playerID, name)
		players[key] = &p
		order = append(order, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating players: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT game_id::text, player_id::text, frame, slot, pins FROM rolls
		 WHERE game_id::text = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("querying rolls: %w", err)
	}
	for rows.Next() {
		var key playerKey
		var frame, slot, pins int
		if err := rows.Scan(&key.gameID, &key.playerID, &frame, &slot, &pins); err != nil {
			rows.Close()
			return fmt.Errorf("scanning roll: %w", err)
		}
		p, ok := players[key]
		if !ok || frame < 0 || frame >= scoring.FrameCount {
			continue
		}
		f := &p.Frames[frame]
		switch scoring.RollSlot(slot) {
		case scoring.SlotFirst:
			f.Roll1 = scoring.Pins(pins)
		case scoring.SlotSecond:
			f.Roll2 = scoring.Pins(pins)
		case scoring.SlotThird:
			f.Roll3 = scoring.Pins(pins)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rolls: %w", err)
	}

	for i := range games {
		games[i].Players = []scoring.Player{}
	}
	for _, key := range order {
		idx := byID[key.gameID]
		games[idx].Players = append(games[idx].Players, scoring.Recompute(*players[key]))
	}
	return nil
}

// SaveRoll records or overwrites one roll on a player's scorecard.
//
// Precondition: the roll has already been validated against the scorecard.
// Postcondition: Returns nil, storage.ErrGameNotFound when the game or player
// does not exist, or a wrapped database error.
func (r *GameRepository) SaveRoll(ctx context.Context, gameID, playerID string, frameIndex int, slot scoring.RollSlot, pins int) error {
	if _, err := uuid.Parse(gameID); err != nil {
		return storage.ErrGameNotFound
	}
	if _, err := uuid.Parse(playerID); err != nil {
		return storage.ErrGameNotFound
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO rolls (game_id, player_id, frame, slot, pins)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (game_id, player_id, frame, slot) DO UPDATE SET pins = EXCLUDED.pins`,
		gameID, playerID, frameIndex, int(slot), pins,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrGameNotFound
		}
		return fmt.Errorf("saving roll: %w", err)
	}
	return nil
}

// SetGameActive opens or closes a game.
//
// Postcondition: Returns nil or storage.ErrGameNotFound.
func (r *GameRepository) SetGameActive(ctx context.Context, id string, active bool) error {
	if _, err := uuid.Parse(id); err != nil {
		return storage.ErrGameNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE games SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("updating game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrGameNotFound
	}
	return nil
}
