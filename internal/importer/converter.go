package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

// ToGame builds a game from a fixture, bowling each player's rolls in order
// through the scoring engine.
//
// Precondition: createdBy is the account the game is stored under.
// Postcondition: returns a Game whose scorecards match the fixture's rolls,
// or an error naming the first invalid field or roll. A fixture without a
// date is dated now; without "active" a game is active until every
// scorecard is complete.
func ToGame(f *Fixture, createdBy string, now time.Time) (scorecard.Game, error) {
	spec := f.Game
	names := make([]string, len(spec.Players))
	for i, p := range spec.Players {
		names[i] = p.Name
	}

	date := spec.Date
	if date.IsZero() {
		date = now
	}
	g, err := scorecard.New(scorecard.NewGameParams{
		Name:        spec.Name,
		Location:    spec.Location,
		Date:        date.UTC(),
		CreatedBy:   createdBy,
		PlayerNames: names,
	}, now.UTC())
	if err != nil {
		return scorecard.Game{}, err
	}

	if spec.ID != "" {
		id, err := uuid.Parse(spec.ID)
		if err != nil {
			return scorecard.Game{}, fmt.Errorf("%w: id %q is not a UUID", scorecard.ErrInvalidGame, spec.ID)
		}
		g.ID = id.String()
	}

	for i, p := range spec.Players {
		player, err := scoring.Replay(g.Players[i].ID, g.Players[i].Name, p.Rolls)
		if err != nil {
			return scorecard.Game{}, fmt.Errorf("player %q: %w", g.Players[i].Name, err)
		}
		g.Players[i] = player
	}

	if spec.Active != nil {
		g.IsActive = *spec.Active
	} else {
		g.IsActive = !g.Complete()
	}
	return g, nil
}
