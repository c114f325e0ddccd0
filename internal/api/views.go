package api

import (
	"time"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/storage"
)

// userView is the account as the client sees it.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(a storage.Account) userView {
	return userView{
		ID:        a.ID,
		Email:     a.Email,
		Username:  a.Username,
		IsAdmin:   a.Role == storage.RoleAdmin,
		CreatedAt: a.CreatedAt,
	}
}

// playerView adds the scoresheet marks of each frame to a scorecard.
type playerView struct {
	scoring.Player
	Marks    [scoring.FrameCount]string `json:"marks"`
	Complete bool                       `json:"complete"`
}

func newPlayerView(p scoring.Player) playerView {
	v := playerView{Player: p, Complete: scoring.Complete(p)}
	for i, f := range p.Frames {
		v.Marks[i] = scoring.FormatFrame(f, i == scoring.LastFrame)
	}
	return v
}

type gameView struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Location  string       `json:"location"`
	Date      time.Time    `json:"date"`
	Players   []playerView `json:"players"`
	IsActive  bool         `json:"isActive"`
	CreatedBy string       `json:"createdBy"`
	CreatedAt time.Time    `json:"createdAt"`
}

func newGameView(g scorecard.Game) gameView {
	players := make([]playerView, len(g.Players))
	for i, p := range g.Players {
		players[i] = newPlayerView(p)
	}
	return gameView{
		ID:        g.ID,
		Name:      g.Name,
		Location:  g.Location,
		Date:      g.Date,
		Players:   players,
		IsActive:  g.IsActive,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

// rollRefView is a 1-based frame and roll number, as the client addresses rolls.
type rollRefView struct {
	Frame int `json:"frame"`
	Roll  int `json:"roll"`
}

func newRollRefView(ref scoring.RollRef) rollRefView {
	return rollRefView{Frame: ref.FrameIndex + 1, Roll: int(ref.Slot)}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

type authResponse struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

type createGameRequest struct {
	Name     string     `json:"name"`
	Location string     `json:"location"`
	Date     *time.Time `json:"date,omitempty"`
	Players  []string   `json:"players"`
}

type recordRollRequest struct {
	Pins *int `json:"pins"`
}

type recordRollResponse struct {
	Player   playerView   `json:"player"`
	Next     *rollRefView `json:"next"`
	Finished bool         `json:"finished"`
}

type nextRollResponse struct {
	Next     *rollRefView `json:"next"`
	Complete bool         `json:"complete"`
}
