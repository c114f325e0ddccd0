package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/gameserver"
	"github.com/cory-johannsen/lanes/internal/storage"
)

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	var filter storage.GameFilter
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		filter.ActiveOnly = active
	}

	games, err := s.games.ListGames(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]gameView, len(games))
	for i, g := range games {
		views[i] = newGameView(g)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	claims, _ := claimsFrom(r.Context())

	params := scorecard.NewGameParams{
		Name:        req.Name,
		Location:    req.Location,
		CreatedBy:   claims.AccountID(),
		PlayerNames: req.Players,
	}
	if req.Date != nil {
		params.Date = req.Date.UTC()
	}

	g, err := s.games.CreateGame(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/games/"+g.ID)
	writeJSON(w, http.StatusCreated, newGameView(g))
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	rows, err := s.games.Standings(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleFinishGame(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	actor := gameserver.Actor{AccountID: claims.AccountID(), Admin: claims.IsAdmin()}

	g, err := s.games.FinishGame(r.Context(), chi.URLParam(r, "gameID"), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (s *Server) handleNextRoll(w http.ResponseWriter, r *http.Request) {
	ref, open, err := s.games.NextRoll(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "playerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := nextRollResponse{Complete: !open}
	if open {
		v := newRollRefView(ref)
		resp.Next = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecordRoll records the pins of one roll. The path carries the
// 1-based frame and roll numbers the client displays.
func (s *Server) handleRecordRoll(w http.ResponseWriter, r *http.Request) {
	frame, err := pathInt(r, "frame")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "frame must be a number")
		return
	}
	roll, err := pathInt(r, "roll")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "roll must be a number")
		return
	}
	var req recordRollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Pins == nil {
		writeMessage(w, http.StatusBadRequest, "pins is required")
		return
	}

	result, err := s.games.RecordRoll(r.Context(), gameserver.RollRequest{
		GameID:     chi.URLParam(r, "gameID"),
		PlayerID:   chi.URLParam(r, "playerID"),
		FrameIndex: frame - 1,
		Slot:       scoring.RollSlot(roll),
		Pins:       *req.Pins,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := recordRollResponse{Player: newPlayerView(result.Player), Finished: result.Finished}
	if ref, open := scoring.NextOpenRoll(result.Player); open {
		v := newRollRefView(ref)
		resp.Next = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func pathInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(chi.URLParam(r, name)))
}
