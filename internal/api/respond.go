package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/auth"
	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
	"github.com/cory-johannsen/lanes/internal/gameserver"
	"github.com/cory-johannsen/lanes/internal/storage"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrGameNotFound),
		errors.Is(err, scorecard.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, scoring.ErrInvalidRoll):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scorecard.ErrInvalidGame):
		return http.StatusBadRequest
	case errors.Is(err, scorecard.ErrGameClosed),
		errors.Is(err, storage.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, gameserver.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError responds with the status for err. Internal errors are logged
// and their details withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}
