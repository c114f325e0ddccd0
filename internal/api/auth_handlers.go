package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/storage"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLen = 72
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != strings.TrimSpace(req.Email) {
		writeMessage(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Username == "" {
		writeMessage(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		writeMessage(w, http.StatusBadRequest, "password must be 8 to 72 characters")
		return
	}

	acct, err := s.accounts.Create(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			writeMessage(w, http.StatusConflict, "an account with that email already exists")
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("account created", zap.String("account_id", acct.ID))
	s.respondWithToken(w, r, http.StatusCreated, acct)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) || errors.Is(err, storage.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.respondWithToken(w, r, http.StatusOK, acct)
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, acct storage.Account) {
	token, _, err := s.tokens.Issue(acct)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{User: newUserView(acct), Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	s.tokens.Revoke(claims)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	acct, err := s.accounts.GetByID(r.Context(), claims.AccountID())
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			writeMessage(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(acct))
}
