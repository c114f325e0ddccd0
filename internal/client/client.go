// Package client is a typed HTTP client for the lanes API and a Tracker that
// keeps a local scorecard ahead of the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cory-johannsen/lanes/internal/game/scorecard"
	"github.com/cory-johannsen/lanes/internal/game/scoring"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lanes api: %d %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// User is the signed-in account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewGame describes a game to create.
type NewGame struct {
	Name     string     `json:"name"`
	Location string     `json:"location"`
	Date     *time.Time `json:"date,omitempty"`
	Players  []string   `json:"players"`
}

// RollOutcome is the server's view of a scorecard after a roll.
type RollOutcome struct {
	Player scoring.Player
	// Next is the next roll to bowl; nil once the scorecard is complete.
	Next *scoring.RollRef
	// Finished is true when the roll closed the game.
	Finished bool
}

// Client talks to a lanes server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
//
// Precondition: baseURL must be an absolute URL.
// Postcondition: a nil httpClient is replaced by one with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type authResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Signup registers an account and keeps its token.
func (c *Client) Signup(ctx context.Context, email, username, password string) (User, error) {
	var out authResponse
	body := map[string]string{"email": email, "username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", body, &out); err != nil {
		return User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

// Login signs in and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return User{}, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me returns the signed-in account.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u)
	return u, err
}

// ListGames returns the games on the server, optionally only active ones.
func (c *Client) ListGames(ctx context.Context, activeOnly bool) ([]scorecard.Game, error) {
	path := "/api/games"
	if activeOnly {
		path += "?active=true"
	}
	var games []scorecard.Game
	err := c.do(ctx, http.MethodGet, path, nil, &games)
	return games, err
}

// GetGame fetches one game with every scorecard.
func (c *Client) GetGame(ctx context.Context, id string) (scorecard.Game, error) {
	var g scorecard.Game
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(id), nil, &g)
	return g, err
}

// CreateGame creates a game owned by the signed-in account.
func (c *Client) CreateGame(ctx context.Context, req NewGame) (scorecard.Game, error) {
	var g scorecard.Game
	err := c.do(ctx, http.MethodPost, "/api/games", req, &g)
	return g, err
}

// FinishGame closes a game.
func (c *Client) FinishGame(ctx context.Context, id string) (scorecard.Game, error) {
	var g scorecard.Game
	err := c.do(ctx, http.MethodPost, "/api/games/"+url.PathEscape(id)+"/finish", nil, &g)
	return g, err
}

// Standings fetches a game's leaderboard.
func (c *Client) Standings(ctx context.Context, id string) ([]scorecard.Standing, error) {
	var rows []scorecard.Standing
	err := c.do(ctx, http.MethodGet, "/api/games/"+url.PathEscape(id)+"/standings", nil, &rows)
	return rows, err
}

type rollRef struct {
	Frame int `json:"frame"`
	Roll  int `json:"roll"`
}

func (r *rollRef) ref() *scoring.RollRef {
	if r == nil {
		return nil
	}
	return &scoring.RollRef{FrameIndex: r.Frame - 1, Slot: scoring.RollSlot(r.Roll)}
}

// RecordRoll sends one roll. frameIndex is 0-based; the wire format uses
// 1-based frame numbers.
func (c *Client) RecordRoll(ctx context.Context, gameID, playerID string, frameIndex int, slot scoring.RollSlot, pins int) (RollOutcome, error) {
	var out struct {
		Player   scoring.Player `json:"player"`
		Next     *rollRef       `json:"next"`
		Finished bool           `json:"finished"`
	}
	path := fmt.Sprintf("/api/games/%s/players/%s/frames/%d/rolls/%d",
		url.PathEscape(gameID), url.PathEscape(playerID), frameIndex+1, int(slot))
	if err := c.do(ctx, http.MethodPut, path, map[string]int{"pins": pins}, &out); err != nil {
		return RollOutcome{}, err
	}
	return RollOutcome{Player: out.Player, Next: out.Next.ref(), Finished: out.Finished}, nil
}

// NextRoll asks the server which roll a player bowls next. ok is false once
// the scorecard is complete.
func (c *Client) NextRoll(ctx context.Context, gameID, playerID string) (ref scoring.RollRef, ok bool, err error) {
	var out struct {
		Next *rollRef `json:"next"`
	}
	path := fmt.Sprintf("/api/games/%s/players/%s/next-roll", url.PathEscape(gameID), url.PathEscape(playerID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return scoring.RollRef{}, false, err
	}
	if out.Next == nil {
		return scoring.RollRef{}, false, nil
	}
	return *out.Next.ref(), true, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
//
// Postcondition: non-2xx responses return an *APIError carrying the server's
// message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var msg struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
