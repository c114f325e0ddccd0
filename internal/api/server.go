// Package api serves the scorekeeping REST API used by the mobile and web
// clients.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lanes/internal/auth"
	"github.com/cory-johannsen/lanes/internal/gameserver"
	"github.com/cory-johannsen/lanes/internal/observability"
	"github.com/cory-johannsen/lanes/internal/storage"
)

// AccountStore registers and looks up scorekeeper accounts.
type AccountStore interface {
	Create(ctx context.Context, email, username, password string) (storage.Account, error)
	Authenticate(ctx context.Context, email, password string) (storage.Account, error)
	GetByID(ctx context.Context, id string) (storage.Account, error)
}

// HealthChecker reports whether the service can reach its storage.
type HealthChecker interface {
	Serving(ctx context.Context) bool
}

// Deps are the collaborators of a Server.
type Deps struct {
	Games    *gameserver.GameService
	Accounts AccountStore
	Tokens   *auth.Issuer
	// Health may be nil, in which case /healthz always reports ok.
	Health HealthChecker
	Logger *zap.Logger
	// AllowedOrigins lists the CORS origins allowed to call the API.
	AllowedOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	games    *gameserver.GameService
	accounts AccountStore
	tokens   *auth.Issuer
	health   HealthChecker
	logger   *zap.Logger
	origins  []string
}

// NewServer creates a Server.
//
// Precondition: Games, Accounts, Tokens and Logger must be non-nil.
func NewServer(deps Deps) *Server {
	return &Server{
		games:    deps.Games,
		accounts: deps.Accounts,
		tokens:   deps.Tokens,
		health:   deps.Health,
		logger:   deps.Logger,
		origins:  deps.AllowedOrigins,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.authenticate)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.With(requireAuth).Post("/logout", s.handleLogout)
			r.With(requireAuth).Get("/me", s.handleMe)
		})

		r.Route("/games", func(r chi.Router) {
			r.Get("/", s.handleListGames)
			r.With(requireAuth).Post("/", s.handleCreateGame)

			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", s.handleGetGame)
				r.Get("/standings", s.handleStandings)
				r.With(requireAuth).Post("/finish", s.handleFinishGame)
				r.Get("/players/{playerID}/next-roll", s.handleNextRoll)
				r.With(requireAuth).Put("/players/{playerID}/frames/{frame}/rolls/{roll}", s.handleRecordRoll)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil && !s.health.Serving(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
