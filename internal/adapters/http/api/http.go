// Package api declares the REST binding for the match verification engine:
// route registration, request schemas, and domain-error translation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diskilabs/diskirater/internal/adapters/repository"
	"github.com/diskilabs/diskirater/internal/app"
	"github.com/diskilabs/diskirater/internal/domain/match"
	"github.com/diskilabs/diskirater/internal/domain/model"
)

// Dependencies bundles the service operations the handlers call. Keeping an
// interface here keeps the handler layer loosely coupled to internal/app.
type Dependencies interface {
	CreateMatch(ctx context.Context, in app.CreateMatchInput) (model.Match, error)
	RecordVerification(ctx context.Context, matchID, identity string) (app.VerifyResult, error)
	JoinMatch(ctx context.Context, matchID, identity string, team model.Team) (app.VerifyResult, error)
	GetMatch(ctx context.Context, id string) (app.MatchDetail, error)
	ListPendingMatches(ctx context.Context, areaID string) ([]model.Match, error)
	ListAreaMatches(ctx context.Context, areaName string) ([]model.Match, error)

	ListPlayers(ctx context.Context) ([]model.Player, error)
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	CreatePlayer(ctx context.Context, in app.CreatePlayerInput) (model.Player, error)
	UpdatePlayer(ctx context.Context, id string, patch app.PlayerPatch) (model.Player, error)

	RegisterUser(ctx context.Context, in app.RegisterUserInput) (app.RegisterResult, error)
	GetUser(ctx context.Context, authID string) (model.User, error)
	ListPendingUsers(ctx context.Context) ([]model.User, error)
	ApproveUser(ctx context.Context, authID, linkedPlayerID string) (model.User, error)

	Stats(ctx context.Context) (map[string]any, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	matchesHandler *MatchesHandler
	playersHandler *PlayersHandler
	usersHandler   *UsersHandler
	healthHandler  *HealthHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		matchesHandler: NewMatchesHandler(deps),
		playersHandler: NewPlayersHandler(deps),
		usersHandler:   NewUsersHandler(deps),
		healthHandler:  NewHealthHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.healthHandler.HandleStats, "stats"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/api/matches", MetricsMiddleware(s.matchesHandler.HandleCollection, "matches"))
	mux.HandleFunc("/api/matches/", MetricsMiddleware(s.matchesHandler.HandleSubpath, "matches"))
	mux.HandleFunc("/api/players", MetricsMiddleware(s.playersHandler.HandleCollection, "players"))
	mux.HandleFunc("/api/players/", MetricsMiddleware(s.playersHandler.HandleItem, "players"))
	mux.HandleFunc("/api/users", MetricsMiddleware(s.usersHandler.HandleCollection, "users"))
	mux.HandleFunc("/api/users/", MetricsMiddleware(s.usersHandler.HandleSubpath, "users"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps domain errors onto HTTP status codes. Mutation failures
// surface a descriptive message and leave all state unchanged.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrNotApproved):
		return http.StatusForbidden, "not_approved"
	case errors.Is(err, repository.ErrMatchNotFound),
		errors.Is(err, repository.ErrPlayerNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, match.ErrAlreadyFinalized):
		return http.StatusBadRequest, "already_finalized"
	case errors.Is(err, match.ErrMatchLocked):
		return http.StatusBadRequest, "match_locked"
	case errors.Is(err, match.ErrDuplicateParticipant):
		return http.StatusBadRequest, "duplicate_participant"
	case errors.Is(err, match.ErrInvalidTeam):
		return http.StatusBadRequest, "invalid_team"
	case errors.Is(err, match.ErrValidation),
		errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrUserExists),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
