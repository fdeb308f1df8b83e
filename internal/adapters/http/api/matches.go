package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diskilabs/diskirater/internal/app"
	"github.com/diskilabs/diskirater/internal/domain/model"
)

// MatchesHandler serves the /api/matches surface.
type MatchesHandler struct {
	deps Dependencies
}

// NewMatchesHandler creates a matches handler.
func NewMatchesHandler(deps Dependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleCollection handles POST /api/matches.
func (h *MatchesHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var in app.CreateMatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	m, err := h.deps.CreateMatch(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// verifyRequest mirrors the PATCH .../verify payload.
type verifyRequest struct {
	Identity string `json:"identity"`
}

// joinRequest mirrors the PATCH .../join payload.
type joinRequest struct {
	Identity string     `json:"identity"`
	Team     model.Team `json:"team"`
}

// HandleSubpath dispatches everything under /api/matches/:
//
//	GET   /api/matches/{id}
//	PATCH /api/matches/{id}/verify
//	PATCH /api/matches/{id}/join
//	GET   /api/matches/pending/{areaId}
//	GET   /api/matches/area/{areaName}
func (h *MatchesHandler) HandleSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/matches/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 2 && parts[0] == "pending" && r.Method == http.MethodGet:
		h.handlePending(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "area" && r.Method == http.MethodGet:
		h.handleArea(w, r, parts[1])
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		h.handleDetail(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "verify" && r.Method == http.MethodPatch:
		h.handleVerify(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "join" && r.Method == http.MethodPatch:
		h.handleJoin(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *MatchesHandler) handleDetail(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.deps.GetMatch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *MatchesHandler) handleVerify(w http.ResponseWriter, r *http.Request, id string) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Identity) == "" {
		writeError(w, fmt.Errorf("%w: missing identity", ErrBadRequest))
		return
	}
	res, err := h.deps.RecordVerification(r.Context(), id, req.Identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MatchesHandler) handleJoin(w http.ResponseWriter, r *http.Request, id string) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Identity) == "" {
		writeError(w, fmt.Errorf("%w: missing identity", ErrBadRequest))
		return
	}
	res, err := h.deps.JoinMatch(r.Context(), id, req.Identity, req.Team)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MatchesHandler) handlePending(w http.ResponseWriter, r *http.Request, areaID string) {
	matches, err := h.deps.ListPendingMatches(r.Context(), areaID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *MatchesHandler) handleArea(w http.ResponseWriter, r *http.Request, areaName string) {
	matches, err := h.deps.ListAreaMatches(r.Context(), areaName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
