package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diskilabs/diskirater/internal/app"
)

// PlayersHandler serves the /api/players surface.
type PlayersHandler struct {
	deps Dependencies
}

// NewPlayersHandler creates a players handler.
func NewPlayersHandler(deps Dependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleCollection handles GET and POST on /api/players.
func (h *PlayersHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		players, err := h.deps.ListPlayers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, players)
	case http.MethodPost:
		var in app.CreatePlayerInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		p, err := h.deps.CreatePlayer(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	default:
		http.NotFound(w, r)
	}
}

// HandleItem handles GET and PATCH on /api/players/{id}.
func (h *PlayersHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/players/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.deps.GetPlayer(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPatch:
		var patch app.PlayerPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		p, err := h.deps.UpdatePlayer(r.Context(), id, patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		http.NotFound(w, r)
	}
}
