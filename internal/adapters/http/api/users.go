package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diskilabs/diskirater/internal/app"
)

// UsersHandler serves the /api/users surface.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleCollection handles POST /api/users.
func (h *UsersHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var in app.RegisterUserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	res, err := h.deps.RegisterUser(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// approveRequest mirrors the PATCH .../approve payload.
type approveRequest struct {
	LinkedPlayerID string `json:"linkedPlayerId"`
}

// HandleSubpath dispatches everything under /api/users/:
//
//	GET   /api/users/pending
//	GET   /api/users/{authId}
//	PATCH /api/users/approve/{authId}
func (h *UsersHandler) HandleSubpath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "pending" && r.Method == http.MethodGet:
		users, err := h.deps.ListPendingUsers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		u, err := h.deps.GetUser(r.Context(), parts[0])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case len(parts) == 2 && parts[0] == "approve" && r.Method == http.MethodPatch:
		var req approveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		u, err := h.deps.ApproveUser(r.Context(), parts[1], req.LinkedPlayerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	default:
		http.NotFound(w, r)
	}
}
