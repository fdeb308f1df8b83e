// Package repository defines the document store contracts for players,
// matches, and users, plus the in-memory and postgres implementations.
package repository

import (
	"context"

	"github.com/diskilabs/diskirater/internal/domain/model"
)

// MatchStore provides access to the matches collection. MutateMatch is the
// only write path for existing matches: it serializes read-modify-write per
// match ID so concurrent verify/join calls on the same match cannot
// interleave, while different matches proceed in parallel.
type MatchStore interface {
	// CreateMatch persists a new match. Returns ErrConflict on a
	// duplicate ID.
	CreateMatch(ctx context.Context, m model.Match) error

	// GetMatch returns ErrMatchNotFound for unknown IDs.
	GetMatch(ctx context.Context, id string) (model.Match, error)

	// MutateMatch loads the match, applies fn to a working copy, and
	// persists the result if fn succeeds. Either every change fn made is
	// stored or none are.
	MutateMatch(ctx context.Context, id string, fn func(*model.Match) error) (model.Match, error)

	// ListPendingByArea returns Pending matches in an area, oldest first.
	ListPendingByArea(ctx context.Context, areaID string) ([]model.Match, error)

	// ListByArea returns all matches for an area name, case-insensitive,
	// newest first.
	ListByArea(ctx context.Context, areaName string) ([]model.Match, error)
}

// PlayerStore provides access to the players collection.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, p model.Player) error

	// GetPlayer returns ErrPlayerNotFound for unknown IDs.
	GetPlayer(ctx context.Context, id string) (model.Player, error)

	// FindPlayerByAuth resolves a player card from an externally issued
	// identity. Returns ErrPlayerNotFound when no card is linked.
	FindPlayerByAuth(ctx context.Context, authID string) (model.Player, error)

	// GetPlayers batch-reads the given IDs. Unknown IDs are simply
	// absent from the result; the caller decides whether that matters.
	GetPlayers(ctx context.Context, ids []string) ([]model.Player, error)

	// UpdatePlayer replaces a single player document.
	UpdatePlayer(ctx context.Context, p model.Player) error

	// ApplyBatch replaces all given player documents atomically. Partial
	// application is not acceptable: on error no player was written and
	// the whole batch can be retried.
	ApplyBatch(ctx context.Context, players []model.Player) error

	// ListPlayers returns all players, newest first.
	ListPlayers(ctx context.Context) ([]model.Player, error)

	// AnyPlayerInArea reports whether the area already has a player card.
	AnyPlayerInArea(ctx context.Context, areaID string) (bool, error)
}

// UserStore provides access to the users collection.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) error

	// GetUser returns ErrUserNotFound for unknown auth IDs.
	GetUser(ctx context.Context, authID string) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) error

	// ListPendingUsers returns users awaiting approval.
	ListPendingUsers(ctx context.Context) ([]model.User, error)

	// AnyUserInArea reports whether the area already has a registration.
	AnyUserInArea(ctx context.Context, areaID string) (bool, error)
}

// Store bundles the three collections behind one backend.
type Store interface {
	MatchStore
	PlayerStore
	UserStore
}
