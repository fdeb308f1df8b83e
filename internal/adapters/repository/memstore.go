package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/diskilabs/diskirater/internal/domain/model"
)

// MemStore is the in-memory document store. Collection maps are guarded by
// one RWMutex; match mutations additionally take a per-match lock so that
// read-modify-write cycles on the same match are serialized end to end
// without blocking unrelated matches.
type MemStore struct {
	mu      sync.RWMutex
	matches map[string]model.Match
	players map[string]model.Player
	users   map[string]model.User

	lockMu     sync.Mutex
	matchLocks map[string]*sync.Mutex

	now func() time.Time
}

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithClock overrides the store clock. Used by tests for deterministic
// ordering.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		matches:    make(map[string]model.Match),
		players:    make(map[string]model.Player),
		users:      make(map[string]model.User),
		matchLocks: make(map[string]*sync.Mutex),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) matchLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.matchLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.matchLocks[id] = l
	}
	return l
}

// CreateMatch persists a new match.
func (s *MemStore) CreateMatch(ctx context.Context, m model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return ErrConflict
	}
	s.matches[m.ID] = cloneMatch(m)
	return nil
}

// GetMatch returns a copy of the stored match.
func (s *MemStore) GetMatch(ctx context.Context, id string) (model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return model.Match{}, ErrMatchNotFound
	}
	return cloneMatch(m), nil
}

// MutateMatch applies fn to a working copy under the per-match lock and
// stores the result only if fn succeeds.
func (s *MemStore) MutateMatch(ctx context.Context, id string, fn func(*model.Match) error) (model.Match, error) {
	lock := s.matchLock(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return model.Match{}, err
	}

	s.mu.RLock()
	stored, ok := s.matches[id]
	s.mu.RUnlock()
	if !ok {
		return model.Match{}, ErrMatchNotFound
	}

	working := cloneMatch(stored)
	if err := fn(&working); err != nil {
		return model.Match{}, err
	}

	s.mu.Lock()
	s.matches[id] = cloneMatch(working)
	s.mu.Unlock()
	return working, nil
}

// ListPendingByArea returns Pending matches in an area, oldest first.
func (s *MemStore) ListPendingByArea(ctx context.Context, areaID string) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Match, 0)
	for _, m := range s.matches {
		if m.AreaID == areaID && m.Status == model.StatusPending {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListByArea returns all matches for an area name, case-insensitive, newest
// first.
func (s *MemStore) ListByArea(ctx context.Context, areaName string) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Match, 0)
	for _, m := range s.matches {
		if strings.EqualFold(m.AreaID, areaName) {
			out = append(out, cloneMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreatePlayer persists a new player card.
func (s *MemStore) CreatePlayer(ctx context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return ErrConflict
	}
	s.players[p.ID] = clonePlayer(p)
	return nil
}

// GetPlayer returns a copy of the stored player.
func (s *MemStore) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return model.Player{}, ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

// FindPlayerByAuth resolves a player card from an identity token subject.
func (s *MemStore) FindPlayerByAuth(ctx context.Context, authID string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.AuthID != "" && p.AuthID == authID {
			return clonePlayer(p), nil
		}
	}
	return model.Player{}, ErrPlayerNotFound
}

// GetPlayers batch-reads known IDs; unknown IDs are skipped.
func (s *MemStore) GetPlayers(ctx context.Context, ids []string) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out = append(out, clonePlayer(p))
		}
	}
	return out, nil
}

// UpdatePlayer replaces a single player document.
func (s *MemStore) UpdatePlayer(ctx context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; !ok {
		return ErrPlayerNotFound
	}
	s.players[p.ID] = clonePlayer(p)
	return nil
}

// ApplyBatch replaces all given player documents, or none of them.
func (s *MemStore) ApplyBatch(ctx context.Context, players []model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate the whole batch before touching anything.
	for _, p := range players {
		if _, ok := s.players[p.ID]; !ok {
			return ErrPlayerNotFound
		}
	}
	for _, p := range players {
		s.players[p.ID] = clonePlayer(p)
	}
	return nil
}

// ListPlayers returns all players, newest first.
func (s *MemStore) ListPlayers(ctx context.Context) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, clonePlayer(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AnyPlayerInArea reports whether the area has at least one player card.
func (s *MemStore) AnyPlayerInArea(ctx context.Context, areaID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if strings.EqualFold(p.Area, areaID) {
			return true, nil
		}
	}
	return false, nil
}

// CreateUser persists a new registration.
func (s *MemStore) CreateUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.AuthID]; ok {
		return ErrConflict
	}
	s.users[u.AuthID] = u
	return nil
}

// GetUser returns a registration by auth ID.
func (s *MemStore) GetUser(ctx context.Context, authID string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[authID]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return u, nil
}

// UpdateUser replaces a registration document.
func (s *MemStore) UpdateUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.AuthID]; !ok {
		return ErrUserNotFound
	}
	s.users[u.AuthID] = u
	return nil
}

// ListPendingUsers returns users awaiting approval, oldest first.
func (s *MemStore) ListPendingUsers(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0)
	for _, u := range s.users {
		if u.Status == model.UserPending {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AnyUserInArea reports whether the area has at least one registration.
func (s *MemStore) AnyUserInArea(ctx context.Context, areaID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.AreaID, areaID) {
			return true, nil
		}
	}
	return false, nil
}

// cloneMatch deep-copies slice fields so callers never alias stored state.
func cloneMatch(m model.Match) model.Match {
	out := m
	out.Lineups.TeamA = append([]string(nil), m.Lineups.TeamA...)
	out.Lineups.TeamB = append([]string(nil), m.Lineups.TeamB...)
	out.Performance = append([]model.Performance(nil), m.Performance...)
	out.Verifications = append([]string(nil), m.Verifications...)
	return out
}

func clonePlayer(p model.Player) model.Player {
	out := p
	out.Form = append([]string(nil), p.Form...)
	return out
}
