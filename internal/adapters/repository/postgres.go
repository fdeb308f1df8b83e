package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/diskilabs/diskirater/internal/domain/model"
)

// PostgresStore keeps the documents in JSONB columns, with the few fields
// the queries filter or sort on promoted to regular columns. Per-match
// serialization uses SELECT ... FOR UPDATE inside a transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresDB opens and pings a postgres connection.
func NewPostgresDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresStore wraps an open connection. Run migrations first.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateMatch persists a new match document.
func (s *PostgresStore) CreateMatch(ctx context.Context, m model.Match) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (id, area_id, status, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.AreaID, string(m.Status), doc, m.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrConflict
		}
		return fmt.Errorf("%w: insert match: %v", ErrPersistence, err)
	}
	return nil
}

// GetMatch loads one match document.
func (s *PostgresStore) GetMatch(ctx context.Context, id string) (model.Match, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM matches WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, ErrMatchNotFound
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("%w: query match: %v", ErrPersistence, err)
	}
	return unmarshalMatch(doc)
}

// MutateMatch runs fn against a row-locked copy of the match and writes the
// result back in the same transaction.
func (s *PostgresStore) MutateMatch(ctx context.Context, id string, fn func(*model.Match) error) (model.Match, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Match{}, fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var doc []byte
	err = tx.QueryRowContext(ctx, `SELECT doc FROM matches WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, ErrMatchNotFound
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("%w: lock match: %v", ErrPersistence, err)
	}

	m, err := unmarshalMatch(doc)
	if err != nil {
		return model.Match{}, err
	}
	if err := fn(&m); err != nil {
		return model.Match{}, err
	}

	updated, err := json.Marshal(m)
	if err != nil {
		return model.Match{}, fmt.Errorf("marshal match: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE matches SET status = $2, doc = $3 WHERE id = $1`,
		m.ID, string(m.Status), updated); err != nil {
		return model.Match{}, fmt.Errorf("%w: update match: %v", ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Match{}, fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return m, nil
}

// ListPendingByArea returns Pending matches in an area, oldest first.
func (s *PostgresStore) ListPendingByArea(ctx context.Context, areaID string) ([]model.Match, error) {
	return s.queryMatches(ctx,
		`SELECT doc FROM matches WHERE area_id = $1 AND status = $2 ORDER BY created_at ASC`,
		areaID, string(model.StatusPending))
}

// ListByArea returns an area's match history, newest first.
func (s *PostgresStore) ListByArea(ctx context.Context, areaName string) ([]model.Match, error) {
	return s.queryMatches(ctx,
		`SELECT doc FROM matches WHERE lower(area_id) = lower($1) ORDER BY created_at DESC`,
		areaName)
}

func (s *PostgresStore) queryMatches(ctx context.Context, query string, args ...any) ([]model.Match, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query matches: %v", ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]model.Match, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scan match: %v", ErrPersistence, err)
		}
		m, err := unmarshalMatch(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate matches: %v", ErrPersistence, err)
	}
	return out, nil
}

// CreatePlayer persists a new player document.
func (s *PostgresStore) CreatePlayer(ctx context.Context, p model.Player) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO players (id, auth_id, area, doc, created_at) VALUES ($1, NULLIF($2, ''), $3, $4, $5)`,
		p.ID, p.AuthID, p.Area, doc, p.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrConflict
		}
		return fmt.Errorf("%w: insert player: %v", ErrPersistence, err)
	}
	return nil
}

// GetPlayer loads one player document.
func (s *PostgresStore) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	return s.queryPlayer(ctx, `SELECT doc FROM players WHERE id = $1`, id)
}

// FindPlayerByAuth resolves a player card from an identity token subject.
func (s *PostgresStore) FindPlayerByAuth(ctx context.Context, authID string) (model.Player, error) {
	return s.queryPlayer(ctx, `SELECT doc FROM players WHERE auth_id = $1`, authID)
}

func (s *PostgresStore) queryPlayer(ctx context.Context, query string, args ...any) (model.Player, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("%w: query player: %v", ErrPersistence, err)
	}
	var p model.Player
	if err := json.Unmarshal(doc, &p); err != nil {
		return model.Player{}, fmt.Errorf("unmarshal player: %w", err)
	}
	return p, nil
}

// GetPlayers batch-reads known IDs; unknown IDs are skipped.
func (s *PostgresStore) GetPlayers(ctx context.Context, ids []string) ([]model.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM players WHERE id IN (`+strings.Join(params, ", ")+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query players: %v", ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]model.Player, 0, len(ids))
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scan player: %v", ErrPersistence, err)
		}
		var p model.Player
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("unmarshal player: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate players: %v", ErrPersistence, err)
	}
	return out, nil
}

// UpdatePlayer replaces a single player document.
func (s *PostgresStore) UpdatePlayer(ctx context.Context, p model.Player) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET auth_id = NULLIF($2, ''), area = $3, doc = $4 WHERE id = $1`,
		p.ID, p.AuthID, p.Area, doc)
	if err != nil {
		return fmt.Errorf("%w: update player: %v", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrPersistence, err)
	}
	if n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ApplyBatch writes all player documents in one transaction.
func (s *PostgresStore) ApplyBatch(ctx context.Context, players []model.Player) error {
	if len(players) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range players {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal player: %w", err)
		}
		res, err := tx.ExecContext(ctx, `UPDATE players SET doc = $2 WHERE id = $1`, p.ID, doc)
		if err != nil {
			return fmt.Errorf("%w: batch update player %s: %v", ErrPersistence, p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: rows affected: %v", ErrPersistence, err)
		}
		if n == 0 {
			return ErrPlayerNotFound
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit batch: %v", ErrPersistence, err)
	}
	return nil
}

// ListPlayers returns all players, newest first.
func (s *PostgresStore) ListPlayers(ctx context.Context) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM players ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: query players: %v", ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]model.Player, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scan player: %v", ErrPersistence, err)
		}
		var p model.Player
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("unmarshal player: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate players: %v", ErrPersistence, err)
	}
	return out, nil
}

// AnyPlayerInArea reports whether the area has at least one player card.
func (s *PostgresStore) AnyPlayerInArea(ctx context.Context, areaID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM players WHERE lower(area) = lower($1))`, areaID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: query area players: %v", ErrPersistence, err)
	}
	return exists, nil
}

// CreateUser persists a new registration document.
func (s *PostgresStore) CreateUser(ctx context.Context, u model.User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (auth_id, area_id, status, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.AuthID, u.AreaID, string(u.Status), doc, u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrConflict
		}
		return fmt.Errorf("%w: insert user: %v", ErrPersistence, err)
	}
	return nil
}

// GetUser loads one registration document.
func (s *PostgresStore) GetUser(ctx context.Context, authID string) (model.User, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM users WHERE auth_id = $1`, authID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%w: query user: %v", ErrPersistence, err)
	}
	var u model.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return model.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return u, nil
}

// UpdateUser replaces a registration document.
func (s *PostgresStore) UpdateUser(ctx context.Context, u model.User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET area_id = $2, status = $3, doc = $4 WHERE auth_id = $1`,
		u.AuthID, u.AreaID, string(u.Status), doc)
	if err != nil {
		return fmt.Errorf("%w: update user: %v", ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrPersistence, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListPendingUsers returns users awaiting approval, oldest first.
func (s *PostgresStore) ListPendingUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM users WHERE status = $1 ORDER BY created_at ASC`, string(model.UserPending))
	if err != nil {
		return nil, fmt.Errorf("%w: query users: %v", ErrPersistence, err)
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ErrPersistence, err)
		}
		var u model.User
		if err := json.Unmarshal(doc, &u); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate users: %v", ErrPersistence, err)
	}
	return out, nil
}

// AnyUserInArea reports whether the area has at least one registration.
func (s *PostgresStore) AnyUserInArea(ctx context.Context, areaID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(area_id) = lower($1))`, areaID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: query area users: %v", ErrPersistence, err)
	}
	return exists, nil
}

func unmarshalMatch(doc []byte) (model.Match, error) {
	var m model.Match
	if err := json.Unmarshal(doc, &m); err != nil {
		return model.Match{}, fmt.Errorf("unmarshal match: %w", err)
	}
	return m, nil
}
