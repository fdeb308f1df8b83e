// Package app provides the core business service that implements the
// dependencies required by the HTTP API: match submission, peer
// verification, late joins, and the one-time finalization that converts a
// verified match into permanent rating and stat changes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diskilabs/diskirater/internal/adapters/repository"
	"github.com/diskilabs/diskirater/internal/domain/consensus"
	"github.com/diskilabs/diskirater/internal/domain/match"
	"github.com/diskilabs/diskirater/internal/domain/model"
	"github.com/diskilabs/diskirater/internal/domain/rating"
	"github.com/diskilabs/diskirater/pkg/logger"
	"github.com/diskilabs/diskirater/pkg/metrics"
)

// Service executes the match verification commands against the document
// store. Per-match races are handled by the store's MutateMatch contract;
// the service itself is stateless and safe for concurrent use.
type Service struct {
	matches repository.MatchStore
	players repository.PlayerStore
	users   repository.UserStore

	eval            *consensus.Evaluator
	finalizeRetries int
	finalizeBackoff time.Duration

	now   func() time.Time
	newID func() string

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithConsensusRatio overrides the default 75% consensus threshold.
func WithConsensusRatio(ratio float64) Option {
	return func(s *Service) {
		s.eval = consensus.NewEvaluator(consensus.WithRatio(ratio))
	}
}

// WithFinalizeRetries bounds whole-batch retries of a failed finalization
// write.
func WithFinalizeRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.finalizeRetries = n
		}
	}
}

// WithFinalizeBackoff sets the delay between finalization retries.
func WithFinalizeBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.finalizeBackoff = d
		}
	}
}

// WithClock overrides the service clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides document ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a Service over the given stores.
func New(matches repository.MatchStore, players repository.PlayerStore, users repository.UserStore, opts ...Option) *Service {
	s := &Service{
		matches:         matches,
		players:         players,
		users:           users,
		eval:            consensus.NewEvaluator(),
		finalizeRetries: 3,
		finalizeBackoff: 200 * time.Millisecond,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("app")
	}
	return s
}

// CreateMatchInput mirrors the POST /api/matches payload.
type CreateMatchInput struct {
	AreaID                string              `json:"areaId"`
	SubmittedBy           string              `json:"submittedBy"`
	Score                 model.Score         `json:"score"`
	Lineups               model.Lineups       `json:"lineups"`
	Performance           []model.Performance `json:"playerPerformance"`
	ExpectedConfirmations int                 `json:"expectedConfirmations"`
}

// CreateMatch opens a match for verification. The submitter must hold an
// approved league membership and is auto-included in the verification set.
func (s *Service) CreateMatch(ctx context.Context, in CreateMatchInput) (model.Match, error) {
	user, err := s.users.GetUser(ctx, in.SubmittedBy)
	if err != nil || !user.Approved() {
		return model.Match{}, ErrNotApproved
	}

	m, err := match.New(match.NewInput{
		ID:                    s.newID(),
		AreaID:                in.AreaID,
		SubmittedBy:           in.SubmittedBy,
		Score:                 in.Score,
		Lineups:               in.Lineups,
		Performance:           in.Performance,
		ExpectedConfirmations: in.ExpectedConfirmations,
		Now:                   s.now(),
	})
	if err != nil {
		return model.Match{}, err
	}

	if err := s.matches.CreateMatch(ctx, m); err != nil {
		return model.Match{}, fmt.Errorf("create match: %w", err)
	}

	metrics.RecordMatchSubmitted()
	s.log.Info(ctx, "match submitted",
		logger.String("matchID", m.ID),
		logger.String("area", m.AreaID),
		logger.Int("expectedConfirmations", m.ExpectedConfirmations),
	)
	return m, nil
}

// VerifyResult reports the outcome of a verify or join call.
type VerifyResult struct {
	Match     model.Match        `json:"match"`
	Progress  consensus.Progress `json:"progress"`
	Finalized bool               `json:"finalized"`
}

// RecordVerification adds one confirmation and re-evaluates consensus. The
// caller whose confirmation crosses the threshold wins the Pending ->
// Verified transition inside the store's mutation scope and runs the
// finalization batch; every other caller sees progress only.
func (s *Service) RecordVerification(ctx context.Context, matchID, identity string) (VerifyResult, error) {
	var (
		progress  consensus.Progress
		finalized bool
	)
	m, err := s.matches.MutateMatch(ctx, matchID, func(m *model.Match) error {
		if _, err := match.RecordVerification(m, identity, s.now()); err != nil {
			return err
		}
		progress = s.eval.Evaluate(len(m.Verifications), m.ExpectedConfirmations)
		if progress.Reached {
			if err := match.Finalize(m, s.now()); err != nil {
				return err
			}
			finalized = true
		}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	metrics.RecordVerification()
	if finalized {
		if err := s.finalize(ctx, m); err != nil {
			return VerifyResult{}, err
		}
	}
	return VerifyResult{Match: m, Progress: progress, Finalized: finalized}, nil
}

// JoinMatch appends a late player to a pending match and counts their
// confirmation. The added expectation can itself push the match over the
// threshold, in which case finalization runs immediately.
func (s *Service) JoinMatch(ctx context.Context, matchID, identity string, team model.Team) (VerifyResult, error) {
	player, err := s.players.FindPlayerByAuth(ctx, identity)
	if err != nil {
		return VerifyResult{}, err
	}

	var (
		progress  consensus.Progress
		finalized bool
	)
	m, err := s.matches.MutateMatch(ctx, matchID, func(m *model.Match) error {
		if err := match.Join(m, &player, identity, team, s.now()); err != nil {
			return err
		}
		progress = s.eval.Evaluate(len(m.Verifications), m.ExpectedConfirmations)
		if progress.Reached {
			if err := match.Finalize(m, s.now()); err != nil {
				return err
			}
			finalized = true
		}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	metrics.RecordLineupJoin()
	s.log.Info(ctx, "player joined lineup",
		logger.String("matchID", m.ID),
		logger.String("playerID", player.ID),
		logger.String("team", string(team)),
	)
	if finalized {
		if err := s.finalize(ctx, m); err != nil {
			return VerifyResult{}, err
		}
	}
	return VerifyResult{Match: m, Progress: progress, Finalized: finalized}, nil
}

// finalize performs the one-time rating and stats commit for a match that
// just flipped to Verified. Deltas are computed off each player's currently
// stored ratings; the batch write is all-or-nothing and retried as a whole.
func (s *Service) finalize(ctx context.Context, m model.Match) error {
	start := s.now()

	ids := make([]string, 0, len(m.Performance))
	for _, perf := range m.Performance {
		ids = append(ids, perf.PlayerID)
	}
	current, err := s.players.GetPlayers(ctx, ids)
	if err != nil {
		return fmt.Errorf("finalize match %s: load players: %w", m.ID, err)
	}
	byID := make(map[string]model.Player, len(current))
	for _, p := range current {
		byID[p.ID] = p
	}

	updates := make([]model.Player, 0, len(m.Performance))
	for _, perf := range m.Performance {
		p, ok := byID[perf.PlayerID]
		if !ok {
			s.warnSkipped(ctx, m.ID, perf.PlayerID, "player document missing")
			continue
		}
		outcome, ok := match.OutcomeFor(&m, perf.PlayerID)
		if !ok {
			s.warnSkipped(ctx, m.ID, perf.PlayerID, "player in neither lineup")
			continue
		}
		rating.Apply(&p, perf, outcome)
		updates = append(updates, p)
	}

	if len(updates) > 0 {
		if err := s.applyWithRetry(ctx, m.ID, updates); err != nil {
			return err
		}
		metrics.RecordPlayersUpdated(len(updates))
	}

	metrics.RecordMatchFinalized()
	metrics.ObserveFinalizeDuration(float64(s.now().Sub(start).Milliseconds()))
	s.log.Info(ctx, "match finalized",
		logger.String("matchID", m.ID),
		logger.Int("playersUpdated", len(updates)),
	)
	return nil
}

// applyWithRetry writes the whole batch, retrying the entire thing on
// persistence failure. Partial application across players is never
// acceptable, so there is no per-player fallback.
func (s *Service) applyWithRetry(ctx context.Context, matchID string, updates []model.Player) error {
	var err error
	for attempt := 0; attempt <= s.finalizeRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordFinalizeRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.finalizeBackoff):
			}
		}
		if err = s.players.ApplyBatch(ctx, updates); err == nil {
			return nil
		}
		s.log.Warn(ctx, "finalization batch write failed",
			logger.String("matchID", matchID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	metrics.RecordFinalizeFailure()
	return fmt.Errorf("finalize match %s: %w", matchID, err)
}

func (s *Service) warnSkipped(ctx context.Context, matchID, playerID, reason string) {
	metrics.RecordIntegrityWarning()
	s.log.Warn(ctx, "skipping performance record",
		logger.String("matchID", matchID),
		logger.String("playerID", playerID),
		logger.String("reason", reason),
	)
}

// PlayerRef is a resolved lineup entry for match detail views.
type PlayerRef struct {
	ID        string `json:"id"`
	DiskiName string `json:"diskiName"`
	Position  string `json:"position,omitempty"`
}

// MatchDetail is a match with lineup player names and positions resolved.
type MatchDetail struct {
	model.Match
	TeamA []PlayerRef `json:"teamA"`
	TeamB []PlayerRef `json:"teamB"`
}

// GetMatch returns full match detail with resolved player references.
func (s *Service) GetMatch(ctx context.Context, id string) (MatchDetail, error) {
	m, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return MatchDetail{}, err
	}

	ids := append(append([]string(nil), m.Lineups.TeamA...), m.Lineups.TeamB...)
	players, err := s.players.GetPlayers(ctx, ids)
	if err != nil {
		return MatchDetail{}, fmt.Errorf("resolve lineup players: %w", err)
	}
	byID := make(map[string]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	resolve := func(ids []string) []PlayerRef {
		refs := make([]PlayerRef, 0, len(ids))
		for _, id := range ids {
			ref := PlayerRef{ID: id}
			if p, ok := byID[id]; ok {
				ref.DiskiName = p.DiskiName
				ref.Position = p.Position
			}
			refs = append(refs, ref)
		}
		return refs
	}

	return MatchDetail{
		Match: m,
		TeamA: resolve(m.Lineups.TeamA),
		TeamB: resolve(m.Lineups.TeamB),
	}, nil
}

// Stats reports coarse service counters for the operational endpoint.
func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list players: %w", err)
	}
	pending, err := s.users.ListPendingUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: list pending users: %w", err)
	}
	return map[string]any{
		"totalPlayers": len(players),
		"pendingUsers": len(pending),
	}, nil
}

// ListPendingMatches returns an area's matches awaiting consensus, oldest
// first.
func (s *Service) ListPendingMatches(ctx context.Context, areaID string) ([]model.Match, error) {
	return s.matches.ListPendingByArea(ctx, areaID)
}

// ListAreaMatches returns an area's match history, newest first. The area
// name match is case-insensitive.
func (s *Service) ListAreaMatches(ctx context.Context, areaName string) ([]model.Match, error) {
	return s.matches.ListByArea(ctx, areaName)
}
