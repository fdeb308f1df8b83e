// Package match owns the mutation rules for the match aggregate: creation,
// confirmation bookkeeping, and late joins. Functions here mutate an
// in-memory copy; callers apply them inside the store's per-match
// serialization scope so each call is all-or-nothing.
package match

import (
	"fmt"
	"time"

	"github.com/diskilabs/diskirater/internal/domain/model"
	"github.com/diskilabs/diskirater/internal/domain/rating"
)

// NewInput carries everything needed to open a match for verification.
type NewInput struct {
	ID                    string
	AreaID                string
	SubmittedBy           string
	Score                 model.Score
	Lineups               model.Lineups
	Performance           []model.Performance
	ExpectedConfirmations int
	Now                   time.Time
}

// New builds a Pending match with the submitter auto-verified. The lineups
// must be non-empty and disjoint; the score must be non-negative.
func New(in NewInput) (model.Match, error) {
	if in.AreaID == "" {
		return model.Match{}, fmt.Errorf("%w: missing areaId", ErrValidation)
	}
	if in.SubmittedBy == "" {
		return model.Match{}, fmt.Errorf("%w: missing submittedBy", ErrValidation)
	}
	if in.Score.TeamA < 0 || in.Score.TeamB < 0 {
		return model.Match{}, fmt.Errorf("%w: score must be non-negative", ErrValidation)
	}
	if len(in.Lineups.TeamA) == 0 || len(in.Lineups.TeamB) == 0 {
		return model.Match{}, fmt.Errorf("%w: both lineups must have players", ErrValidation)
	}
	if id, ok := overlap(in.Lineups); ok {
		return model.Match{}, fmt.Errorf("%w: player %s appears in both lineups", ErrValidation, id)
	}
	for _, perf := range in.Performance {
		if perf.Goals < 0 || perf.Assists < 0 {
			return model.Match{}, fmt.Errorf("%w: negative performance values", ErrValidation)
		}
		if !in.Lineups.Contains(perf.PlayerID) {
			return model.Match{}, fmt.Errorf("%w: performance for %s references no lineup member", ErrValidation, perf.PlayerID)
		}
	}

	expected := in.ExpectedConfirmations
	if expected <= 0 {
		expected = len(in.Lineups.TeamA) + len(in.Lineups.TeamB)
	}

	return model.Match{
		ID:                    in.ID,
		AreaID:                in.AreaID,
		SubmittedBy:           in.SubmittedBy,
		Status:                model.StatusPending,
		Score:                 in.Score,
		Lineups:               in.Lineups,
		Performance:           in.Performance,
		ExpectedConfirmations: expected,
		Verifications:         []string{in.SubmittedBy},
		CreatedAt:             in.Now,
		UpdatedAt:             in.Now,
	}, nil
}

func overlap(l model.Lineups) (string, bool) {
	seen := make(map[string]struct{}, len(l.TeamA))
	for _, id := range l.TeamA {
		seen[id] = struct{}{}
	}
	for _, id := range l.TeamB {
		if _, ok := seen[id]; ok {
			return id, true
		}
	}
	return "", false
}

// RecordVerification adds identity to the confirmation set. Adding an
// identity that already confirmed is a no-op; confirming a non-Pending match
// is an error.
func RecordVerification(m *model.Match, identity string, now time.Time) (bool, error) {
	if m.Status != model.StatusPending {
		return false, ErrAlreadyFinalized
	}
	if identity == "" {
		return false, fmt.Errorf("%w: missing identity", ErrValidation)
	}
	if m.VerifiedBy(identity) {
		return false, nil
	}
	m.Verifications = append(m.Verifications, identity)
	m.UpdatedAt = now
	return true, nil
}

// Join appends a late player to the chosen side: lineup entry, a
// zero-initialized performance record, one more expected confirmation, and
// the joiner's own verification.
func Join(m *model.Match, player *model.Player, identity string, team model.Team, now time.Time) error {
	if m.Status != model.StatusPending {
		return ErrMatchLocked
	}
	if !team.Valid() {
		return ErrInvalidTeam
	}
	if m.Lineups.Contains(player.ID) {
		return ErrDuplicateParticipant
	}

	if team == model.TeamA {
		m.Lineups.TeamA = append(m.Lineups.TeamA, player.ID)
	} else {
		m.Lineups.TeamB = append(m.Lineups.TeamB, player.ID)
	}
	m.Performance = append(m.Performance, model.Performance{PlayerID: player.ID})
	m.ExpectedConfirmations++
	if !m.VerifiedBy(identity) {
		m.Verifications = append(m.Verifications, identity)
	}
	m.UpdatedAt = now
	return nil
}

// Finalize flips a Pending match to Verified. Callers run it under the
// store's per-match mutation scope so only one caller wins the transition.
func Finalize(m *model.Match, now time.Time) error {
	if m.Status != model.StatusPending {
		return ErrAlreadyFinalized
	}
	m.Status = model.StatusVerified
	m.UpdatedAt = now
	return nil
}

// OutcomeFor resolves a player's match outcome from their team membership.
// The second return is false when the player sits in neither lineup; the
// finalizer logs those records and skips them.
func OutcomeFor(m *model.Match, playerID string) (rating.Outcome, bool) {
	for _, id := range m.Lineups.TeamA {
		if id == playerID {
			return rating.OutcomeOf(m.Score, model.TeamA), true
		}
	}
	for _, id := range m.Lineups.TeamB {
		if id == playerID {
			return rating.OutcomeOf(m.Score, model.TeamB), true
		}
	}
	return "", false
}
