package smoketest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/diskilabs/diskirater/internal/app"
	"github.com/diskilabs/diskirater/internal/domain/model"
	"github.com/diskilabs/diskirater/pkg/logger"
)

// Config controls a scenario run.
type Config struct {
	BaseURL string
	Area    string
	// PlayersPerSide is the lineup size for each team.
	PlayersPerSide int
	Timeout        time.Duration
}

// Run registers a fresh area roster, submits a match, verifies it past the
// consensus threshold, and confirms ratings moved. Returns an error on the
// first divergence from the expected flow.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get()
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.CheckHealth(ctx); err != nil {
		return err
	}
	log.Info(ctx, "service is healthy", logger.String("baseURL", cfg.BaseURL))

	area := cfg.Area
	if area == "" {
		area = "smoke-" + uuid.New().String()[:8]
	}
	total := cfg.PlayersPerSide * 2

	players, err := registerRoster(ctx, client, area, total)
	if err != nil {
		return err
	}
	log.Info(ctx, "roster registered", logger.String("area", area), logger.Int("players", total))

	m, err := submitMatch(ctx, client, area, players, cfg.PlayersPerSide)
	if err != nil {
		return err
	}
	log.Info(ctx, "match submitted", logger.String("matchID", m.ID), logger.Int("expected", m.ExpectedConfirmations))

	finalized, err := driveVerifications(ctx, client, m.ID, players)
	if err != nil {
		return err
	}
	if !finalized {
		return fmt.Errorf("match %s never finalized after all verifications", m.ID)
	}
	log.Info(ctx, "match finalized", logger.String("matchID", m.ID))

	if err := checkRatings(ctx, client, players[0].PlayerID); err != nil {
		return err
	}
	log.Info(ctx, "scenario completed successfully")
	return nil
}

type member struct {
	AuthID   string
	PlayerID string
	Name     string
}

// registerRoster registers n users in the area. The first registration is
// the pioneer and auto-approves; the pioneer then approves the rest.
func registerRoster(ctx context.Context, client *Client, area string, n int) ([]member, error) {
	members := make([]member, 0, n)
	for i := 0; i < n; i++ {
		in := app.RegisterUserInput{
			AuthID:    uuid.New().String(),
			DiskiName: fmt.Sprintf("smoke-player-%d", i),
			AreaID:    area,
			Position:  "MID",
		}
		var res app.RegisterResult
		status, err := client.Post(ctx, "/api/users", in, &res)
		if err != nil {
			return nil, err
		}
		if status != http.StatusCreated {
			return nil, fmt.Errorf("register %s returned status %d", in.DiskiName, status)
		}
		if i == 0 && !res.IsPioneer {
			return nil, fmt.Errorf("first registration in %s was not the pioneer", area)
		}

		linked := res.User.LinkedPlayerID
		if linked == "" {
			var u model.User
			status, err := client.Patch(ctx, "/api/users/approve/"+in.AuthID, map[string]string{}, &u)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("approve %s returned status %d", in.DiskiName, status)
			}
			linked = u.LinkedPlayerID
		}
		members = append(members, member{AuthID: in.AuthID, PlayerID: linked, Name: in.DiskiName})
	}
	return members, nil
}

// submitMatch posts a match for the roster. The first member submits; the
// submitter scores twice and takes MVP so a rating change is guaranteed.
func submitMatch(ctx context.Context, client *Client, area string, members []member, perSide int) (model.Match, error) {
	teamA := make([]string, 0, perSide)
	teamB := make([]string, 0, perSide)
	for i, m := range members[:perSide*2] {
		if i%2 == 0 {
			teamA = append(teamA, m.PlayerID)
		} else {
			teamB = append(teamB, m.PlayerID)
		}
	}

	in := app.CreateMatchInput{
		AreaID:      area,
		SubmittedBy: members[0].AuthID,
		Score:       model.Score{TeamA: 2, TeamB: 1},
		Lineups:     model.Lineups{TeamA: teamA, TeamB: teamB},
		Performance: []model.Performance{
			{PlayerID: members[0].PlayerID, Goals: 2, IsMVP: true},
		},
	}

	var m model.Match
	status, err := client.Post(ctx, "/api/matches", in, &m)
	if err != nil {
		return model.Match{}, err
	}
	if status != http.StatusCreated {
		return model.Match{}, fmt.Errorf("submit match returned status %d", status)
	}
	return m, nil
}

// driveVerifications verifies with each non-submitter until the service
// reports finalization.
func driveVerifications(ctx context.Context, client *Client, matchID string, members []member) (bool, error) {
	for _, m := range members[1:] {
		var res app.VerifyResult
		status, err := client.Patch(ctx, "/api/matches/"+matchID+"/verify",
			map[string]string{"identity": m.AuthID}, &res)
		if err != nil {
			return false, err
		}
		if status != http.StatusOK {
			return false, fmt.Errorf("verify by %s returned status %d", m.Name, status)
		}
		if res.Finalized {
			return true, nil
		}
	}
	return false, nil
}

// checkRatings fetches the scorer's card and confirms the match landed.
func checkRatings(ctx context.Context, client *Client, playerID string) error {
	var p model.Player
	status, err := client.Get(ctx, "/api/players/"+playerID, &p)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("get player returned status %d", status)
	}
	if p.CareerStats.MatchesPlayed == 0 {
		return fmt.Errorf("player %s has no recorded match after finalization", playerID)
	}
	if p.Ratings.Technical <= model.DefaultRating {
		return fmt.Errorf("player %s technical rating did not move: %.1f", playerID, p.Ratings.Technical)
	}
	return nil
}
