package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/diskilabs/diskirater/internal/adapters/repository"
	"github.com/diskilabs/diskirater/internal/app"
	"github.com/diskilabs/diskirater/internal/domain/match"
	"github.com/diskilabs/diskirater/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// seedArea creates n approved members with player cards in the area.
// Member i has auth ID "auth-i" and player ID "p-i".
func seedArea(ctx context.Context, store *repository.MemStore, area string, n int) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		authID := fmt.Sprintf("auth-%d", i)
		playerID := fmt.Sprintf("p-%d", i)
		_ = store.CreateUser(ctx, model.User{
			AuthID:         authID,
			DiskiName:      fmt.Sprintf("player-%d", i),
			AreaID:         area,
			Status:         model.UserApproved,
			LinkedPlayerID: playerID,
			CreatedAt:      base,
		})
		_ = store.CreatePlayer(ctx, model.Player{
			ID:        playerID,
			AuthID:    authID,
			Name:      fmt.Sprintf("player-%d", i),
			DiskiName: fmt.Sprintf("player-%d", i),
			Area:      area,
			Ratings:   model.NewRatings(),
			Form:      []string{},
			CreatedAt: base,
		})
	}
}

func twoVsTwo(submitter string) app.CreateMatchInput {
	return app.CreateMatchInput{
		AreaID:      "soweto",
		SubmittedBy: submitter,
		Score:       model.Score{TeamA: 2, TeamB: 1},
		Lineups: model.Lineups{
			TeamA: []string{"p-0", "p-1"},
			TeamB: []string{"p-2", "p-3"},
		},
		Performance: []model.Performance{
			{PlayerID: "p-0", Goals: 2, IsMVP: true},
			{PlayerID: "p-2", Goals: 1},
		},
	}
}

func TestCreateMatch(t *testing.T) {
	Convey("Given an area with four approved members", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seedArea(ctx, store, "soweto", 4)
		svc := app.New(store, store, store)

		Convey("When an approved member submits a match", func() {
			m, err := svc.CreateMatch(ctx, twoVsTwo("auth-0"))

			Convey("Then the match opens Pending with the submitter verified", func() {
				So(err, ShouldBeNil)
				So(m.Status, ShouldEqual, model.StatusPending)
				So(m.Verifications, ShouldResemble, []string{"auth-0"})
				So(m.ExpectedConfirmations, ShouldEqual, 4)
			})

			Convey("And it is readable with resolved lineups", func() {
				detail, err := svc.GetMatch(ctx, m.ID)
				So(err, ShouldBeNil)
				So(len(detail.TeamA), ShouldEqual, 2)
				So(detail.TeamA[0].DiskiName, ShouldEqual, "player-0")
			})
		})

		Convey("When a stranger submits a match", func() {
			_, err := svc.CreateMatch(ctx, twoVsTwo("auth-ghost"))
			So(err, ShouldWrap, app.ErrNotApproved)
		})

		Convey("When a pending registrant submits a match", func() {
			_ = store.CreateUser(ctx, model.User{AuthID: "auth-waiting", AreaID: "soweto", Status: model.UserPending})
			_, err := svc.CreateMatch(ctx, twoVsTwo("auth-waiting"))
			So(err, ShouldWrap, app.ErrNotApproved)
		})

		Convey("When the submission itself is invalid", func() {
			in := twoVsTwo("auth-0")
			in.Lineups.TeamB = nil
			_, err := svc.CreateMatch(ctx, in)
			So(err, ShouldWrap, match.ErrValidation)
		})
	})
}

func TestRecordVerification(t *testing.T) {
	Convey("Given a pending 2v2 match", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seedArea(ctx, store, "soweto", 4)
		svc := app.New(store, store, store)

		m, err := svc.CreateMatch(ctx, twoVsTwo("auth-0"))
		So(err, ShouldBeNil)

		Convey("When the second member confirms", func() {
			res, err := svc.RecordVerification(ctx, m.ID, "auth-1")

			Convey("Then progress advances without finalizing", func() {
				So(err, ShouldBeNil)
				So(res.Progress.Current, ShouldEqual, 2)
				So(res.Progress.Required, ShouldEqual, 3)
				So(res.Finalized, ShouldBeFalse)
			})

			Convey("And a repeat confirmation is a no-op", func() {
				again, err := svc.RecordVerification(ctx, m.ID, "auth-1")
				So(err, ShouldBeNil)
				So(again.Progress.Current, ShouldEqual, 2)
				So(again.Finalized, ShouldBeFalse)
			})

			Convey("And the third confirmation crosses the threshold", func() {
				res, err := svc.RecordVerification(ctx, m.ID, "auth-2")
				So(err, ShouldBeNil)
				So(res.Finalized, ShouldBeTrue)
				So(res.Match.Status, ShouldEqual, model.StatusVerified)

				Convey("Then the scorer's ratings and stats are committed", func() {
					p, err := svc.GetPlayer(ctx, "p-0")
					So(err, ShouldBeNil)
					So(p.Ratings.Technical, ShouldAlmostEqual, 55.0)
					So(p.CareerStats.Goals, ShouldEqual, 2)
					So(p.CareerStats.Wins, ShouldEqual, 1)
					So(p.CareerStats.MVPs, ShouldEqual, 1)
					So(p.Form, ShouldResemble, []string{"W"})
				})

				Convey("And the losing scorer records a loss", func() {
					p, err := svc.GetPlayer(ctx, "p-2")
					So(err, ShouldBeNil)
					So(p.CareerStats.Losses, ShouldEqual, 1)
					So(p.Form, ShouldResemble, []string{"L"})
				})

				Convey("And further confirmations are rejected", func() {
					_, err := svc.RecordVerification(ctx, m.ID, "auth-3")
					So(err, ShouldWrap, match.ErrAlreadyFinalized)
				})

				Convey("And players without a performance record are untouched", func() {
					p, err := svc.GetPlayer(ctx, "p-1")
					So(err, ShouldBeNil)
					So(p.CareerStats.MatchesPlayed, ShouldEqual, 0)
				})
			})
		})

		Convey("When verifying an unknown match", func() {
			_, err := svc.RecordVerification(ctx, "nope", "auth-1")
			So(err, ShouldWrap, repository.ErrMatchNotFound)
		})
	})
}

func TestConcurrentVerification(t *testing.T) {
	Convey("Given a pending match with many racing confirmations", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seedArea(ctx, store, "soweto", 10)
		svc := app.New(store, store, store)

		in := app.CreateMatchInput{
			AreaID:      "soweto",
			SubmittedBy: "auth-0",
			Score:       model.Score{TeamA: 1, TeamB: 0},
			Lineups: model.Lineups{
				TeamA: []string{"p-0", "p-1", "p-2", "p-3", "p-4"},
				TeamB: []string{"p-5", "p-6", "p-7", "p-8", "p-9"},
			},
			Performance: []model.Performance{{PlayerID: "p-0", Goals: 1}},
		}
		m, err := svc.CreateMatch(ctx, in)
		So(err, ShouldBeNil)

		Convey("When all nine remaining members verify concurrently", func() {
			var wg sync.WaitGroup
			for i := 1; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = svc.RecordVerification(ctx, m.ID, fmt.Sprintf("auth-%d", i))
				}(i)
			}
			wg.Wait()

			Convey("Then the match ends Verified", func() {
				stored, err := store.GetMatch(ctx, m.ID)
				So(err, ShouldBeNil)
				So(stored.Status, ShouldEqual, model.StatusVerified)
			})

			Convey("And the finalization batch ran exactly once", func() {
				p, err := svc.GetPlayer(ctx, "p-0")
				So(err, ShouldBeNil)
				So(p.CareerStats.MatchesPlayed, ShouldEqual, 1)
				So(p.CareerStats.Goals, ShouldEqual, 1)
			})
		})
	})
}

func TestJoinMatch(t *testing.T) {
	Convey("Given a pending 2v1 pickup match", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seedArea(ctx, store, "soweto", 5)
		svc := app.New(store, store, store)

		in := app.CreateMatchInput{
			AreaID:      "soweto",
			SubmittedBy: "auth-0",
			Score:       model.Score{TeamA: 3, TeamB: 2},
			Lineups: model.Lineups{
				TeamA: []string{"p-0", "p-1"},
				TeamB: []string{"p-2"},
			},
			Performance: []model.Performance{{PlayerID: "p-0", Goals: 3}},
		}
		m, err := svc.CreateMatch(ctx, in)
		So(err, ShouldBeNil)
		So(m.ExpectedConfirmations, ShouldEqual, 3)

		Convey("When a late player joins team B", func() {
			res, err := svc.JoinMatch(ctx, m.ID, "auth-3", model.TeamB)

			Convey("Then the lineup and expectation both grow", func() {
				So(err, ShouldBeNil)
				So(res.Match.Lineups.TeamB, ShouldContain, "p-3")
				So(res.Match.ExpectedConfirmations, ShouldEqual, 4)
				So(res.Match.Verifications, ShouldContain, "auth-3")
			})

			Convey("And their own confirmation counts toward consensus", func() {
				So(res.Progress.Current, ShouldEqual, 2)
				So(res.Progress.Required, ShouldEqual, 3)
				So(res.Finalized, ShouldBeFalse)
			})
		})

		Convey("When a join pushes the count over the threshold", func() {
			_, err := svc.RecordVerification(ctx, m.ID, "auth-1")
			So(err, ShouldBeNil)

			res, err := svc.JoinMatch(ctx, m.ID, "auth-3", model.TeamB)

			Convey("Then finalization runs on the join call itself", func() {
				So(err, ShouldBeNil)
				So(res.Finalized, ShouldBeTrue)
				So(res.Match.Status, ShouldEqual, model.StatusVerified)
			})

			Convey("And the joiner records the match with zeroed performance", func() {
				p, err := svc.GetPlayer(ctx, "p-3")
				So(err, ShouldBeNil)
				So(p.CareerStats.MatchesPlayed, ShouldEqual, 1)
				So(p.CareerStats.Goals, ShouldEqual, 0)
				So(p.CareerStats.Losses, ShouldEqual, 1)
			})

			Convey("And later joins are rejected as locked", func() {
				_, err := svc.JoinMatch(ctx, m.ID, "auth-4", model.TeamA)
				So(err, ShouldWrap, match.ErrMatchLocked)
			})
		})

		Convey("When a lineup member tries to join again", func() {
			_, err := svc.JoinMatch(ctx, m.ID, "auth-2", model.TeamA)
			So(err, ShouldWrap, match.ErrDuplicateParticipant)
		})

		Convey("When the joiner has no player card", func() {
			_, err := svc.JoinMatch(ctx, m.ID, "auth-ghost", model.TeamB)
			So(err, ShouldWrap, repository.ErrPlayerNotFound)
		})

		Convey("When the team name is invalid", func() {
			_, err := svc.JoinMatch(ctx, m.ID, "auth-3", model.Team("teamX"))
			So(err, ShouldWrap, match.ErrInvalidTeam)
		})
	})
}

func TestFinalizeSkipsBrokenRecords(t *testing.T) {
	Convey("Given a match whose scorer's player document disappeared", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seedArea(ctx, store, "soweto", 4)
		svc := app.New(store, store, store)

		// p-ghost sits in the lineup but has no player document.
		in := app.CreateMatchInput{
			AreaID:      "soweto",
			SubmittedBy: "auth-0",
			Score:       model.Score{TeamA: 1, TeamB: 0},
			Lineups: model.Lineups{
				TeamA: []string{"p-0", "p-ghost"},
				TeamB: []string{"p-2", "p-3"},
			},
			Performance: []model.Performance{
				{PlayerID: "p-0", Goals: 1},
				{PlayerID: "p-ghost", Assists: 1},
			},
		}
		m, err := svc.CreateMatch(ctx, in)
		So(err, ShouldBeNil)

		Convey("When consensus is reached", func() {
			_, err := svc.RecordVerification(ctx, m.ID, "auth-1")
			So(err, ShouldBeNil)
			res, err := svc.RecordVerification(ctx, m.ID, "auth-2")
			So(err, ShouldBeNil)
			So(res.Finalized, ShouldBeTrue)

			Convey("Then the broken record is skipped and the rest commit", func() {
				p, err := svc.GetPlayer(ctx, "p-0")
				So(err, ShouldBeNil)
				So(p.CareerStats.MatchesPlayed, ShouldEqual, 1)
			})
		})
	})
}

func TestListMatches(t *testing.T) {
	Convey("Given matches across two areas", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		seedArea(ctx, store, "soweto", 4)
		seedArea2 := func() {
			_ = store.CreateUser(ctx, model.User{AuthID: "auth-l0", AreaID: "langa", Status: model.UserApproved})
			_ = store.CreatePlayer(ctx, model.Player{ID: "pl-0", AuthID: "auth-l0", Area: "langa", Ratings: model.NewRatings()})
			_ = store.CreatePlayer(ctx, model.Player{ID: "pl-1", Area: "langa", Ratings: model.NewRatings()})
		}
		seedArea2()

		tick := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc := app.New(store, store, store, app.WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}))

		first, err := svc.CreateMatch(ctx, twoVsTwo("auth-0"))
		So(err, ShouldBeNil)
		second, err := svc.CreateMatch(ctx, twoVsTwo("auth-0"))
		So(err, ShouldBeNil)

		langaIn := app.CreateMatchInput{
			AreaID:      "langa",
			SubmittedBy: "auth-l0",
			Score:       model.Score{},
			Lineups:     model.Lineups{TeamA: []string{"pl-0"}, TeamB: []string{"pl-1"}},
		}
		_, err = svc.CreateMatch(ctx, langaIn)
		So(err, ShouldBeNil)

		Convey("When listing pending matches for one area", func() {
			pending, err := svc.ListPendingMatches(ctx, "soweto")

			Convey("Then only that area returns, oldest first", func() {
				So(err, ShouldBeNil)
				So(len(pending), ShouldEqual, 2)
				So(pending[0].ID, ShouldEqual, first.ID)
				So(pending[1].ID, ShouldEqual, second.ID)
			})
		})

		Convey("When listing area history", func() {
			all, err := svc.ListAreaMatches(ctx, "Soweto")

			Convey("Then the lookup is case-insensitive and newest first", func() {
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
				So(all[0].ID, ShouldEqual, second.ID)
			})
		})
	})
}
