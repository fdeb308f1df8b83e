package app_test

import (
	"context"
	"testing"

	"github.com/diskilabs/diskirater/internal/adapters/repository"
	"github.com/diskilabs/diskirater/internal/app"
	"github.com/diskilabs/diskirater/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegisterUser(t *testing.T) {
	Convey("Given an empty league", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := app.New(store, store, store)

		first := app.RegisterUserInput{
			AuthID:    "auth-first",
			DiskiName: "Mapule",
			AreaID:    "soweto",
			Position:  "ST",
		}

		Convey("When the first person in an area registers", func() {
			res, err := svc.RegisterUser(ctx, first)

			Convey("Then they become the pioneer, auto-approved with a card", func() {
				So(err, ShouldBeNil)
				So(res.IsPioneer, ShouldBeTrue)
				So(res.User.Status, ShouldEqual, model.UserApproved)
				So(res.User.LinkedPlayerID, ShouldNotBeEmpty)

				p, err := svc.GetPlayer(ctx, res.User.LinkedPlayerID)
				So(err, ShouldBeNil)
				So(p.DiskiName, ShouldEqual, "Mapule")
				So(p.Ratings, ShouldResemble, model.NewRatings())
			})

			Convey("And the second registrant waits for approval", func() {
				res2, err := svc.RegisterUser(ctx, app.RegisterUserInput{
					AuthID:    "auth-second",
					DiskiName: "Karabo",
					AreaID:    "soweto",
				})
				So(err, ShouldBeNil)
				So(res2.IsPioneer, ShouldBeFalse)
				So(res2.User.Status, ShouldEqual, model.UserPending)
				So(res2.User.LinkedPlayerID, ShouldBeEmpty)

				Convey("And they show up in the pending queue", func() {
					pending, err := svc.ListPendingUsers(ctx)
					So(err, ShouldBeNil)
					So(len(pending), ShouldEqual, 1)
					So(pending[0].AuthID, ShouldEqual, "auth-second")
				})
			})

			Convey("And the first registrant in a different area is its own pioneer", func() {
				res2, err := svc.RegisterUser(ctx, app.RegisterUserInput{
					AuthID:    "auth-langa",
					DiskiName: "Luyanda",
					AreaID:    "langa",
				})
				So(err, ShouldBeNil)
				So(res2.IsPioneer, ShouldBeTrue)
			})

			Convey("And registering the same auth ID twice is rejected", func() {
				_, err := svc.RegisterUser(ctx, first)
				So(err, ShouldWrap, app.ErrUserExists)
			})
		})

		Convey("When required fields are missing", func() {
			_, err := svc.RegisterUser(ctx, app.RegisterUserInput{AuthID: "auth-x"})
			So(err, ShouldWrap, app.ErrValidation)
		})
	})
}

func TestApproveUser(t *testing.T) {
	Convey("Given an area with a pioneer and a pending registrant", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := app.New(store, store, store)

		_, err := svc.RegisterUser(ctx, app.RegisterUserInput{
			AuthID: "auth-pioneer", DiskiName: "Pio", AreaID: "soweto",
		})
		So(err, ShouldBeNil)
		_, err = svc.RegisterUser(ctx, app.RegisterUserInput{
			AuthID: "auth-new", DiskiName: "Newbie", AreaID: "soweto", Position: "GK",
		})
		So(err, ShouldBeNil)

		Convey("When the registrant is approved without a linked card", func() {
			u, err := svc.ApproveUser(ctx, "auth-new", "")

			Convey("Then a fresh card is created and linked", func() {
				So(err, ShouldBeNil)
				So(u.Status, ShouldEqual, model.UserApproved)
				So(u.LinkedPlayerID, ShouldNotBeEmpty)

				p, err := svc.GetPlayer(ctx, u.LinkedPlayerID)
				So(err, ShouldBeNil)
				So(p.DiskiName, ShouldEqual, "Newbie")
				So(p.Position, ShouldEqual, "GK")
				So(p.AuthID, ShouldEqual, "auth-new")
			})

			Convey("And the pending queue drains", func() {
				pending, err := svc.ListPendingUsers(ctx)
				So(err, ShouldBeNil)
				So(len(pending), ShouldEqual, 0)
			})
		})

		Convey("When an existing card is linked explicitly", func() {
			existing, err := svc.CreatePlayer(ctx, app.CreatePlayerInput{
				Name: "Veteran", Area: "soweto",
			})
			So(err, ShouldBeNil)

			u, err := svc.ApproveUser(ctx, "auth-new", existing.ID)
			So(err, ShouldBeNil)
			So(u.LinkedPlayerID, ShouldEqual, existing.ID)
		})

		Convey("When approving an unknown registrant", func() {
			_, err := svc.ApproveUser(ctx, "auth-ghost", "")
			So(err, ShouldWrap, repository.ErrUserNotFound)
		})
	})
}

func TestCreatePlayer(t *testing.T) {
	Convey("Given the roster service", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := app.New(store, store, store)

		Convey("When a card is created with minimal input", func() {
			p, err := svc.CreatePlayer(ctx, app.CreatePlayerInput{Name: "Thabo", Area: "soweto"})

			Convey("Then defaults fill the gaps", func() {
				So(err, ShouldBeNil)
				So(p.DiskiName, ShouldEqual, "Thabo")
				So(p.Role, ShouldEqual, model.RolePlayer)
				So(p.Ratings.Pace, ShouldAlmostEqual, model.DefaultRating)
				So(p.Ratings.Technical, ShouldAlmostEqual, model.DefaultRating)
				So(p.Form, ShouldBeEmpty)
			})
		})

		Convey("When the name or area is missing", func() {
			_, err := svc.CreatePlayer(ctx, app.CreatePlayerInput{Name: "NoArea"})
			So(err, ShouldWrap, app.ErrValidation)
		})
	})
}

func TestUpdatePlayer(t *testing.T) {
	Convey("Given an existing player card", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		svc := app.New(store, store, store)

		p, err := svc.CreatePlayer(ctx, app.CreatePlayerInput{Name: "Thabo", Area: "soweto"})
		So(err, ShouldBeNil)

		Convey("When a patch updates one field", func() {
			pos := "CAM"
			got, err := svc.UpdatePlayer(ctx, p.ID, app.PlayerPatch{Position: &pos})

			Convey("Then only that field changes", func() {
				So(err, ShouldBeNil)
				So(got.Position, ShouldEqual, "CAM")
				So(got.DiskiName, ShouldEqual, "Thabo")
			})
		})

		Convey("When a patch writes out-of-range ratings", func() {
			r := model.Ratings{Pace: 150, Technical: -10, Physical: 70.07, Reliability: 60}
			got, err := svc.UpdatePlayer(ctx, p.ID, app.PlayerPatch{Ratings: &r})

			Convey("Then the write is clamped and rounded", func() {
				So(err, ShouldBeNil)
				So(got.Ratings.Pace, ShouldAlmostEqual, 99)
				So(got.Ratings.Technical, ShouldAlmostEqual, 0)
				So(got.Ratings.Physical, ShouldAlmostEqual, 70.1)
				So(got.Ratings.Reliability, ShouldAlmostEqual, 60)
			})
		})

		Convey("When patching an unknown player", func() {
			_, err := svc.UpdatePlayer(ctx, "ghost", app.PlayerPatch{})
			So(err, ShouldWrap, repository.ErrPlayerNotFound)
		})
	})
}
