package consensus_test

import (
	"testing"

	"github.com/diskilabs/diskirater/internal/domain/consensus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvaluatorRequired(t *testing.T) {
	Convey("Given an evaluator with the default 75% ratio", t, func() {
		eval := consensus.NewEvaluator()

		Convey("When computing the threshold for common lineup sizes", func() {
			cases := map[int]int{
				1:  1,
				2:  2,
				4:  3,
				6:  5,
				8:  6,
				10: 8,
				11: 9,
				22: 17,
			}

			Convey("Then required is always ceil(expected * 0.75)", func() {
				for expected, want := range cases {
					So(eval.Required(expected), ShouldEqual, want)
				}
			})
		})

		Convey("When the expected count is zero or negative", func() {
			Convey("Then nothing is required", func() {
				So(eval.Required(0), ShouldEqual, 0)
				So(eval.Required(-3), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an evaluator with a custom ratio", t, func() {
		eval := consensus.NewEvaluator(consensus.WithRatio(0.5))

		Convey("Then the threshold follows the override", func() {
			So(eval.Required(10), ShouldEqual, 5)
			So(eval.Required(7), ShouldEqual, 4)
		})
	})

	Convey("Given an out-of-range ratio override", t, func() {
		eval := consensus.NewEvaluator(consensus.WithRatio(1.5))

		Convey("Then the default ratio is kept", func() {
			So(eval.Required(10), ShouldEqual, 8)
		})
	})
}

func TestEvaluatorEvaluate(t *testing.T) {
	Convey("Given a ten-player match", t, func() {
		eval := consensus.NewEvaluator()

		Convey("When seven of ten have confirmed", func() {
			p := eval.Evaluate(7, 10)

			Convey("Then consensus is one short", func() {
				So(p.Current, ShouldEqual, 7)
				So(p.Required, ShouldEqual, 8)
				So(p.Reached, ShouldBeFalse)
			})
		})

		Convey("When the eighth confirmation lands", func() {
			p := eval.Evaluate(8, 10)

			Convey("Then consensus is reached exactly at the threshold", func() {
				So(p.Reached, ShouldBeTrue)
			})
		})

		Convey("When the expected count grows after a late join", func() {
			p := eval.Evaluate(8, 12)

			Convey("Then the threshold is recomputed from the new denominator", func() {
				So(p.Required, ShouldEqual, 9)
				So(p.Reached, ShouldBeFalse)
			})
		})
	})
}
