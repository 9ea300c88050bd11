package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/codevoice/internal/adapters/llm"
	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/internal/domain/policy"
	. "github.com/smartystreets/goconvey/convey"
)

func TestActionFor(t *testing.T) {
	Convey("Given the score bands", t, func() {
		cases := map[int]model.Action{
			10: model.ActionAdvance,
			8:  model.ActionAdvance,
			7:  model.ActionAdvance,
			6:  model.ActionAdvance,
			5:  model.ActionAdvance,
			4:  model.ActionAdvance,
			3:  model.ActionFollowUp,
			2:  model.ActionFollowUp,
			0:  model.ActionFollowUp,
		}
		for score, want := range cases {
			So(policy.ActionFor(score), ShouldEqual, want)
		}
		So(policy.BandFor(7), ShouldEqual, model.BandStrong)
		So(policy.BandFor(6), ShouldEqual, model.BandPartial)
		So(policy.BandFor(4), ShouldEqual, model.BandPartial)
		So(policy.BandFor(3), ShouldEqual, model.BandWeak)
	})
}

func TestDecide(t *testing.T) {
	Convey("Given a policy", t, func() {
		ctx := context.Background()
		var seen llm.Request
		reply := "**Great** answer!\nLet's move on."
		var failure error
		p := policy.New(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
			seen = req
			return reply, failure
		}))

		Convey("When the score is strong", func() {
			d, err := p.Decide(ctx, policy.Input{Score: 8, Feedback: "nice", Question: "TCP vs UDP?"})

			Convey("Then it advances with positive framing and speakable text", func() {
				So(err, ShouldBeNil)
				So(d.Action, ShouldEqual, model.ActionAdvance)
				So(d.Band, ShouldEqual, model.BandStrong)
				So(d.Text, ShouldEqual, "Great answer! Let's move on.")
				So(seen.System, ShouldContainSubstring, "Acknowledge their answer positively")
				So(seen.Temperature, ShouldEqual, 0.7)
			})
		})

		Convey("When the score is partial", func() {
			d, err := p.Decide(ctx, policy.Input{Score: 5})
			So(err, ShouldBeNil)
			So(d.Action, ShouldEqual, model.ActionAdvance)
			So(seen.System, ShouldContainSubstring, "could be improved")
		})

		Convey("When the score is weak", func() {
			d, err := p.Decide(ctx, policy.Input{Score: 2})
			So(err, ShouldBeNil)
			So(d.Action, ShouldEqual, model.ActionFollowUp)
			So(seen.System, ShouldContainSubstring, "Provide a hint")
		})

		Convey("When follow-ups are exhausted", func() {
			d, err := p.Decide(ctx, policy.Input{Score: 2, ForceAdvance: true})
			So(err, ShouldBeNil)
			So(d.Action, ShouldEqual, model.ActionAdvance)
			So(d.Forced, ShouldBeTrue)
		})

		Convey("When the model fails on a weak score", func() {
			failure = llm.ErrUnavailable
			d, err := p.Decide(ctx, policy.Input{Score: 1})

			Convey("Then it falls back and still advances", func() {
				So(errors.Is(err, policy.ErrResponseUnavailable), ShouldBeTrue)
				So(d.Action, ShouldEqual, model.ActionAdvance)
				So(d.Text, ShouldEqual, policy.FallbackText)
			})
		})

		Convey("When the model returns only markup", func() {
			reply = "** __ **"
			d, err := p.Decide(ctx, policy.Input{Score: 9})
			So(errors.Is(err, policy.ErrResponseUnavailable), ShouldBeTrue)
			So(d.Text, ShouldEqual, policy.FallbackText)
		})
	})
}
