package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/codevoice/internal/adapters/llm"
	scoring "github.com/okian/codevoice/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given model output", t, func() {
		Convey("When all three fields are present", func() {
			r := scoring.Parse("SCORE: 8\nREASONING: Covers reliability: mostly\nFEEDBACK: Mention flow control.")
			So(r.Score, ShouldEqual, 8)
			So(r.Reasoning, ShouldEqual, "Covers reliability: mostly")
			So(r.Feedback, ShouldEqual, "Mention flow control.")
		})

		Convey("When the score is written as a fraction with emphasis", func() {
			r := scoring.Parse("**SCORE:** 7/10\n**FEEDBACK:** Good.")
			So(r.Score, ShouldEqual, 7)
			So(r.Feedback, ShouldEqual, "Good.")
		})

		Convey("When the score is non-numeric", func() {
			So(scoring.Parse("SCORE: excellent").Score, ShouldEqual, scoring.NeutralScore)
		})

		Convey("When the score is out of range", func() {
			So(scoring.Parse("SCORE: 42").Score, ShouldEqual, scoring.NeutralScore)
			So(scoring.Parse("SCORE: -1").Score, ShouldEqual, scoring.NeutralScore)
		})

		Convey("When fields are missing", func() {
			r := scoring.Parse("I think this is fine.")
			So(r.Score, ShouldEqual, scoring.NeutralScore)
			So(r.Reasoning, ShouldBeEmpty)
			So(r.Feedback, ShouldBeEmpty)
		})

		Convey("When the boundaries are used", func() {
			So(scoring.Parse("SCORE: 0").Score, ShouldEqual, 0)
			So(scoring.Parse("SCORE: [10]").Score, ShouldEqual, 10)
		})
	})
}

func TestLLMEvaluator(t *testing.T) {
	Convey("Given an evaluator", t, func() {
		ctx := context.Background()
		var seen llm.Request
		calls := 0
		reply := "SCORE: 8\nREASONING: ok\nFEEDBACK: nice"
		var failure error
		e := scoring.NewLLMEvaluator(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
			calls++
			seen = req
			return reply, failure
		}), scoring.WithTemperature(0.3))

		in := scoring.Input{
			Question:       "What is the difference between TCP and UDP?",
			ExpectedPoints: "connection-oriented, reliability",
			Transcript:     "TCP is connection-oriented, UDP is not",
		}

		Convey("When the model answers", func() {
			r, err := e.Evaluate(ctx, in)

			Convey("Then the parsed result is returned", func() {
				So(err, ShouldBeNil)
				So(r.Score, ShouldEqual, 8)
				So(seen.Purpose, ShouldEqual, "evaluate")
				So(seen.Temperature, ShouldEqual, 0.3)
				So(seen.Prompt, ShouldContainSubstring, "connection-oriented, reliability")
				So(seen.Prompt, ShouldContainSubstring, in.Transcript)
			})
		})

		Convey("When grading a follow-up answer", func() {
			in.FollowUp = "Which one retransmits lost packets?"
			_, err := e.Evaluate(ctx, in)

			Convey("Then the follow-up is context and the rubric is unchanged", func() {
				So(err, ShouldBeNil)
				So(seen.Prompt, ShouldContainSubstring, "Follow-up asked: Which one retransmits lost packets?")
				So(seen.Prompt, ShouldContainSubstring, "connection-oriented, reliability")
			})
		})

		Convey("When the model is unavailable", func() {
			failure = llm.ErrUnavailable
			r, err := e.Evaluate(ctx, in)

			Convey("Then a well-formed degraded result comes back with the sentinel", func() {
				So(errors.Is(err, scoring.ErrEvaluationUnavailable), ShouldBeTrue)
				So(errors.Is(err, llm.ErrUnavailable), ShouldBeTrue)
				So(r.Score, ShouldEqual, 0)
				So(r.Feedback, ShouldEqual, scoring.DegradedFeedback)
			})
		})

		Convey("When the transcript is empty", func() {
			in.Transcript = "   "
			r, err := e.Evaluate(ctx, in)

			Convey("Then it scores 0 without calling the model", func() {
				So(err, ShouldBeNil)
				So(r.Score, ShouldEqual, 0)
				So(r.Feedback, ShouldEqual, scoring.EmptyFeedback)
				So(calls, ShouldEqual, 0)
			})
		})
	})
}
