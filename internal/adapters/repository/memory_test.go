package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/codevoice/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr[T any](v T) *T { return &v }

func TestMemoryStoreQuestions(t *testing.T) {
	Convey("Given a memory store with questions", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		So(s.CreateQuestion(ctx, &model.Question{ID: "q1", Topic: "Networking", Difficulty: model.Medium, Text: "TCP vs UDP?"}), ShouldBeNil)
		So(s.CreateQuestion(ctx, &model.Question{ID: "q2", Topic: "Go concurrency", Difficulty: model.Hard, Text: "Channels?"}), ShouldBeNil)
		So(s.CreateQuestion(ctx, &model.Question{ID: "q3", Topic: "networking basics", Difficulty: model.Medium, Text: "OSI?"}), ShouldBeNil)

		Convey("When filtering by difficulty and topic", func() {
			qs, err := s.ListQuestions(ctx, QuestionFilter{Difficulty: model.Medium, Topic: "NETWORK"})
			So(err, ShouldBeNil)
			So(len(qs), ShouldEqual, 2)
		})

		Convey("When excluding ids", func() {
			qs, err := s.ListQuestions(ctx, QuestionFilter{Difficulty: model.Medium, Exclude: []string{"q1"}})
			So(err, ShouldBeNil)
			So(len(qs), ShouldEqual, 1)
			So(qs[0].ID, ShouldEqual, "q3")
		})

		Convey("When adding a duplicate id", func() {
			err := s.CreateQuestion(ctx, &model.Question{ID: "q1"})
			So(errors.Is(err, ErrDuplicate), ShouldBeTrue)
		})

		Convey("When deleting a question referenced by a turn", func() {
			So(s.CreateCandidate(ctx, &model.Candidate{ID: "c1", Username: "u1"}), ShouldBeNil)
			So(s.CreateSession(ctx, &model.Session{ID: "s1", CandidateID: "c1", Status: model.StatusStarted}), ShouldBeNil)
			So(s.AppendTurn(ctx, &model.Turn{ID: "t1", SessionID: "s1", QuestionID: ptr("q1"), Score: 8}), ShouldBeNil)

			So(s.DeleteQuestion(ctx, "q1"), ShouldBeNil)

			Convey("Then the turn survives with a null reference", func() {
				turns, err := s.ListTurns(ctx, "s1")
				So(err, ShouldBeNil)
				So(len(turns), ShouldEqual, 1)
				So(turns[0].QuestionID, ShouldBeNil)
				n, _ := s.CountQuestions(ctx)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When deleting an unknown question", func() {
			So(errors.Is(s.DeleteQuestion(ctx, "nope"), ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryStoreSessions(t *testing.T) {
	Convey("Given a memory store with a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
		s := NewMemoryStore(WithClock(func() time.Time { return now }))

		Convey("When creating a session for an unknown candidate", func() {
			err := s.CreateSession(ctx, &model.Session{ID: "s1", CandidateID: "ghost"})
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When turns share a timestamp", func() {
			So(s.CreateCandidate(ctx, &model.Candidate{ID: "c1", Username: "u1"}), ShouldBeNil)
			So(s.CreateSession(ctx, &model.Session{ID: "s1", CandidateID: "c1", Status: model.StatusStarted}), ShouldBeNil)
			So(s.AppendTurn(ctx, &model.Turn{ID: "b", SessionID: "s1", Seq: 2}), ShouldBeNil)
			So(s.AppendTurn(ctx, &model.Turn{ID: "a", SessionID: "s1", Seq: 1}), ShouldBeNil)

			Convey("Then Seq breaks the tie", func() {
				turns, err := s.ListTurns(ctx, "s1")
				So(err, ShouldBeNil)
				So(turns[0].ID, ShouldEqual, "a")
				So(turns[1].ID, ShouldEqual, "b")
				So(turns[0].CreatedAt, ShouldEqual, now)
			})
		})

		Convey("When updating inside a transaction", func() {
			So(s.CreateCandidate(ctx, &model.Candidate{ID: "c1", Username: "u1"}), ShouldBeNil)
			So(s.CreateSession(ctx, &model.Session{ID: "s1", CandidateID: "c1", Status: model.StatusStarted}), ShouldBeNil)

			err := s.Transact(ctx, func(tx Store) error {
				sess, err := tx.LockSession(ctx, "s1")
				if err != nil {
					return err
				}
				sess.TotalScore = 8
				return tx.UpdateSession(ctx, &sess)
			})

			Convey("Then the change is visible", func() {
				So(err, ShouldBeNil)
				sess, err := s.GetSession(ctx, "s1")
				So(err, ShouldBeNil)
				So(sess.TotalScore, ShouldEqual, 8)
			})
		})

		Convey("When usernames collide", func() {
			So(s.CreateCandidate(ctx, &model.Candidate{ID: "c1", Username: "u1"}), ShouldBeNil)
			err := s.CreateCandidate(ctx, &model.Candidate{ID: "c2", Username: "u1"})
			So(errors.Is(err, ErrDuplicate), ShouldBeTrue)

			c, err := s.FindCandidateByUsername(ctx, "u1")
			So(err, ShouldBeNil)
			So(c.ID, ShouldEqual, "c1")
		})

		Convey("When listing turns of an unknown session", func() {
			_, err := s.ListTurns(ctx, "nope")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})
}
