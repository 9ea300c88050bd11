package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	. "github.com/smartystreets/goconvey/convey"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/okian/codevoice/internal/domain/model"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	db, err := gorm.Open(gormMysql.New(gormMysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewGormStore(db), mock, mockDB
}

func TestGormStoreWrites(t *testing.T) {
	Convey("Given a gorm store over sqlmock", t, func() {
		ctx := context.Background()
		s, mock, mockDB := newMockStore(t)
		defer func() { _ = mockDB.Close() }()

		Convey("When inserting a question", func() {
			mock.ExpectExec("INSERT INTO `questions` .*").WillReturnResult(sqlmock.NewResult(1, 1))
			err := s.CreateQuestion(ctx, &model.Question{ID: "q1", Difficulty: model.Medium, Text: "TCP?"})

			Convey("Then it succeeds", func() {
				So(err, ShouldBeNil)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When a username is taken", func() {
			mock.ExpectExec("INSERT INTO `candidates` .*").
				WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			err := s.CreateCandidate(ctx, &model.Candidate{ID: "c1", Username: "u1"})

			Convey("Then ErrDuplicate is returned", func() {
				So(errors.Is(err, ErrDuplicate), ShouldBeTrue)
			})
		})

		Convey("When a turn references a missing session", func() {
			mock.ExpectExec("INSERT INTO `turns` .*").
				WillReturnError(&mysql.MySQLError{Number: 1452, Message: "foreign key"})
			err := s.AppendTurn(ctx, &model.Turn{ID: "t1", SessionID: "ghost"})

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When deleting a question", func() {
			mock.ExpectBegin()
			mock.ExpectExec("UPDATE `turns` SET .*question_id.*").WillReturnResult(sqlmock.NewResult(0, 2))
			mock.ExpectExec("DELETE FROM `questions` WHERE id = \\?").WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
			err := s.DeleteQuestion(ctx, "q1")

			Convey("Then turn references are nulled first", func() {
				So(err, ShouldBeNil)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When deleting an unknown question", func() {
			mock.ExpectBegin()
			mock.ExpectExec("UPDATE `turns` SET .*").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("DELETE FROM `questions` .*").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectRollback()
			err := s.DeleteQuestion(ctx, "nope")

			Convey("Then ErrNotFound is returned and the transaction rolls back", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When a transaction body fails", func() {
			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO `turns` .*").WillReturnError(errors.New("disk full"))
			mock.ExpectRollback()
			err := s.Transact(ctx, func(tx Store) error {
				return tx.AppendTurn(ctx, &model.Turn{ID: "t1", SessionID: "s1"})
			})

			Convey("Then it rolls back", func() {
				So(err, ShouldNotBeNil)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})
	})
}

func TestGormStoreReads(t *testing.T) {
	Convey("Given a gorm store over sqlmock", t, func() {
		ctx := context.Background()
		s, mock, mockDB := newMockStore(t)
		defer func() { _ = mockDB.Close() }()

		Convey("When the session does not exist", func() {
			mock.ExpectQuery("SELECT \\* FROM `sessions` WHERE id = \\?").
				WillReturnRows(sqlmock.NewRows([]string{"id"}))
			_, err := s.GetSession(ctx, "s1")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When locking a session", func() {
			rows := sqlmock.NewRows([]string{"id", "candidate_id", "status", "total_score"}).
				AddRow("s1", "c1", "STARTED", 8.0)
			mock.ExpectQuery("SELECT \\* FROM `sessions` WHERE id = \\? .*FOR UPDATE").WillReturnRows(rows)
			sess, err := s.LockSession(ctx, "s1")

			Convey("Then the row is read with a locking clause", func() {
				So(err, ShouldBeNil)
				So(sess.Status, ShouldEqual, model.StatusStarted)
				So(sess.TotalScore, ShouldEqual, 8.0)
			})
		})

		Convey("When listing turns", func() {
			at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
			rows := sqlmock.NewRows([]string{"id", "session_id", "score", "seq", "created_at"}).
				AddRow("t1", "s1", 8, 1, at).
				AddRow("t2", "s1", 3, 2, at)
			mock.ExpectQuery("SELECT \\* FROM `turns` WHERE session_id = \\? ORDER BY created_at ASC, seq ASC").
				WithArgs("s1").
				WillReturnRows(rows)
			turns, err := s.ListTurns(ctx, "s1")

			Convey("Then they come back in creation order", func() {
				So(err, ShouldBeNil)
				So(len(turns), ShouldEqual, 2)
				So(turns[0].ID, ShouldEqual, "t1")
				So(model.MeanScore(turns), ShouldEqual, 5.5)
			})
		})

		Convey("When filtering questions", func() {
			rows := sqlmock.NewRows([]string{"id", "topic", "difficulty", "text"}).
				AddRow("q1", "Networking", "MEDIUM", "TCP vs UDP?")
			mock.ExpectQuery("SELECT \\* FROM `questions` WHERE difficulty = \\? AND LOWER\\(topic\\) LIKE \\? AND id NOT IN \\(\\?\\)").
				WithArgs("MEDIUM", "%network%", "q9").
				WillReturnRows(rows)
			qs, err := s.ListQuestions(ctx, QuestionFilter{Difficulty: model.Medium, Topic: "Network", Exclude: []string{"q9"}})

			Convey("Then all three predicates are applied", func() {
				So(err, ShouldBeNil)
				So(len(qs), ShouldEqual, 1)
				So(qs[0].Topic, ShouldEqual, "Networking")
			})
		})
	})
}
