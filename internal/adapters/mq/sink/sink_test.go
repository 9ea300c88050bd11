package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/codevoice/internal/domain/model"
	"github.com/okian/codevoice/pkg/logger"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPSink(t *testing.T) {
	Convey("Given an AMQP sink over a fake channel", t, func() {
		ch := &fakeChannel{}
		s := &AMQP{exchange: "codevoice.interview", ch: ch}
		e := model.Event{
			ID: "e1", Type: model.EventTurnRecorded, SessionID: "s1", TurnID: "t1",
			Score: 8, TotalScore: 8, Status: model.StatusStarted, At: time.Unix(0, 0),
		}

		Convey("When delivering", func() {
			err := s.Deliver(context.Background(), e)

			Convey("Then the event is published as JSON routed by type", func() {
				So(err, ShouldBeNil)
				So(ch.exchange, ShouldEqual, "codevoice.interview")
				So(ch.key, ShouldEqual, "turn.recorded")
				So(ch.msg.ContentType, ShouldEqual, "application/json")
				So(ch.msg.MessageId, ShouldEqual, "e1")

				var decoded model.Event
				So(json.Unmarshal(ch.msg.Body, &decoded), ShouldBeNil)
				So(decoded.SessionID, ShouldEqual, "s1")
				So(decoded.Score, ShouldEqual, 8)
			})
		})

		Convey("When the broker rejects the publish", func() {
			ch.err = errors.New("channel closed")
			So(s.Deliver(context.Background(), e), ShouldNotBeNil)
		})

		Convey("When closing without a connection", func() {
			So(s.Close(), ShouldBeNil)
			So(ch.closed, ShouldBeTrue)
		})
	})
}

func TestLogSink(t *testing.T) {
	Convey("Given a log sink", t, func() {
		var buf bytes.Buffer
		So(logger.Init(logger.WithOutput(&buf), logger.WithFormat("json")), ShouldBeNil)
		s := NewLog(logger.Get())

		Convey("When delivering a completion event", func() {
			err := s.Deliver(context.Background(), model.Event{
				ID: "e2", Type: model.EventSessionCompleted, SessionID: "s1", TotalScore: 5.5, Status: model.StatusCompleted,
			})

			Convey("Then a structured line is written", func() {
				So(err, ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, `"msg":"session.completed"`)
				So(buf.String(), ShouldContainSubstring, `"session_id":"s1"`)
			})
		})
	})
}
