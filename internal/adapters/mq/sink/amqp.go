package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/okian/codevoice/internal/domain/model"
)

const publishTimeout = 5 * time.Second

// publisher is the slice of *amqp.Channel the sink uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes events as JSON to a topic exchange, routed by event type.
type AMQP struct {
	exchange string
	conn     *amqp.Connection

	mu sync.Mutex
	ch publisher
}

// DialAMQP connects to url and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", exchange, err)
	}
	return &AMQP{exchange: exchange, conn: conn, ch: ch}, nil
}

// Name implements worker.Sink.
func (*AMQP) Name() string { return "amqp" }

// Deliver implements worker.Sink.
func (s *AMQP) Deliver(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: matches Sink
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.PublishWithContext(
		ctx,
		s.exchange,
		string(e.Type), // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.At,
			Body:         body,
		},
	)
}

// Close closes the channel and connection.
func (s *AMQP) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
