package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// EventPublisher hands a JSON event to the broker queue of the same name.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// AMQPPublisher publishes persistent JSON messages on the default
// exchange with routing key = queue name.  Each publish opens its own
// connection; a circuit breaker stops dialing a broker that keeps failing.
type AMQPPublisher struct {
	URL         string
	CB          *gobreaker.CircuitBreaker
	DialTimeout time.Duration
}

func NewAMQPPublisher(url string, cb *gobreaker.CircuitBreaker) *AMQPPublisher {
	return &AMQPPublisher{URL: url, CB: cb, DialTimeout: 2 * time.Second}
}

func (p *AMQPPublisher) Publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if p.CB == nil {
		return p.publish(ctx, queue, body)
	}
	_, err = p.CB.Execute(func() (interface{}, error) {
		return nil, p.publish(ctx, queue, body)
	})
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.DialTimeout)})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
