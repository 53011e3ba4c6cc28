package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer listens to the link and registration queues and appends
// one line per event to <Dir>/linking.log.
type AuditConsumer struct {
	URL string
	Dir string
	Log *zap.Logger
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff (capped at 30s) when the connection drops.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("audit consumer: consume loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}

	linked, err := c.subscribe(ch, ParentLinkedQueue)
	if err != nil {
		return err
	}
	registered, err := c.subscribe(ch, AccountRegisteredQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-linked:
		case d, ok = <-registered:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		line, err := FormatAuditLine(d.RoutingKey, d.Body)
		if err == nil {
			err = c.appendLine(line)
		}
		if err != nil {
			c.Log.Error("audit consumer: handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *AuditConsumer) subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (c *AuditConsumer) appendLine(line string) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, "linking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders one event body as a single human-readable
// line, newline included.
func FormatAuditLine(queue string, body []byte) (string, error) {
	switch queue {
	case ParentLinkedQueue:
		var ev ParentLinkedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Parent linked | child_id=%s | child=%q | account_id=%s | class_id=%s | trigger=%s\n",
			ev.LinkedAt, ev.ChildID, ev.ChildName, ev.AccountID, ev.ClassID, ev.Trigger), nil
	case AccountRegisteredQueue:
		var ev AccountRegisteredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		linked := "-"
		if ev.LinkedChild != "" {
			linked = ev.LinkedChild
		}
		return fmt.Sprintf("[%s] Account registered | account_id=%s | username=%q | role=%s | class_id=%s | linked_child=%s\n",
			ev.RegisteredAt, ev.AccountID, ev.Username, ev.Role, ev.ClassID, linked), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
