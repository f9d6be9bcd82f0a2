package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"gaming_lounge_backend/internal/models"
)

// AMQPNotifier publishes notifications as persistent JSON messages to a
// durable RabbitMQ queue through the default exchange. The connection is
// opened lazily and re-dialled after a failure.
type AMQPNotifier struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPNotifier creates a publisher for queue on the broker at url.
func NewAMQPNotifier(url, queue string) *AMQPNotifier {
	if queue == "" {
		queue = "lounge.notifications"
	}
	return &AMQPNotifier{url: url, queue: queue}
}

func (a *AMQPNotifier) channel() (*amqp.Channel, error) {
	if a.ch != nil && !a.ch.IsClosed() {
		return a.ch, nil
	}
	a.closeLocked()

	conn, err := amqp.Dial(a.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(
		a.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	a.conn, a.ch = conn, ch
	return ch, nil
}

func (a *AMQPNotifier) Notify(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ch, err := a.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Type:         string(n.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", a.queue, false, false, pub); err != nil {
		a.closeLocked()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (a *AMQPNotifier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
	return nil
}

func (a *AMQPNotifier) closeLocked() {
	if a.ch != nil {
		_ = a.ch.Close()
		a.ch = nil
	}
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
}
