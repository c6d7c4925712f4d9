package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the queue reset messages are published to.
const DefaultQueue = "ossms.password_reset"

// AMQPNotifier publishes reset messages to a durable RabbitMQ queue. A
// connection is opened per message; resets are rare.
type AMQPNotifier struct {
	URL   string
	Queue string
}

// SendPasswordReset implements the notifier contract.
func (n *AMQPNotifier) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	queue := n.Queue
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(n.URL)
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("declaring queue %s: %w", queue, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publishing to %s: %w", queue, err)
	}

	slog.Info("password reset message published", "queue", queue, "email", msg.Email)
	return nil
}
