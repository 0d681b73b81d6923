package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "booking.notifications"

// AMQPNotifier publishes notifications to a RabbitMQ topic exchange with
// routing key `notify.<channel>`. A delivery worker elsewhere renders the
// template and talks to the email/SMS providers.
type AMQPNotifier struct {
	url  string
	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPNotifier(ctx context.Context, url string) (*AMQPNotifier, error) {
	n := &AMQPNotifier{url: url}

	// Brokers are often still booting when the service starts; retry with
	// capped backoff before giving up.
	delay := time.Second
	for attempt := 1; ; attempt++ {
		err := n.connect()
		if err == nil {
			return n, nil
		}
		if attempt == 10 {
			return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", attempt, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * 1.5)
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
		}
	}
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	n.ch = ch
	n.mu.Unlock()
	return nil
}

func (n *AMQPNotifier) Send(ctx context.Context, notification Notification) error {
	n.mu.RLock()
	ch := n.ch
	n.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(
		publishCtx,
		exchangeName,
		"notify."+string(notification.Channel),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

func (n *AMQPNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}
