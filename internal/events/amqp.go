package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig holds the RabbitMQ connection and exchange configuration for
// the event publisher.
type AMQPConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	VHost         string
	Exchange      string
	RetryAttempts int
	RetryInterval time.Duration
	Heartbeat     time.Duration
}

// AMQPPublisher publishes job events to a topic exchange. Routing keys are
// "generation.job.<status>" so consumers can bind to the transitions they
// care about.
type AMQPPublisher struct {
	config  *AMQPConfig
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewAMQPPublisher connects to RabbitMQ with retry and declares the topic
// exchange. It declares no queues; consumers bind their own.
func NewAMQPPublisher(config *AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		config: config,
		logger: logger,
	}

	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to create AMQP publisher: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		p.config.User,
		p.config.Password,
		p.config.Host,
		p.config.Port,
		p.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: p.config.Heartbeat,
		Locale:    "en_US",
	}

	attempts := p.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		p.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		p.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			break
		}

		p.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(p.config.RetryInterval)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	p.channel, err = p.conn.Channel()
	if err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	err = p.channel.ExchangeDeclare(
		p.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		p.channel.Close()
		p.conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.logger.Info("AMQP event publisher initialized",
		slog.String("exchange", p.config.Exchange),
	)
	return nil
}

// Publish sends one job transition event.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	routingKey := "generation.job." + event.Status

	err = p.channel.PublishWithContext(
		ctx,
		p.config.Exchange, // exchange
		routingKey,        // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Job event published",
		slog.String("job_id", event.JobID),
		slog.String("routing_key", routingKey),
	)
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.logger.Info("Closing AMQP event publisher")

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("Failed to close AMQP channel",
				slog.Any("error", err),
			)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Error("Failed to close AMQP connection",
				slog.Any("error", err),
			)
			return err
		}
	}
	return nil
}
