package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return err
}

// QueueSender publishes messages to a durable RabbitMQ queue and waits for
// the broker to confirm each one.
type QueueSender struct {
	mu       sync.Mutex
	ch       *amqp.Channel
	queue    string
	confirms chan amqp.Confirmation
}

func NewQueueSender(conn *amqp.Connection, queue string) (*QueueSender, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	return &QueueSender{
		ch:       ch,
		queue:    queue,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	// Confirms arrive in publish order, so one publish is in flight at a time.
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	select {
	case c, ok := <-s.confirms:
		if !ok {
			return errors.New("confirm channel closed")
		}
		if !c.Ack {
			return fmt.Errorf("broker nacked message %s", msg.ID)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *QueueSender) Close() error {
	return s.ch.Close()
}

// Worker consumes queued messages and delivers them through an EmailSender.
type Worker struct {
	ch      *amqp.Channel
	queue   string
	sender  EmailSender
	logger  zerolog.Logger
	retries int
	backoff time.Duration
}

type WorkerConfig struct {
	Queue    string
	Prefetch int
	Retries  int
	Backoff  time.Duration
}

func NewWorker(conn *amqp.Connection, cfg WorkerConfig, sender EmailSender, logger zerolog.Logger) (*Worker, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	w := newWorker(sender, logger, cfg.Retries, cfg.Backoff)
	w.ch = ch
	w.queue = cfg.Queue
	return w, nil
}

func newWorker(sender EmailSender, logger zerolog.Logger, retries int, backoff time.Duration) *Worker {
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Worker{
		sender:  sender,
		logger:  logger.With().Str("component", "notify-worker").Logger(),
		retries: retries,
		backoff: backoff,
	}
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.ch.ConsumeWithContext(ctx, w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", w.queue, err)
	}
	w.logger.Info().Str("queue", w.queue).Msg("notify worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) Close() error {
	if w.ch == nil {
		return nil
	}
	return w.ch.Close()
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Error().Err(err).Uint64("tag", d.DeliveryTag).Msg("undecodable message dropped")
		_ = d.Nack(false, false)
		return
	}

	if err := w.deliver(ctx, msg); err != nil {
		w.logger.Error().Err(err).Str("id", msg.ID).Str("to", msg.To).Msg("email delivery failed")
		_ = d.Nack(false, false)
		return
	}
	if err := d.Ack(false); err != nil {
		w.logger.Warn().Err(err).Str("id", msg.ID).Msg("ack failed")
	}
}

func (w *Worker) deliver(ctx context.Context, msg Message) error {
	var err error
	for attempt := 1; attempt <= w.retries; attempt++ {
		if err = w.sender.Send(ctx, msg); err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Str("id", msg.ID).Int("attempt", attempt).Msg("email attempt failed")
		if attempt == w.retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", w.retries, err)
}
