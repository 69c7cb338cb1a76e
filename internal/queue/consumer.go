package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded event.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, ev BookingEvent) error

// ConsumerConfig names the queue and its bindings.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Keys     []string
	Prefetch int
}

// Consumer reads booking events and keeps reconnecting with backoff until
// its context ends.
type Consumer struct {
	cfg     ConsumerConfig
	handler Handler
	log     *zap.Logger
}

func NewConsumer(cfg ConsumerConfig, h Handler, log *zap.Logger) *Consumer {
	if len(cfg.Keys) == 0 {
		cfg.Keys = RoutingKeys
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{cfg: cfg, handler: h, log: log}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.Warn("booking-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
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
		c.log.Warn("booking-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range c.cfg.Keys {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.log.Warn("booking-consumer: set QoS failed", zap.Error(err))
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	var ev BookingEvent
	err := json.Unmarshal(d.Body, &ev)
	if err == nil {
		err = c.handler(ctx, ev)
	}
	if err != nil {
		c.log.Error("booking-consumer: handle message failed",
			zap.String("routing_key", d.RoutingKey), zap.Error(err))
		// reject without requeue so a poison message cannot spin
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FormatLine renders an event as one line of the booking log.
func FormatLine(ev BookingEvent) string {
	line := fmt.Sprintf("[%s] %s | booking_id=%s | barbershop_id=%s | employee_id=%s | customer_id=%s | scheduled_at=%s | status=%s",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, ev.BarbershopID,
		ev.EmployeeID, ev.CustomerID, ev.ScheduledAt.UTC().Format(time.RFC3339), ev.Status)
	if ev.PrevStatus != "" {
		line += " | prev_status=" + ev.PrevStatus
	}
	return line + fmt.Sprintf(" | price=%d cents\n", ev.PriceCents)
}

// FileLog appends formatted events to a file.
type FileLog struct {
	path string
	mu   sync.Mutex
}

func NewFileLog(path string) *FileLog { return &FileLog{path: path} }

// Handle implements Handler.
func (l *FileLog) Handle(_ context.Context, ev BookingEvent) error {
	if ev.BookingID == "" {
		return errors.New("event without booking_id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
