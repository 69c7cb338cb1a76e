package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
)

// Publisher sends booking events to a durable topic exchange.  It keeps
// one connection and redials lazily after the broker drops it.
type Publisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects to url and declares exchange.
func NewPublisher(url, exchange string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{url: url, exchange: exchange, log: log}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Publish implements booking.Sink.
func (p *Publisher) Publish(ctx context.Context, ev booking.Event) error {
	body, err := json.Marshal(FromDomain(ev))
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID + ":" + string(ev.Type) + ":" + string(ev.Status),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg)
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.closeLocked()
		}
		p.log.Warn("rabbitmq: publish failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
