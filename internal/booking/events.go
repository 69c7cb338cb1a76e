package booking

import (
	"context"
	"errors"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
)

// EventType names a booking event.
type EventType string

const (
	EventBookingCreated       EventType = "booking.created"
	EventBookingStatusChanged EventType = "booking.status_changed"
)

// Event describes a committed change to a booking.  It is emitted after
// the transaction commits and carries enough for cache invalidation and
// notifications without another read.
type Event struct {
	Type         EventType
	BookingID    string
	BarbershopID string
	EmployeeID   string
	CustomerID   string
	ScheduledAt  time.Time
	Status       model.Status
	PrevStatus   model.Status
	PriceCents   int64
	OccurredAt   time.Time
}

func newEvent(t EventType, b *model.Booking, prev model.Status, at time.Time) Event {
	return Event{
		Type:         t,
		BookingID:    b.ID,
		BarbershopID: b.BarbershopID,
		EmployeeID:   b.EmployeeID,
		CustomerID:   b.CustomerID,
		ScheduledAt:  b.ScheduledAt,
		Status:       b.Status,
		PrevStatus:   prev,
		PriceCents:   b.PriceCents,
		OccurredAt:   at,
	}
}

// Sink receives booking events.  Delivery is best effort: a failing sink
// never undoes the committed change.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Fanout delivers each event to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) error { return nil }
