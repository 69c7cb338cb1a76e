// Package queue carries booking events over RabbitMQ.
package queue

import (
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
)

// BookingEvent is the JSON body of every message on the booking exchange.
// The routing key equals Type.
type BookingEvent struct {
	Type         string    `json:"type"`
	BookingID    string    `json:"booking_id"`
	BarbershopID string    `json:"barbershop_id"`
	EmployeeID   string    `json:"employee_id"`
	CustomerID   string    `json:"customer_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       string    `json:"status"`
	PrevStatus   string    `json:"prev_status,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// FromDomain converts a core event into its wire form.
func FromDomain(ev booking.Event) BookingEvent {
	return BookingEvent{
		Type:         string(ev.Type),
		BookingID:    ev.BookingID,
		BarbershopID: ev.BarbershopID,
		EmployeeID:   ev.EmployeeID,
		CustomerID:   ev.CustomerID,
		ScheduledAt:  ev.ScheduledAt.UTC(),
		Status:       string(ev.Status),
		PrevStatus:   string(ev.PrevStatus),
		PriceCents:   ev.PriceCents,
		OccurredAt:   ev.OccurredAt.UTC(),
	}
}

// RoutingKeys lists every key the publisher emits.
var RoutingKeys = []string{
	string(booking.EventBookingCreated),
	string(booking.EventBookingStatusChanged),
}
