package model

import "time"

// Status is the lifecycle state of a booking.  Values are stored verbatim
// in the bookings.status column.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// ActiveStatuses lists the statuses that hold a slot.  A booking in any of
// these states blocks another booking for the same employee and instant.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed, StatusInProgress}

// ExpirableStatuses lists the statuses the sweeper moves to COMPLETED once
// the scheduled instant has passed.  IN_PROGRESS is left to staff.
var ExpirableStatuses = []Status{StatusScheduled, StatusConfirmed}

// transitions holds the allowed status changes.  Terminal statuses have no
// entry.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether a booking in status s occupies its slot.
func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Booking is one reservation of a service performed by an employee for a
// customer at a specific instant.
//
// Fields:
//  ID           – UUID assigned at creation; never changes.
//  CustomerID   – authenticated customer who made the booking.
//  ServiceID    – service being performed.
//  EmployeeID   – staff member performing the service.
//  BarbershopID – tenant that owns the employee and service.
//  ScheduledAt  – start instant, UTC, minute precision.
//  Status       – lifecycle state.
//  PriceCents   – service price copied at creation time.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last status change.
type Booking struct {
	ID           string    `json:"id"`            // bookings.id
	CustomerID   string    `json:"customer_id"`   // bookings.customer_id
	ServiceID    string    `json:"service_id"`    // bookings.service_id
	EmployeeID   string    `json:"employee_id"`   // bookings.employee_id
	BarbershopID string    `json:"barbershop_id"` // bookings.barbershop_id
	ScheduledAt  time.Time `json:"scheduled_at"`  // bookings.scheduled_at
	Status       Status    `json:"status"`        // bookings.status
	PriceCents   int64     `json:"price_cents"`   // bookings.price_cents
	CreatedAt    time.Time `json:"created_at"`    // bookings.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // bookings.updated_at
}

// SlotTime normalises an instant to the precision used for slot keys:
// UTC, truncated to the minute.
func SlotTime(t time.Time) time.Time { return t.UTC().Truncate(time.Minute) }
