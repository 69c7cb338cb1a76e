package repository

import (
	"context"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
)

// Queries is the set of reads and writes the booking core performs.  The
// same interface is served both outside and inside a transaction, so the
// availability check and the insert it guards can share one handle.
type Queries interface {
	// ActiveBookingAt returns the active booking occupying the slot, or
	// ErrNotFound.  A non-empty excludeID skips that booking.
	ActiveBookingAt(ctx context.Context, employeeID string, at time.Time, excludeID string) (*model.Booking, error)
	// EmployeeInTenant loads an employee scoped to a barbershop.
	EmployeeInTenant(ctx context.Context, employeeID, barbershopID string) (*model.Employee, error)
	// ServiceInTenant loads a service scoped to a barbershop.
	ServiceInTenant(ctx context.Context, serviceID, barbershopID string) (*model.Service, error)
	// InsertBooking stores a new booking.  ErrDuplicateSlot is returned
	// when the slot already holds an active booking.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// BookingInTenant loads a booking scoped to a barbershop.
	BookingInTenant(ctx context.Context, bookingID, barbershopID string) (*model.Booking, error)
	// UpdateStatus moves a booking from one status to another.  It
	// returns ErrStaleStatus when the stored status is not from.
	UpdateStatus(ctx context.Context, bookingID string, from, to model.Status, at time.Time) error
}

// Store is the persistence gateway.  It is passed to the booking core as
// an explicit dependency.
type Store interface {
	Queries
	// InTx runs fn inside one transaction with the strongest isolation the
	// backend offers.  The transaction commits when fn returns nil and
	// rolls back otherwise.  Commit failures are classified like any other
	// store error.
	InTx(ctx context.Context, fn func(q Queries) error) error
	// ExpiredBookings lists up to limit bookings whose status is in
	// model.ExpirableStatuses and whose scheduled instant is before now,
	// oldest first.
	ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
	// CompleteExpired sets COMPLETED on the given bookings that still
	// match the expiry condition and returns how many rows changed.
	CompleteExpired(ctx context.Context, ids []string, now time.Time) (int64, error)
	// ActiveBookings returns every booking in an active status ordered by
	// employee and instant.
	ActiveBookings(ctx context.Context) ([]model.Booking, error)
}
