package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// ReserveRequest carries the inputs of one reservation.  CustomerID comes
// from the authenticated session and is trusted as is.
type ReserveRequest struct {
	CustomerID   string
	BarbershopID string
	ServiceID    string
	EmployeeID   string
	ScheduledAt  time.Time
}

// Coordinator creates bookings.  Every reservation runs its availability
// check, catalog lookups and insert inside one store transaction; the
// store's unique index over active slots is the final arbiter.
type Coordinator struct {
	store   repository.Store
	checker Checker
	sink    Sink
	clock   Clock
	log     *zap.Logger

	// RejectPast refuses instants earlier than the clock's now.
	RejectPast bool
}

// NewCoordinator returns a coordinator over store.  A nil sink discards
// events and a nil logger discards logs.
func NewCoordinator(store repository.Store, sink Sink, clock Clock, log *zap.Logger) *Coordinator {
	if store == nil {
		panic("nil store passed to NewCoordinator")
	}
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{store: store, sink: sink, clock: clock, log: log}
}

// Reserve books the slot (req.EmployeeID, req.ScheduledAt) for the
// customer.  Of any number of concurrent calls for the same slot at most
// one succeeds; the rest get ErrConflict.  A conflict is never retried
// here: the caller picks another slot.
func (c *Coordinator) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	req, err := c.validate(req)
	if err != nil {
		return nil, err
	}

	// Advisory pre-check: cheap early rejection, never sufficient on its own.
	free, err := c.checker.IsAvailable(ctx, c.store, req.EmployeeID, req.ScheduledAt, "")
	if err != nil {
		return nil, fromStore(err)
	}
	if !free {
		return nil, conflict("slot unavailable", nil)
	}

	now := c.clock.now()
	var created *model.Booking
	staged := false
	err = c.store.InTx(ctx, func(q repository.Queries) error {
		free, err := c.checker.IsAvailable(ctx, q, req.EmployeeID, req.ScheduledAt, "")
		if err != nil {
			return err
		}
		if !free {
			return conflict("slot just taken", nil)
		}

		emp, err := q.EmployeeInTenant(ctx, req.EmployeeID, req.BarbershopID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !emp.IsActive) {
			return notFound("employee")
		}
		if err != nil {
			return err
		}

		svc, err := q.ServiceInTenant(ctx, req.ServiceID, req.BarbershopID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !svc.IsActive) {
			return notFound("service")
		}
		if err != nil {
			return err
		}

		b := &model.Booking{
			ID:           uuid.NewString(),
			CustomerID:   req.CustomerID,
			ServiceID:    svc.ID,
			EmployeeID:   emp.ID,
			BarbershopID: req.BarbershopID,
			ScheduledAt:  req.ScheduledAt,
			Status:       model.StatusScheduled,
			PriceCents:   svc.PriceCents,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := q.InsertBooking(ctx, b); err != nil {
			return err
		}
		staged = true
		created = b
		return nil
	})
	if err != nil {
		if staged {
			err = fromCommit(err)
		} else {
			err = fromStore(err)
		}
		c.log.Info("booking: reserve rejected",
			zap.String("employee_id", req.EmployeeID),
			zap.Time("scheduled_at", req.ScheduledAt),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	c.log.Info("booking: reserved",
		zap.String("booking_id", created.ID),
		zap.String("barbershop_id", created.BarbershopID),
		zap.String("employee_id", created.EmployeeID),
		zap.Time("scheduled_at", created.ScheduledAt),
	)
	if err := c.sink.Publish(ctx, newEvent(EventBookingCreated, created, "", now)); err != nil {
		c.log.Warn("booking: event delivery failed", zap.String("booking_id", created.ID), zap.Error(err))
	}
	return created, nil
}

func (c *Coordinator) validate(req ReserveRequest) (ReserveRequest, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.BarbershopID = strings.TrimSpace(req.BarbershopID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	switch {
	case req.CustomerID == "":
		return req, validationError("customer_id is required")
	case req.BarbershopID == "":
		return req, validationError("barbershop_id is required")
	case req.ServiceID == "":
		return req, validationError("service_id is required")
	case req.EmployeeID == "":
		return req, validationError("employee_id is required")
	case req.ScheduledAt.IsZero():
		return req, validationError("scheduled_at is required")
	}
	req.ScheduledAt = model.SlotTime(req.ScheduledAt)
	if c.RejectPast && req.ScheduledAt.Before(model.SlotTime(c.clock.now())) {
		return req, validationError("scheduled_at %s is in the past", req.ScheduledAt.Format(time.RFC3339))
	}
	return req, nil
}
