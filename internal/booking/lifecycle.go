package booking

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// Lifecycle moves existing bookings through their status machine on
// behalf of barbershop staff.
type Lifecycle struct {
	store repository.Store
	sink  Sink
	clock Clock
	log   *zap.Logger
}

func NewLifecycle(store repository.Store, sink Sink, clock Clock, log *zap.Logger) *Lifecycle {
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{store: store, sink: sink, clock: clock, log: log}
}

// Get returns a booking owned by barbershopID.
func (l *Lifecycle) Get(ctx context.Context, barbershopID, bookingID string) (*model.Booking, error) {
	barbershopID, bookingID = strings.TrimSpace(barbershopID), strings.TrimSpace(bookingID)
	if barbershopID == "" || bookingID == "" {
		return nil, validationError("barbershop_id and booking_id are required")
	}
	b, err := l.store.BookingInTenant(ctx, bookingID, barbershopID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("booking")
	}
	if err != nil {
		return nil, fromStore(err)
	}
	return b, nil
}

// Transition sets the booking's status to to.  Illegal moves are
// validation errors.  A concurrent change to the same booking surfaces as
// a conflict.
func (l *Lifecycle) Transition(ctx context.Context, barbershopID, bookingID string, to model.Status) (*model.Booking, error) {
	barbershopID, bookingID = strings.TrimSpace(barbershopID), strings.TrimSpace(bookingID)
	if barbershopID == "" || bookingID == "" {
		return nil, validationError("barbershop_id and booking_id are required")
	}
	if !to.Valid() {
		return nil, validationError("unknown status %q", to)
	}

	now := l.clock.now()
	var (
		updated *model.Booking
		prev    model.Status
		staged  bool
	)
	err := l.store.InTx(ctx, func(q repository.Queries) error {
		b, err := q.BookingInTenant(ctx, bookingID, barbershopID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("booking")
		}
		if err != nil {
			return err
		}
		if !model.CanTransition(b.Status, to) {
			return validationError("cannot move booking from %s to %s", b.Status, to)
		}
		err = q.UpdateStatus(ctx, b.ID, b.Status, to, now)
		if errors.Is(err, repository.ErrStaleStatus) {
			return &Error{Kind: KindConflict, Entity: "booking", Msg: "changed concurrently", Err: err}
		}
		if err != nil {
			return err
		}
		staged = true
		prev = b.Status
		b.Status = to
		b.UpdatedAt = now
		updated = b
		return nil
	})
	if err != nil {
		if staged {
			err = fromCommit(err)
		} else {
			err = fromStore(err)
		}
		l.log.Info("booking: transition rejected",
			zap.String("booking_id", bookingID),
			zap.String("to", string(to)),
			zap.Stringer("kind", KindOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	l.log.Info("booking: status changed",
		zap.String("booking_id", updated.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(to)),
	)
	if err := l.sink.Publish(ctx, newEvent(EventBookingStatusChanged, updated, prev, now)); err != nil {
		l.log.Warn("booking: event delivery failed", zap.String("booking_id", updated.ID), zap.Error(err))
	}
	return updated, nil
}
