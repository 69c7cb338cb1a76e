package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository/memstore"
)

const (
	shopID     = "shop-1"
	otherShop  = "shop-2"
	empID      = "emp-1"
	empIdle    = "emp-idle"
	empOther   = "emp-other-shop"
	svcID      = "svc-cut"
	svcRetired = "svc-retired"
)

var slot = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) booking.Clock { return func() time.Time { return t } }

// recorder is a Sink that keeps every event it sees.
type recorder struct {
	mu     sync.Mutex
	events []booking.Event
}

func (r *recorder) Publish(_ context.Context, ev booking.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []booking.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]booking.Event(nil), r.events...)
}

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	st.PutEmployee(model.Employee{ID: empID, BarbershopID: shopID, Name: "Ana", IsActive: true})
	st.PutEmployee(model.Employee{ID: empIdle, BarbershopID: shopID, Name: "Bruno", IsActive: false})
	st.PutEmployee(model.Employee{ID: empOther, BarbershopID: otherShop, Name: "Caio", IsActive: true})
	st.PutService(model.Service{ID: svcID, BarbershopID: shopID, Name: "Cut", PriceCents: 6000, IsActive: true})
	st.PutService(model.Service{ID: svcRetired, BarbershopID: shopID, Name: "Shave", PriceCents: 2500, IsActive: false})
	return st
}

func request(customer string, at time.Time) booking.ReserveRequest {
	return booking.ReserveRequest{
		CustomerID:   customer,
		BarbershopID: shopID,
		ServiceID:    svcID,
		EmployeeID:   empID,
		ScheduledAt:  at,
	}
}
