// Package memstore is an in-memory repository.Store.  A single mutex
// serialises transactions, and InsertBooking enforces the active-slot
// rule the same way the SQL unique index does, so the booking core
// behaves identically against it.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

type slotKey struct {
	employeeID string
	at         int64
}

type state struct {
	bookings  map[string]model.Booking
	employees map[string]model.Employee
	services  map[string]model.Service
}

func (s *state) clone() *state {
	c := &state{
		bookings:  make(map[string]model.Booking, len(s.bookings)),
		employees: s.employees,
		services:  s.services,
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: &state{
		bookings:  make(map[string]model.Booking),
		employees: make(map[string]model.Employee),
		services:  make(map[string]model.Service),
	}}
}

// PutEmployee inserts or replaces a catalog employee.
func (s *Store) PutEmployee(e model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.employees[e.ID] = e
}

// PutService inserts or replaces a catalog service.
func (s *Store) PutService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.services[svc.ID] = svc
}

// Seed stores bookings as given, bypassing the active-slot rule.  It
// exists so audits can be exercised against inconsistent data.
func (s *Store) Seed(bookings ...model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		s.st.bookings[b.ID] = b
	}
}

// Booking returns a stored booking by id.
func (s *Store) Booking(id string) (model.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.st.bookings[id]
	return b, ok
}

// Len returns the number of stored bookings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.bookings)
}

// InTx runs fn against a private copy of the bookings and publishes the
// copy only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&view{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) ActiveBookingAt(ctx context.Context, employeeID string, at time.Time, excludeID string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ActiveBookingAt(ctx, employeeID, at, excludeID)
}

func (s *Store) EmployeeInTenant(ctx context.Context, employeeID, barbershopID string) (*model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).EmployeeInTenant(ctx, employeeID, barbershopID)
}

func (s *Store) ServiceInTenant(ctx context.Context, serviceID, barbershopID string) (*model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ServiceInTenant(ctx, serviceID, barbershopID)
}

func (s *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).InsertBooking(ctx, b)
}

func (s *Store) BookingInTenant(ctx context.Context, bookingID, barbershopID string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).BookingInTenant(ctx, bookingID, barbershopID)
}

func (s *Store) UpdateStatus(ctx context.Context, bookingID string, from, to model.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{st: s.st}).UpdateStatus(ctx, bookingID, from, to, at)
}

func (s *Store) ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var expired []model.Booking
	for _, b := range s.st.bookings {
		if expirable(b, now) {
			expired = append(expired, b)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ScheduledAt.Before(expired[j].ScheduledAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (s *Store) CompleteExpired(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		b, ok := s.st.bookings[id]
		if !ok || !expirable(b, now) {
			continue
		}
		b.Status = model.StatusCompleted
		b.UpdatedAt = now.UTC()
		s.st.bookings[id] = b
		n++
	}
	return n, nil
}

func (s *Store) ActiveBookings(ctx context.Context) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.st.bookings {
		if b.Status.Active() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func expirable(b model.Booking, now time.Time) bool {
	if !b.ScheduledAt.Before(now) {
		return false
	}
	for _, st := range model.ExpirableStatuses {
		if b.Status == st {
			return true
		}
	}
	return false
}

// view implements repository.Queries over a state the caller has already
// locked.
type view struct{ st *state }

func (v *view) ActiveBookingAt(ctx context.Context, employeeID string, at time.Time, excludeID string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	at = model.SlotTime(at)
	for _, b := range v.st.bookings {
		if b.ID == excludeID || !b.Status.Active() {
			continue
		}
		if b.EmployeeID == employeeID && b.ScheduledAt.Equal(at) {
			out := b
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) EmployeeInTenant(ctx context.Context, employeeID, barbershopID string) (*model.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := v.st.employees[employeeID]
	if !ok || e.BarbershopID != barbershopID {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (v *view) ServiceInTenant(ctx context.Context, serviceID, barbershopID string) (*model.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	svc, ok := v.st.services[serviceID]
	if !ok || svc.BarbershopID != barbershopID {
		return nil, repository.ErrNotFound
	}
	return &svc, nil
}

func (v *view) InsertBooking(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := v.st.bookings[b.ID]; exists {
		return repository.ErrDuplicateSlot
	}
	if b.Status.Active() && v.slotTaken(slotKey{b.EmployeeID, b.ScheduledAt.Unix()}, b.ID) {
		return repository.ErrDuplicateSlot
	}
	v.st.bookings[b.ID] = *b
	return nil
}

func (v *view) BookingInTenant(ctx context.Context, bookingID, barbershopID string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := v.st.bookings[bookingID]
	if !ok || b.BarbershopID != barbershopID {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (v *view) UpdateStatus(ctx context.Context, bookingID string, from, to model.Status, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, ok := v.st.bookings[bookingID]
	if !ok || b.Status != from {
		return repository.ErrStaleStatus
	}
	// Same rule as the unique index.  Lifecycle never reaches it, since no
	// transition leaves a terminal status.
	if to.Active() && !from.Active() && v.slotTaken(slotKey{b.EmployeeID, b.ScheduledAt.Unix()}, b.ID) {
		return repository.ErrDuplicateSlot
	}
	b.Status = to
	b.UpdatedAt = at.UTC()
	v.st.bookings[bookingID] = b
	return nil
}

func (v *view) slotTaken(k slotKey, selfID string) bool {
	for _, b := range v.st.bookings {
		if b.ID != selfID && b.Status.Active() && b.EmployeeID == k.employeeID && b.ScheduledAt.Unix() == k.at {
			return true
		}
	}
	return false
}
