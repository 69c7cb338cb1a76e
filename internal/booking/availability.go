package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// Availability is the advisory answer for one slot.
type Availability struct {
	Available            bool   `json:"available"`
	ConflictingBookingID string `json:"conflicting_booking_id,omitempty"`
	CustomerID           string `json:"customer_id,omitempty"`
}

// AvailabilityCache stores advisory answers.  Implementations may drop
// entries at any time.
type AvailabilityCache interface {
	Get(ctx context.Context, employeeID string, at time.Time) (Availability, bool)
	Set(ctx context.Context, employeeID string, at time.Time, a Availability)
}

// AvailabilityService answers slot-picker queries without a transaction.
// Its results may be stale and must never gate a write; Reserve always
// re-checks.
type AvailabilityService struct {
	store repository.Queries
	cache AvailabilityCache
}

// NewAvailabilityService returns a service reading through cache, which
// may be nil.
func NewAvailabilityService(store repository.Queries, cache AvailabilityCache) *AvailabilityService {
	return &AvailabilityService{store: store, cache: cache}
}

// CheckAvailability reports whether the slot looks free and, if not,
// which booking holds it.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, employeeID string, at time.Time) (Availability, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return Availability{}, validationError("employee_id is required")
	}
	if at.IsZero() {
		return Availability{}, validationError("scheduled_at is required")
	}
	at = model.SlotTime(at)
	if s.cache != nil {
		if a, ok := s.cache.Get(ctx, employeeID, at); ok {
			return a, nil
		}
	}
	b, err := s.store.ActiveBookingAt(ctx, employeeID, at, "")
	var a Availability
	switch {
	case errors.Is(err, repository.ErrNotFound):
		a = Availability{Available: true}
	case err != nil:
		return Availability{}, fromStore(err)
	default:
		a = Availability{ConflictingBookingID: b.ID, CustomerID: b.CustomerID}
	}
	if s.cache != nil {
		s.cache.Set(ctx, employeeID, at, a)
	}
	return a, nil
}
