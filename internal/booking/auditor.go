package booking

import (
	"context"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// ConflictGroup is a slot held by more than one active booking.
type ConflictGroup struct {
	EmployeeID  string    `json:"employee_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	BookingIDs  []string  `json:"booking_ids"`
}

// Auditor scans for double bookings.  With a correct store the scan is
// always empty; it exists to prove that under load.
type Auditor struct {
	store repository.Store
}

func NewAuditor(store repository.Store) *Auditor { return &Auditor{store: store} }

// FindConflicts groups active bookings by (employee, instant) and returns
// every group with more than one member, ordered by employee and instant.
func (a *Auditor) FindConflicts(ctx context.Context) ([]ConflictGroup, error) {
	active, err := a.store.ActiveBookings(ctx)
	if err != nil {
		return nil, fromStore(err)
	}
	// ActiveBookings is sorted, so equal slots are adjacent.
	out := make([]ConflictGroup, 0)
	for i := 0; i < len(active); {
		j := i + 1
		for j < len(active) &&
			active[j].EmployeeID == active[i].EmployeeID &&
			active[j].ScheduledAt.Equal(active[i].ScheduledAt) {
			j++
		}
		if j-i > 1 {
			g := ConflictGroup{EmployeeID: active[i].EmployeeID, ScheduledAt: active[i].ScheduledAt}
			for _, b := range active[i:j] {
				g.BookingIDs = append(g.BookingIDs, b.ID)
			}
			out = append(out, g)
		}
		i = j
	}
	return out, nil
}
