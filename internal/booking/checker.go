package booking

import (
	"context"
	"errors"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// Checker decides whether a slot is free.  It holds no state; the answer
// is only as strong as the handle it reads through.  Inside the same
// transaction as the insert it guards, it is authoritative.  Anywhere
// else it is a hint.
type Checker struct{}

// IsAvailable reports whether no active booking occupies the employee's
// slot at the given instant.  excludeBookingID, when set, is ignored so a
// booking can be checked against everyone but itself.
func (Checker) IsAvailable(ctx context.Context, q repository.Queries, employeeID string, at time.Time, excludeBookingID string) (bool, error) {
	_, err := q.ActiveBookingAt(ctx, employeeID, at, excludeBookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
