package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository/memstore"
)

func TestFindConflicts_ReportsOnlyActiveDuplicates(t *testing.T) {
	st := memstore.New()
	dup1 := seedBooking("dup-1", model.StatusScheduled, slot)
	dup2 := seedBooking("dup-2", model.StatusConfirmed, slot)
	dup2.CreatedAt = dup1.CreatedAt.Add(time.Minute)
	cancelled := seedBooking("cancelled", model.StatusCancelled, slot)
	alone := seedBooking("alone", model.StatusScheduled, slot.Add(time.Hour))
	otherEmp := seedBooking("other-emp", model.StatusScheduled, slot)
	otherEmp.EmployeeID = "emp-2"
	st.Seed(dup1, dup2, cancelled, alone, otherEmp)

	groups, err := booking.NewAuditor(st).FindConflicts(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, empID, groups[0].EmployeeID)
	assert.True(t, slot.Equal(groups[0].ScheduledAt))
	assert.Equal(t, []string{"dup-1", "dup-2"}, groups[0].BookingIDs)
}

func TestFindConflicts_EmptyStore(t *testing.T) {
	groups, err := booking.NewAuditor(memstore.New()).FindConflicts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}
