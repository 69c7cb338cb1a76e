package booking_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/database"
	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// newSQLStore opens a SQLite file the way the server does, widened to
// conns connections, and loads the shared catalog.
func newSQLStore(t *testing.T, conns int) *repository.SQLStore {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "barber.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = db.Close() })

	st := repository.NewSQLStore(db, repository.SQLite)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	for _, e := range []model.Employee{
		{ID: empID, BarbershopID: shopID, Name: "Ana", IsActive: true},
		{ID: empIdle, BarbershopID: shopID, Name: "Bruno", IsActive: false},
		{ID: empOther, BarbershopID: otherShop, Name: "Caio", IsActive: true},
	} {
		require.NoError(t, st.SaveEmployee(ctx, e))
	}
	for _, svc := range []model.Service{
		{ID: svcID, BarbershopID: shopID, Name: "Cut", PriceCents: 6000, IsActive: true},
		{ID: svcRetired, BarbershopID: shopID, Name: "Shave", PriceCents: 2500, IsActive: false},
	} {
		require.NoError(t, st.SaveService(ctx, svc))
	}
	return st
}

func TestSQLReserve_Scenarios(t *testing.T) {
	st := newSQLStore(t, 1)
	ctx := context.Background()
	c := booking.NewCoordinator(st, nil, fixedClock(slot.Add(-24*time.Hour)), nil)

	first, err := c.Reserve(ctx, request("cust-1", slot))
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, first.Status)
	assert.Equal(t, int64(6000), first.PriceCents)

	_, err = c.Reserve(ctx, request("cust-2", slot))
	assert.ErrorIs(t, err, booking.ErrConflict)

	n, err := booking.NewSweeper(st, nil, 0, nil).SweepExpired(ctx, slot.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, err := st.BookingInTenant(ctx, first.ID, shopID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)

	second, err := c.Reserve(ctx, request("cust-2", slot))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	idle := request("cust-3", slot.Add(time.Hour))
	idle.EmployeeID = empIdle
	_, err = c.Reserve(ctx, idle)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	var be *booking.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "employee", be.Entity)

	active, err := st.ActiveBookings(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}

func TestSQLReserve_SweepAtSubSecondNow(t *testing.T) {
	st := newSQLStore(t, 1)
	ctx := context.Background()
	c := booking.NewCoordinator(st, nil, fixedClock(slot.Add(-time.Hour)), nil)
	_, err := c.Reserve(ctx, request("cust-1", slot))
	require.NoError(t, err)

	n, err := booking.NewSweeper(st, nil, 0, nil).SweepExpired(ctx, slot.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLReserve_ConcurrentCallsOneWins(t *testing.T) {
	for _, conns := range []int{1, 4} {
		t.Run(fmt.Sprintf("%d connections", conns), func(t *testing.T) {
			st := newSQLStore(t, conns)
			c := booking.NewCoordinator(st, nil, fixedClock(slot.Add(-time.Hour)), nil)

			const n = 32
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
				others    []error
			)
			start := make(chan struct{})
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, err := c.Reserve(context.Background(), request(fmt.Sprintf("cust-%d", i), slot))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, booking.ErrConflict):
						conflicts++
					default:
						others = append(others, err)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, n-1, conflicts)
			assert.Empty(t, others)

			groups, err := booking.NewAuditor(st).FindConflicts(context.Background())
			require.NoError(t, err)
			assert.Empty(t, groups)
		})
	}
}
