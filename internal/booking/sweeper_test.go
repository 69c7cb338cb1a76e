package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository/memstore"
)

func seedBooking(id string, status model.Status, at time.Time) model.Booking {
	return model.Booking{
		ID: id, CustomerID: "cust", ServiceID: svcID, EmployeeID: empID, BarbershopID: shopID,
		ScheduledAt: at, Status: status, PriceCents: 6000, CreatedAt: at.Add(-time.Hour), UpdatedAt: at.Add(-time.Hour),
	}
}

func TestSweep_CompletesPastBookingAndFreesSlot(t *testing.T) {
	st := newStore(t)
	before := slot.Add(-24 * time.Hour)
	c := booking.NewCoordinator(st, nil, fixedClock(before), nil)
	b, err := c.Reserve(context.Background(), request("cust-1", slot))
	require.NoError(t, err)

	now := slot.Add(time.Hour)
	s := booking.NewSweeper(st, nil, 0, nil)
	n, err := s.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, _ := st.Booking(b.ID)
	assert.Equal(t, model.StatusCompleted, stored.Status)

	again, err := s.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = c.Reserve(context.Background(), request("cust-2", slot))
	assert.NoError(t, err)
}

func TestSweep_OnlyExpirableStatusesBeforeNow(t *testing.T) {
	st := memstore.New()
	now := slot
	st.Seed(
		seedBooking("past-scheduled", model.StatusScheduled, now.Add(-time.Hour)),
		seedBooking("past-confirmed", model.StatusConfirmed, now.Add(-2*time.Hour)),
		seedBooking("past-in-progress", model.StatusInProgress, now.Add(-3*time.Hour)),
		seedBooking("past-cancelled", model.StatusCancelled, now.Add(-4*time.Hour)),
		seedBooking("exactly-now", model.StatusScheduled, now),
		seedBooking("future", model.StatusScheduled, now.Add(time.Hour)),
	)

	n, err := booking.NewSweeper(st, nil, 1, nil).SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := map[string]model.Status{
		"past-scheduled":   model.StatusCompleted,
		"past-confirmed":   model.StatusCompleted,
		"past-in-progress": model.StatusInProgress,
		"past-cancelled":   model.StatusCancelled,
		"exactly-now":      model.StatusScheduled,
		"future":           model.StatusScheduled,
	}
	for id, status := range want {
		b, ok := st.Booking(id)
		require.True(t, ok)
		assert.Equal(t, status, b.Status, id)
	}
}

// flakyStore fails batch updates and one specific row.
type flakyStore struct {
	*memstore.Store
	badID string
}

func (f *flakyStore) CompleteExpired(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) > 1 {
		return 0, errors.New("batch too large for this test")
	}
	if len(ids) == 1 && ids[0] == f.badID {
		return 0, errors.New("row locked")
	}
	return f.Store.CompleteExpired(ctx, ids, now)
}

func TestSweep_FallsBackToRowsAndSkipsFailures(t *testing.T) {
	st := memstore.New()
	now := slot
	for i, id := range []string{"a", "b", "c", "d"} {
		st.Seed(seedBooking(id, model.StatusScheduled, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	f := &flakyStore{Store: st, badID: "c"}

	n, err := booking.NewSweeper(f, nil, 2, nil).SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	bad, _ := st.Booking("c")
	assert.Equal(t, model.StatusScheduled, bad.Status)
	for _, id := range []string{"a", "b", "d"} {
		b, _ := st.Booking(id)
		assert.Equal(t, model.StatusCompleted, b.Status, id)
	}
}

func TestSweep_PublishesStatusChanges(t *testing.T) {
	st := memstore.New()
	now := slot
	st.Seed(
		seedBooking("past-scheduled", model.StatusScheduled, now.Add(-time.Hour)),
		seedBooking("past-confirmed", model.StatusConfirmed, now.Add(-2*time.Hour)),
		seedBooking("future", model.StatusScheduled, now.Add(time.Hour)),
	)
	rec := &recorder{}

	n, err := booking.NewSweeper(st, rec, 10, nil).SweepExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	events := rec.all()
	require.Len(t, events, 2)
	prev := map[string]model.Status{}
	for _, ev := range events {
		assert.Equal(t, booking.EventBookingStatusChanged, ev.Type)
		assert.Equal(t, model.StatusCompleted, ev.Status)
		assert.Equal(t, empID, ev.EmployeeID)
		assert.Equal(t, now, ev.OccurredAt)
		prev[ev.BookingID] = ev.PrevStatus
	}
	assert.Equal(t, map[string]model.Status{
		"past-scheduled": model.StatusScheduled,
		"past-confirmed": model.StatusConfirmed,
	}, prev)
}

func TestSweep_RowFallbackPublishesOnlyCompletedRows(t *testing.T) {
	st := memstore.New()
	now := slot
	for i, id := range []string{"a", "b", "c"} {
		st.Seed(seedBooking(id, model.StatusScheduled, now.Add(-time.Duration(i+1)*time.Hour)))
	}
	rec := &recorder{}

	n, err := booking.NewSweeper(&flakyStore{Store: st, badID: "b"}, rec, 10, nil).SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var ids []string
	for _, ev := range rec.all() {
		ids = append(ids, ev.BookingID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

// racingStore cancels one booking between the expiry query and the bulk
// update, the way a concurrent staff action would.
type racingStore struct {
	*memstore.Store
	cancelID string
}

func (r *racingStore) CompleteExpired(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if r.cancelID != "" {
		b, _ := r.Store.Booking(r.cancelID)
		if err := r.Store.UpdateStatus(ctx, r.cancelID, b.Status, model.StatusCancelled, now); err != nil {
			return 0, err
		}
		r.cancelID = ""
	}
	return r.Store.CompleteExpired(ctx, ids, now)
}

func TestSweep_PartialBatchPublishesNothing(t *testing.T) {
	st := memstore.New()
	now := slot
	st.Seed(
		seedBooking("a", model.StatusScheduled, now.Add(-time.Hour)),
		seedBooking("b", model.StatusScheduled, now.Add(-2*time.Hour)),
	)
	rec := &recorder{}

	n, err := booking.NewSweeper(&racingStore{Store: st, cancelID: "a"}, rec, 10, nil).SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, rec.all())

	a, _ := st.Booking("a")
	assert.Equal(t, model.StatusCancelled, a.Status)
}

// slowStore blocks the first sweep until released.
type slowStore struct {
	*memstore.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowStore) ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.Store.ExpiredBookings(ctx, now, limit)
}

func TestSweepRunner_SkipsOverlappingTrigger(t *testing.T) {
	st := &slowStore{Store: memstore.New(), entered: make(chan struct{}), release: make(chan struct{})}
	st.Seed(seedBooking("x", model.StatusScheduled, slot.Add(-time.Hour)))
	r := booking.NewSweepRunner(booking.NewSweeper(st, nil, 10, nil), time.Hour, fixedClock(slot), nil)

	type result struct {
		n   int
		ran bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, ran, err := r.Trigger(context.Background())
		done <- result{n, ran, err}
	}()
	<-st.entered

	n, ran, err := r.Trigger(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, n)

	close(st.release)
	first := <-done
	require.NoError(t, first.err)
	assert.True(t, first.ran)
	assert.Equal(t, 1, first.n)

	n, ran, err = r.Trigger(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Zero(t, n)
}

func TestSweepRunner_RunStopsWithContext(t *testing.T) {
	st := memstore.New()
	st.Seed(seedBooking("x", model.StatusConfirmed, slot.Add(-time.Hour)))
	r := booking.NewSweepRunner(booking.NewSweeper(st, nil, 10, nil), time.Hour, fixedClock(slot), nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		b, _ := st.Booking("x")
		return b.Status == model.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
