package booking

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// DefaultSweepBatch bounds how many bookings one conditional update
// touches.
const DefaultSweepBatch = 500

// Sweeper completes bookings whose instant has passed while they were
// still SCHEDULED or CONFIRMED.
type Sweeper struct {
	store     repository.Store
	sink      Sink
	log       *zap.Logger
	batchSize int
}

// NewSweeper returns a sweeper over store.  batchSize <= 0 selects
// DefaultSweepBatch and a nil sink discards events.
func NewSweeper(store repository.Store, sink Sink, batchSize int, log *zap.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatch
	}
	if sink == nil {
		sink = nopSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, sink: sink, log: log, batchSize: batchSize}
}

// SweepExpired moves every expirable booking scheduled before now to
// COMPLETED and returns how many changed.  Updates are conditional, so a
// second call with the same now changes nothing.  A batch whose update
// fails is retried row by row; rows that still fail are logged and
// skipped so they cannot hold back the rest.
//
// Every booking known to have changed is reported to the sink as a status
// change.  When a batch update touches fewer rows than it was given, some
// rows were changed by someone else and none of the batch is reported.
func (s *Sweeper) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	total := 0
	skipped := make(map[string]struct{})
	for {
		limit := s.batchSize + len(skipped)
		found, err := s.store.ExpiredBookings(ctx, now, limit)
		if err != nil {
			return total, fromStore(err)
		}
		batch := make([]model.Booking, 0, len(found))
		ids := make([]string, 0, len(found))
		for _, b := range found {
			if _, bad := skipped[b.ID]; !bad {
				batch = append(batch, b)
				ids = append(ids, b.ID)
			}
		}
		if len(batch) == 0 {
			break
		}

		before := len(skipped)
		var done []model.Booking
		n, err := s.store.CompleteExpired(ctx, ids, now)
		switch {
		case err != nil && ctx.Err() != nil:
			return total, fromStore(ctx.Err())
		case err != nil:
			s.log.Warn("sweeper: batch update failed, retrying rows", zap.Int("rows", len(batch)), zap.Error(err))
			n = 0
			for _, b := range batch {
				one, rowErr := s.store.CompleteExpired(ctx, []string{b.ID}, now)
				if rowErr != nil {
					s.log.Error("sweeper: row update failed", zap.String("booking_id", b.ID), zap.Error(rowErr))
					skipped[b.ID] = struct{}{}
					continue
				}
				if one == 1 {
					done = append(done, b)
				}
				n += one
			}
		case int(n) == len(batch):
			done = batch
		}
		s.publish(ctx, done, now)
		total += int(n)
		if len(found) < limit {
			break
		}
		if n == 0 && len(skipped) == before {
			// nothing moved and nothing new failed; another sweeper got there first
			break
		}
	}
	if total > 0 {
		s.log.Info("sweeper: completed expired bookings", zap.Int("count", total), zap.Time("now", now))
	}
	return total, nil
}

func (s *Sweeper) publish(ctx context.Context, done []model.Booking, now time.Time) {
	for i := range done {
		b := done[i]
		prev := b.Status
		b.Status = model.StatusCompleted
		b.UpdatedAt = now
		if err := s.sink.Publish(ctx, newEvent(EventBookingStatusChanged, &b, prev, now)); err != nil {
			s.log.Warn("sweeper: event delivery failed", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
}

// SweepRunner calls a sweeper on a fixed interval.  A tick that arrives
// while a sweep is still running is dropped, never queued.
type SweepRunner struct {
	sweeper  *Sweeper
	interval time.Duration
	clock    Clock
	log      *zap.Logger
	running  atomic.Bool
}

// NewSweepRunner returns a runner ticking every interval.
func NewSweepRunner(sweeper *Sweeper, interval time.Duration, clock Clock, log *zap.Logger) *SweepRunner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepRunner{sweeper: sweeper, interval: interval, clock: clock, log: log}
}

// Run sweeps once immediately and then on every tick until ctx ends.
func (r *SweepRunner) Run(ctx context.Context) {
	r.log.Info("sweeper: started", zap.Duration("interval", r.interval))
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("sweeper: stopped")
			return
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *SweepRunner) tick(ctx context.Context) {
	if _, ran, err := r.Trigger(ctx); err != nil {
		r.log.Error("sweeper: sweep failed", zap.Error(err))
	} else if !ran {
		r.log.Warn("sweeper: previous sweep still running, tick skipped")
	}
}

// Trigger runs one sweep unless another is in flight.  ran is false when
// the call was skipped.
func (r *SweepRunner) Trigger(ctx context.Context) (count int, ran bool, err error) {
	if !r.running.CompareAndSwap(false, true) {
		return 0, false, nil
	}
	defer r.running.Store(false)
	count, err = r.sweeper.SweepExpired(ctx, r.clock.now())
	return count, true, err
}
