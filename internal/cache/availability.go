// Package cache keeps advisory availability answers in Redis.  Nothing
// read from here ever gates a write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/config"
)

// Availability is a Redis-backed booking.AvailabilityCache.  A nil
// client turns every call into a miss, so callers need no special case
// when Redis is down at startup.
type Availability struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

// NewAvailability returns a cache using rdb.  It returns a cache that
// always misses when cfg disables caching or rdb is nil.
func NewAvailability(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) *Availability {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		rdb = nil
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix := strings.TrimSuffix(cfg.Prefix, ":")
	if prefix == "" {
		prefix = "avail"
	}
	return &Availability{rdb: rdb, ttl: ttl, prefix: prefix, log: log}
}

// Key returns the Redis key for one slot.
func (a *Availability) Key(employeeID string, at time.Time) string {
	return a.prefix + ":" + employeeID + ":" + at.UTC().Format("200601021504")
}

func (a *Availability) Get(ctx context.Context, employeeID string, at time.Time) (booking.Availability, bool) {
	if a.rdb == nil {
		return booking.Availability{}, false
	}
	raw, err := a.rdb.Get(ctx, a.Key(employeeID, at)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			a.log.Warn("cache: get failed", zap.String("employee_id", employeeID), zap.Error(err))
		}
		return booking.Availability{}, false
	}
	var v booking.Availability
	if err := json.Unmarshal(raw, &v); err != nil {
		return booking.Availability{}, false
	}
	return v, true
}

func (a *Availability) Set(ctx context.Context, employeeID string, at time.Time, v booking.Availability) {
	if a.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := a.rdb.Set(ctx, a.Key(employeeID, at), raw, a.ttl).Err(); err != nil {
		a.log.Warn("cache: set failed", zap.String("employee_id", employeeID), zap.Error(err))
	}
}

// Publish drops the cached answer for the event's slot.  It makes the
// cache usable as a booking.Sink.
func (a *Availability) Publish(ctx context.Context, ev booking.Event) error {
	if a.rdb == nil {
		return nil
	}
	if err := a.rdb.Del(ctx, a.Key(ev.EmployeeID, ev.ScheduledAt)).Err(); err != nil {
		return err
	}
	return nil
}
