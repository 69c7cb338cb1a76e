package config

import "time"

// CacheConfig controls the advisory availability cache.  Entries are
// dropped on every booking event, so TTL only bounds staleness for
// changes made outside this process.
type CacheConfig struct {
	Enabled bool          `envconfig:"AVAILABILITY_CACHE_ENABLED" default:"true"`
	TTL     time.Duration `envconfig:"AVAILABILITY_CACHE_TTL" default:"30s"`
	Prefix  string        `envconfig:"AVAILABILITY_CACHE_PREFIX" default:"avail"`
}
