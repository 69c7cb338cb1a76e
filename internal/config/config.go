// Package config loads application configuration from the environment.
// An optional .env file is read first; real environment variables win.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.
type Config struct {
	Env       string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"APP_PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Sections use fully spelled-out keys and are processed one by one
	// in Load.
	DB        DBConfig        `ignored:"true"`
	Redis     RedisConfig     `ignored:"true"`
	RateLimit RateLimitConfig `ignored:"true"`
	Cache     CacheConfig     `ignored:"true"`
	Sweep     SweepConfig     `ignored:"true"`

	RabbitURL       string `envconfig:"RABBITMQ_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.events"`

	// RejectPast makes Reserve refuse instants before now.
	RejectPast bool `envconfig:"RESERVE_REJECT_PAST" default:"false"`
}

// DBConfig selects and addresses the relational store.
type DBConfig struct {
	Driver     string `envconfig:"DB_DRIVER" default:"mysql"` // mysql | sqlite
	User       string `envconfig:"DB_USER"`
	Pass       string `envconfig:"DB_PASS"`
	Host       string `envconfig:"DB_HOST" default:"127.0.0.1"`
	Port       string `envconfig:"DB_PORT" default:"3306"`
	Name       string `envconfig:"DB_NAME"`
	SQLitePath string `envconfig:"DB_SQLITE_PATH" default:"barber.db"`
}

// SweepConfig controls the expiry sweeper.
type SweepConfig struct {
	Interval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	BatchSize int           `envconfig:"SWEEP_BATCH_SIZE" default:"500"`
}

// Load reads .env (when present) and the process environment into a
// Config.  Missing required values and inconsistent settings are
// reported as one error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	for _, section := range []any{&cfg, &cfg.DB, &cfg.Redis, &cfg.RateLimit, &cfg.Cache, &cfg.Sweep} {
		if err := envconfig.Process("", section); err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.RateLimit.normalize()
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 30 * time.Second
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("config: JWT_SECRET must not be empty"))
	}
	switch c.DB.Driver {
	case "mysql":
		for _, kv := range [][2]string{{"DB_USER", c.DB.User}, {"DB_HOST", c.DB.Host}, {"DB_NAME", c.DB.Name}} {
			if kv[1] == "" {
				errs = append(errs, fmt.Errorf("config: %s is required for DB_DRIVER=mysql", kv[0]))
			}
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			errs = append(errs, errors.New("config: DB_SQLITE_PATH is required for DB_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver))
	}
	if c.Sweep.BatchSize < 1 {
		errs = append(errs, errors.New("config: SWEEP_BATCH_SIZE must be positive"))
	}
	if c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("config: SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// Production reports whether the app runs with production defaults.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}
