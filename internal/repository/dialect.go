package repository

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Dialect captures what differs between the SQL backends the store runs
// on: schema, isolation level, time encoding, upsert syntax and the
// mapping from driver error codes to repository sentinels.
type Dialect struct {
	Name           string
	Schema         []string
	Isolation      sql.IsolationLevel
	UpsertEmployee string
	UpsertService  string
	timeArg        func(time.Time) any
	classify       func(error) error

	// inTx, when set, reclassifies errors raised inside a transaction.
	inTx func(error) error
}

// MySQL error numbers the store reacts to.
const (
	mysqlDupEntry        = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlTooManyConns    = 1040
	mysqlServerShutdown  = 1053
)

// MySQL stores instants as DATETIME in UTC (the DSN sets loc=UTC).  MySQL
// has no partial indexes, so the active-slot rule is a unique key over a
// generated column that is 1 for active rows and NULL otherwise; NULLs
// never collide.
var MySQL = &Dialect{
	Name: "mysql",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			barbershop_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			KEY idx_employees_barbershop (barbershop_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS services (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			barbershop_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			KEY idx_services_barbershop (barbershop_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id CHAR(36) NOT NULL PRIMARY KEY,
			customer_id VARCHAR(64) NOT NULL,
			service_id VARCHAR(64) NOT NULL,
			employee_id VARCHAR(64) NOT NULL,
			barbershop_id VARCHAR(64) NOT NULL,
			scheduled_at DATETIME NOT NULL,
			status ENUM('SCHEDULED','CONFIRMED','IN_PROGRESS','COMPLETED','CANCELLED') NOT NULL,
			price_cents BIGINT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			active_slot TINYINT GENERATED ALWAYS AS (IF(status IN ('SCHEDULED','CONFIRMED','IN_PROGRESS'), 1, NULL)) STORED,
			UNIQUE KEY uq_bookings_active_slot (employee_id, scheduled_at, active_slot),
			KEY idx_bookings_status_scheduled (status, scheduled_at),
			KEY idx_bookings_barbershop (barbershop_id, scheduled_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	Isolation: sql.LevelSerializable,
	UpsertEmployee: `INSERT INTO employees (id, barbershop_id, name, is_active) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE barbershop_id = VALUES(barbershop_id), name = VALUES(name), is_active = VALUES(is_active)`,
	UpsertService: `INSERT INTO services (id, barbershop_id, name, price_cents, is_active) VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE barbershop_id = VALUES(barbershop_id), name = VALUES(name), price_cents = VALUES(price_cents), is_active = VALUES(is_active)`,
	timeArg:  func(t time.Time) any { return t.UTC() },
	classify: classifyMySQL,
}

// SQLite stores instants as unix seconds and enforces the active-slot
// rule with a partial unique index.  Lock contention inside a transaction
// means another writer holds the database, so it is a lost race rather
// than an outage.
var SQLite = &Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id TEXT NOT NULL PRIMARY KEY,
			barbershop_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id TEXT NOT NULL PRIMARY KEY,
			barbershop_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			price_cents INTEGER NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT NOT NULL PRIMARY KEY,
			customer_id TEXT NOT NULL,
			service_id TEXT NOT NULL,
			employee_id TEXT NOT NULL,
			barbershop_id TEXT NOT NULL,
			scheduled_at INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('SCHEDULED','CONFIRMED','IN_PROGRESS','COMPLETED','CANCELLED')),
			price_cents INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active_slot
			ON bookings (employee_id, scheduled_at)
			WHERE status IN ('SCHEDULED','CONFIRMED','IN_PROGRESS')`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status_scheduled ON bookings (status, scheduled_at)`,
	},
	Isolation: sql.LevelDefault,
	UpsertEmployee: `INSERT INTO employees (id, barbershop_id, name, is_active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET barbershop_id = excluded.barbershop_id, name = excluded.name, is_active = excluded.is_active`,
	UpsertService: `INSERT INTO services (id, barbershop_id, name, price_cents, is_active) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET barbershop_id = excluded.barbershop_id, name = excluded.name, price_cents = excluded.price_cents, is_active = excluded.is_active`,
	timeArg:  func(t time.Time) any { return t.UTC().Unix() },
	classify: classifySQLite,
	inTx:     contentionSQLite,
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (*Dialect, error) {
	switch name {
	case "mysql":
		return MySQL, nil
	case "sqlite":
		return SQLite, nil
	}
	return nil, fmt.Errorf("unknown sql dialect %q", name)
}

func classifyMySQL(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%w: %w", ErrDuplicateSlot, err)
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %w", ErrSerialization, err)
		case mysqlTooManyConns, mysqlServerShutdown:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return classifyConn(err)
}

// SQLite result codes, primary and extended.
const (
	sqliteBusy                 = 5
	sqliteLocked               = 6
	sqliteBusySnapshot         = 517
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

func classifySQLite(err error) error {
	if err == nil {
		return nil
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		code := coded.Code()
		switch {
		case code == sqliteConstraintUnique, code == sqliteConstraintPrimaryKey:
			return fmt.Errorf("%w: %w", ErrDuplicateSlot, err)
		case code == sqliteBusySnapshot:
			return fmt.Errorf("%w: %w", ErrSerialization, err)
		case code&0xff == sqliteBusy, code&0xff == sqliteLocked:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	return classifyConn(err)
}

func contentionSQLite(err error) error {
	var coded interface {
		error
		Code() int
	}
	if !errors.As(err, &coded) {
		return err
	}
	if c := coded.Code() & 0xff; c == sqliteBusy || c == sqliteLocked {
		return fmt.Errorf("%w: %w", ErrSerialization, coded)
	}
	return err
}

func (d *Dialect) classifyTx(err error) error {
	if err == nil || d.inTx == nil {
		return err
	}
	return d.inTx(err)
}

func classifyConn(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
