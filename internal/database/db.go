package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/glebarez/go-sqlite"

	"github.com/JoseLuizMendes/barber-pro/internal/config"
)

// Open connects to the store named by cfg.Driver and verifies the
// connection.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "mysql":
		return OpenMySQL(cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
}

// OpenMySQL connects to MySQL.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = pass
	mc.Net = "tcp"
	mc.Addr = host + ":" + port
	mc.DBName = name
	// DATETIME <-> time.Time, always UTC
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, ping(db)
}

// OpenSQLite opens (creating if needed) a SQLite database file.  SQLite
// allows one writer at a time: transactions take the write lock when they
// begin (_txlock=immediate) and wait up to busy_timeout for it, and the
// pool is capped at one connection so writers in this process queue in
// database/sql.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, ping(db)
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	return nil
}
