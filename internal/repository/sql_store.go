package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JoseLuizMendes/barber-pro/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on database/sql.  All timestamps are stored in
// UTC; the dialect decides their column encoding.
type SQLStore struct {
	sqlQueries
	db *sql.DB
}

// NewSQLStore returns a store bound to db using the given dialect.
func NewSQLStore(db *sql.DB, d *Dialect) *SQLStore {
	return &SQLStore{sqlQueries: sqlQueries{q: db, d: d}, db: db}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Migrate creates the tables and indexes when they do not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.d.Name, err)
		}
	}
	return nil
}

// InTx begins a transaction at the dialect's isolation level, hands fn a
// transactional Queries and commits when fn succeeds.  A failed commit is
// classified so that serialization failures surface as ErrSerialization,
// and so is lock contention met anywhere inside the transaction.
func (s *SQLStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: s.d.Isolation})
	if err != nil {
		return s.d.classifyTx(s.d.classify(fmt.Errorf("begin tx: %w", err)))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlQueries{q: tx, d: s.d}); err != nil {
		return s.d.classifyTx(err)
	}
	if err := tx.Commit(); err != nil {
		return s.d.classifyTx(s.d.classify(fmt.Errorf("commit tx: %w", err)))
	}
	committed = true
	return nil
}

// ExpiredBookings lists bookings the sweeper should complete, oldest
// first.
func (s *SQLStore) ExpiredBookings(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	in, args := statusArgs(model.ExpirableStatuses)
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE status IN (` + in + `) AND scheduled_at < ? ORDER BY scheduled_at LIMIT ?`
	args = append(args, s.d.timeArg(cutoff(now)), limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.d.classify(err)
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.d.classify(err)
	}
	return out, nil
}

// CompleteExpired runs a single conditional UPDATE.  Rows whose status or
// instant no longer match are left untouched, so repeating the call is
// harmless.
func (s *SQLStore) CompleteExpired(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+len(model.ExpirableStatuses)+3)
	args = append(args, string(model.StatusCompleted), s.d.timeArg(now))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	in, statuses := statusArgs(model.ExpirableStatuses)
	args = append(args, statuses...)
	args = append(args, s.d.timeArg(cutoff(now)))
	q := `UPDATE bookings SET status = ?, updated_at = ?
	      WHERE id IN (` + strings.Join(placeholders, ",") + `)
	        AND status IN (` + in + `)
	        AND scheduled_at < ?`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, s.d.classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.d.classify(err)
	}
	return n, nil
}

// ActiveBookings returns every active booking ordered by employee, instant
// and creation time.
func (s *SQLStore) ActiveBookings(ctx context.Context) ([]model.Booking, error) {
	in, args := statusArgs(model.ActiveStatuses)
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE status IN (` + in + `)
	      ORDER BY employee_id, scheduled_at, created_at`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.d.classify(err)
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.d.classify(err)
	}
	return out, nil
}

// SaveEmployee inserts or replaces a catalog employee.
func (s *SQLStore) SaveEmployee(ctx context.Context, e model.Employee) error {
	_, err := s.db.ExecContext(ctx, s.d.UpsertEmployee, e.ID, e.BarbershopID, e.Name, e.IsActive)
	return s.d.classify(err)
}

// SaveService inserts or replaces a catalog service, including its price.
func (s *SQLStore) SaveService(ctx context.Context, svc model.Service) error {
	_, err := s.db.ExecContext(ctx, s.d.UpsertService, svc.ID, svc.BarbershopID, svc.Name, svc.PriceCents, svc.IsActive)
	return s.d.classify(err)
}

// sqlQueries implements Queries over a *sql.DB or a *sql.Tx.
type sqlQueries struct {
	q querier
	d *Dialect
}

const bookingColumns = `id, customer_id, service_id, employee_id, barbershop_id, scheduled_at, status, price_cents, created_at, updated_at`

func (s *sqlQueries) ActiveBookingAt(ctx context.Context, employeeID string, at time.Time, excludeID string) (*model.Booking, error) {
	in, statuses := statusArgs(model.ActiveStatuses)
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE employee_id = ? AND scheduled_at = ? AND status IN (` + in + `)`
	args := []any{employeeID, s.d.timeArg(model.SlotTime(at))}
	args = append(args, statuses...)
	if excludeID != "" {
		q += ` AND id <> ?`
		args = append(args, excludeID)
	}
	q += ` LIMIT 1`
	b, err := scanBooking(s.q.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.d.classify(err)
	}
	return b, nil
}

func (s *sqlQueries) EmployeeInTenant(ctx context.Context, employeeID, barbershopID string) (*model.Employee, error) {
	const q = `SELECT id, barbershop_id, name, is_active FROM employees WHERE id = ? AND barbershop_id = ?`
	var e model.Employee
	err := s.q.QueryRowContext(ctx, q, employeeID, barbershopID).Scan(&e.ID, &e.BarbershopID, &e.Name, &e.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.d.classify(err)
	}
	return &e, nil
}

func (s *sqlQueries) ServiceInTenant(ctx context.Context, serviceID, barbershopID string) (*model.Service, error) {
	const q = `SELECT id, barbershop_id, name, price_cents, is_active FROM services WHERE id = ? AND barbershop_id = ?`
	var svc model.Service
	err := s.q.QueryRowContext(ctx, q, serviceID, barbershopID).Scan(&svc.ID, &svc.BarbershopID, &svc.Name, &svc.PriceCents, &svc.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.d.classify(err)
	}
	return &svc, nil
}

func (s *sqlQueries) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q.ExecContext(ctx, q,
		b.ID, b.CustomerID, b.ServiceID, b.EmployeeID, b.BarbershopID,
		s.d.timeArg(b.ScheduledAt), string(b.Status), b.PriceCents,
		s.d.timeArg(b.CreatedAt), s.d.timeArg(b.UpdatedAt),
	)
	return s.d.classify(err)
}

func (s *sqlQueries) BookingInTenant(ctx context.Context, bookingID, barbershopID string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND barbershop_id = ?`
	b, err := scanBooking(s.q.QueryRowContext(ctx, q, bookingID, barbershopID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.d.classify(err)
	}
	return b, nil
}

func (s *sqlQueries) UpdateStatus(ctx context.Context, bookingID string, from, to model.Status, at time.Time) error {
	const q = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := s.q.ExecContext(ctx, q, string(to), s.d.timeArg(at), bookingID, string(from))
	if err != nil {
		return s.d.classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.d.classify(err)
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(r rowScanner) (*model.Booking, error) {
	var b model.Booking
	var status string
	err := r.Scan(
		&b.ID, &b.CustomerID, &b.ServiceID, &b.EmployeeID, &b.BarbershopID,
		timeDest{&b.ScheduledAt}, &status, &b.PriceCents,
		timeDest{&b.CreatedAt}, timeDest{&b.UpdatedAt},
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.Status(status)
	return &b, nil
}

// cutoff rounds now up to a whole second.  Stored instants have no
// fractional part, so "scheduled_at < cutoff(now)" selects exactly the
// instants before now even when the column truncates to seconds.
func cutoff(now time.Time) time.Time {
	t := now.Truncate(time.Second)
	if t.Before(now) {
		t = t.Add(time.Second)
	}
	return t
}

// statusArgs renders an IN list of placeholders and its arguments.
func statusArgs(statuses []model.Status) (string, []any) {
	ph := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		ph[i] = "?"
		args[i] = string(st)
	}
	return strings.Join(ph, ","), args
}

// timeDest scans a timestamp column regardless of how the dialect encodes
// it: DATETIME (time.Time with parseTime=true), unix seconds, or text.
type timeDest struct{ t *time.Time }

func (d timeDest) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d.t = v.UTC()
	case int64:
		*d.t = time.Unix(v, 0).UTC()
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	case nil:
		*d.t = time.Time{}
	default:
		return fmt.Errorf("unsupported time column type %T", src)
	}
	return nil
}

func (d timeDest) parse(s string) error {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return fmt.Errorf("parse time column %q: %w", s, err)
	}
	*d.t = t.UTC()
	return nil
}
