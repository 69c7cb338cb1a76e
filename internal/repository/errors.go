// Package repository defines the persistence gateway used by the booking
// core and its SQL implementation.  Errors returned by any Store are
// classified into the sentinel values below so that higher layers can
// decide between conflict, not-found and retryable outcomes without
// inspecting driver messages.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist or is
// outside the caller's tenant.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSlot is returned when an insert or update would give an
// employee a second active booking at the same instant.  It is raised by
// the unique index over the active subset of (employee_id, scheduled_at).
var ErrDuplicateSlot = errors.New("duplicate active booking for slot")

// ErrSerialization is returned when the database aborted a transaction
// because of a concurrent writer (deadlock, lock wait timeout, snapshot
// conflict).  The transaction had no effect.
var ErrSerialization = errors.New("transaction aborted by concurrent writer")

// ErrUnavailable is returned when the database could not be reached or
// the connection broke.  The operation may be retried as a whole.
var ErrUnavailable = errors.New("store unavailable")

// ErrStaleStatus is returned by conditional status updates when the row
// no longer has the expected status.
var ErrStaleStatus = errors.New("booking status changed concurrently")
