package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMySQL(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate entry", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, ErrDuplicateSlot},
		{"deadlock", &mysql.MySQLError{Number: 1213}, ErrSerialization},
		{"lock wait timeout", fmt.Errorf("commit tx: %w", &mysql.MySQLError{Number: 1205}), ErrSerialization},
		{"too many connections", &mysql.MySQLError{Number: 1040}, ErrUnavailable},
		{"invalid conn", mysql.ErrInvalidConn, ErrUnavailable},
		{"bad conn", driver.ErrBadConn, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyMySQL(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "driver error stays reachable")
		})
	}

	other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
	assert.Same(t, error(other), classifyMySQL(other))
	assert.NoError(t, classifyMySQL(nil))
}

type codedErr int

func (c codedErr) Error() string { return fmt.Sprintf("sqlite code %d", int(c)) }
func (c codedErr) Code() int     { return int(c) }

func TestClassifySQLite(t *testing.T) {
	assert.ErrorIs(t, classifySQLite(codedErr(2067)), ErrDuplicateSlot)
	assert.ErrorIs(t, classifySQLite(codedErr(1555)), ErrDuplicateSlot)
	assert.ErrorIs(t, classifySQLite(codedErr(517)), ErrSerialization)
	assert.ErrorIs(t, classifySQLite(codedErr(5)), ErrUnavailable)
	assert.ErrorIs(t, classifySQLite(codedErr(261)), ErrUnavailable, "SQLITE_BUSY_RECOVERY")
	assert.ErrorIs(t, classifySQLite(codedErr(6)), ErrUnavailable)

	for _, code := range []int{19, 275, 787, 1299} {
		got := classifySQLite(codedErr(code))
		assert.NotErrorIs(t, got, ErrDuplicateSlot, "constraint code %d", code)
		assert.Equal(t, codedErr(code), got)
	}

	plain := errors.New("syntax error")
	assert.Same(t, plain, classifySQLite(plain))
}

func TestSQLiteContentionInsideTx(t *testing.T) {
	for _, code := range []int{5, 6, 261, 262} {
		got := SQLite.classifyTx(classifySQLite(fmt.Errorf("commit tx: %w", codedErr(code))))
		assert.ErrorIs(t, got, ErrSerialization, "code %d", code)
		assert.NotErrorIs(t, got, ErrUnavailable, "code %d", code)
		assert.ErrorIs(t, got, codedErr(code))
	}

	dup := classifySQLite(codedErr(2067))
	assert.Same(t, dup, SQLite.classifyTx(dup))
	assert.NoError(t, SQLite.classifyTx(nil))

	busy := classifyMySQL(&mysql.MySQLError{Number: 1040})
	assert.Same(t, busy, MySQL.classifyTx(busy), "mysql has no contention rule")
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("mysql")
	require.NoError(t, err)
	assert.Same(t, MySQL, d)
	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Same(t, SQLite, d)
	_, err = DialectFor("postgres")
	assert.Error(t, err)
}
