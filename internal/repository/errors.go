// Package repository defines the MySQL-backed stores and the error values
// they share.  These sentinel values let the service layer distinguish
// failure scenarios without inspecting driver errors: ErrNotFound for a
// missing row, ErrDuplicate for a unique-key violation (a second booking
// for the same event and person, a second account with the same email),
// ErrConflict for a state transition that is no longer allowed and
// ErrForbidden for an operation on a row owned by someone else.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a conditional update finds the row in a
// state that no longer permits the change, such as responding to a booking
// that has already been confirmed or declined.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation on a row
// they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is the ErrDuplicate case for account registration.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
