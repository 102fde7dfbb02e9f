package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrNoRows      = errors.New("db: no rows")
	ErrConflict    = errors.New("db: unique violation")
)

// Op constants name the failing command or statement for error context.
const (
	OpPing     = "PING"
	OpDel      = "DEL"
	OpGet      = "GET"
	OpSet      = "SET"
	OpSelect   = "SELECT"
	OpInsert   = "INSERT"
	OpCount    = "COUNT"
	OpMigrate  = "MIGRATE"
	OpDistinct = "SELECT DISTINCT"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
