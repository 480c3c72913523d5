package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrBadColumn   = errors.New("db: invalid identifier")
)

// Op names a store operation for error context.
const (
	OpPing   = "PING"
	OpSelect = "SELECT"
	OpScan   = "SCAN"
	OpGet    = "GET"
	OpSet    = "SET"
	OpHTTP   = "HTTP"
	OpDecode = "DECODE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
