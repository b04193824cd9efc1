package dbutil

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes
const (
	PQUniqueViolation = "23505"
	PQDeadlockDetect  = "40P01" // deadlock detected; the transaction can be retried
)

// IsPQError returns true if the err represents a postgres error of the provided code
func IsPQError(err error, code string) bool {
	var e *pq.Error
	if !errors.As(err, &e) {
		return false
	}
	return string(e.Code) == code
}

// IsUniqueViolation returns true if the err is a postgres unique constraint violation
func IsUniqueViolation(err error) bool {
	return IsPQError(err, PQUniqueViolation)
}
