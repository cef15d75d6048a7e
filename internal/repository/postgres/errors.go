package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for a duplicate key.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres duplicate-key error,
// optionally scoped to one constraint. The session store uses it to detect
// an identifier collision on insert, which the random id makes all but
// impossible but which must not pass as a generic failure.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
