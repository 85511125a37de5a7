package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"

	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

func IsCheckViolation(err error) bool { return hasCode(err, codeCheckViolation) }

// IsTxConflict reports a deadlock or serialization failure: the transaction
// lost a race and may be retried as a whole.
func IsTxConflict(err error) bool {
	return hasCode(err, codeSerializationFailure) || hasCode(err, codeDeadlockDetected)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
