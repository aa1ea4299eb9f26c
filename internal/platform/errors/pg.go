package errors

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes the analyses and job tables can raise
var pgCodes = map[string]ErrorCode{
	"23505": ErrorCodeDuplicateKey,    // unique_violation
	"23503": ErrorCodeInvalidArgument, // foreign_key_violation, e.g. a job pointing at a pruned analysis
	"23502": ErrorCodeValidation,      // not_null_violation
	"23514": ErrorCodeValidation,      // check_violation, e.g. an unknown job state
	"22001": ErrorCodeInvalidArgument, // string_data_right_truncation
	"22P02": ErrorCodeInvalidArgument, // invalid_text_representation, e.g. a malformed uuid
	"40001": ErrorCodeDB,              // serialization_failure
	"40P01": ErrorCodeDB,              // deadlock_detected
	"55P03": ErrorCodeDB,              // lock_not_available
	"57014": ErrorCodeTimeout,         // query_canceled by statement_timeout
	"25006": ErrorCodeUnavailable,     // read_only_sql_transaction, failover in progress
	"57P03": ErrorCodeUnavailable,     // cannot_connect_now
}

// contention is retried right away by the worker
var contention = map[string]bool{"40001": true, "40P01": true, "55P03": true}

// pgCode maps a *pgconn.PgError anywhere in err's chain
func pgCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	if c, ok := pgCodes[pgErr.Code]; ok {
		return c, true
	}
	return ErrorCodeDB, true
}

// FromPostgres codes a store error by its SQLSTATE; anything else is
// ErrorCodeDB. nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := pgCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports whether err is lock or serialization contention. It
// looks at the SQLSTATE first and falls back to the driver's text for
// errors raised on commit. Local cancellation is never retryable
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	root := Root(err)
	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		return contention[pgErr.Code]
	}
	s := strings.ToLower(root.Error())
	for _, frag := range []string{
		"commit unexpectedly resulted in rollback",
		"deadlock detected",
		"could not serialize access",
		"could not obtain lock on row",
		"terminating connection due to administrator command",
	} {
		if strings.Contains(s, frag) {
			return true
		}
	}
	return false
}
