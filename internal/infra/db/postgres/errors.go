package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"carrental/internal/app/apperr"
	domainbooking "carrental/internal/domain/booking"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

var ErrReadOnlyUnit = errors.New("postgres: write in read-only unit")

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// translate maps lock conflicts onto ErrConcurrentUpdate and connectivity onto unavailability.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return domainbooking.ErrConcurrentUpdate
	}
	var connErr *pgconn.ConnectError
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &connErr) {
		return apperr.Unavailable(err)
	}
	return err
}
