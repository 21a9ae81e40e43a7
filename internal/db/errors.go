package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when an extraction log row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an event id was already recorded.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrInvalidRecord is returned when a row breaks a CHECK or NOT NULL
	// constraint, e.g. an unknown extraction status.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnavailable is returned when the database cannot serve requests.
	ErrUnavailable = errors.New("database unavailable")
)

// WrapError adds the operation to err and maps PostgreSQL failures onto the
// sentinel errors above.
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w (constraint: %s)", operation, ErrDuplicateKey, pgErr.ConstraintName)
		case pgErr.Code == pgerrcode.CheckViolation, pgErr.Code == pgerrcode.NotNullViolation:
			return fmt.Errorf("%s: %w (constraint: %s): %s", operation, ErrInvalidRecord, pgErr.ConstraintName, pgErr.Message)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgErr.Code == pgerrcode.AdminShutdown,
			pgErr.Code == pgerrcode.CannotConnectNow:
			return fmt.Errorf("%s: %w: %s", operation, ErrUnavailable, pgErr.Message)
		default:
			return fmt.Errorf("%s: database error [%s]: %w", operation, pgErr.Code, err)
		}
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", operation, ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey reports whether err wraps ErrDuplicateKey.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsUnavailable reports whether err wraps ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
