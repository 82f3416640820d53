package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/newsletter-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// invalidCatalogNameCode is raised when a database does not exist
	invalidCatalogNameCode = "3D000"

	// duplicateDatabaseCode is raised by CREATE DATABASE on a name collision
	duplicateDatabaseCode = "42P04"

	// objectInUseCode is raised by DROP DATABASE while sessions are still attached
	objectInUseCode = "55006"

	// tooManyConnectionsCode is raised when the server refuses new sessions
	tooManyConnectionsCode = "53300"
)

// MapError maps a database error to an appropriate store error.
// It wraps the original error to preserve context and provide better debugging information.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}

	if IsUnavailable(err) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolationCode)
}

// IsDatabaseMissing reports whether err says the target database does not exist.
func IsDatabaseMissing(err error) bool {
	return hasCode(err, invalidCatalogNameCode)
}

// IsDuplicateDatabase reports whether CREATE DATABASE hit an existing name.
func IsDuplicateDatabase(err error) bool {
	return hasCode(err, duplicateDatabaseCode)
}

// IsObjectInUse reports whether a DROP failed because sessions are attached.
func IsObjectInUse(err error) bool {
	return hasCode(err, objectInUseCode)
}

// IsUnavailable reports whether err is a connectivity or capacity problem
// rather than a problem with the statement itself.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. Class 53: insufficient resources.
		// Class 57: operator intervention (admin shutdown, crash shutdown).
		switch {
		case pgErr.Code == tooManyConnectionsCode,
			len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53" || pgErr.Code[:2] == "57"):
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
