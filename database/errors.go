package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/fernandomesquita/stenopro/errors"
)

// transientMessages are driver error texts that clear up on reconnect.
// "database is locked" is sqlite's busy error.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"database is locked",
}

// IsConnectionError reports whether err came from a lost or refused
// connection rather than the statement itself.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func IsNotFoundError(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// IsDuplicateError reports a unique-key violation. Connections are opened
// with TranslateError, so both drivers surface gorm.ErrDuplicatedKey.
func IsDuplicateError(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }

// FromDatabase maps a store error on resource to an AppError. AppErrors
// pass through.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsDuplicateError(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	case IsConnectionError(err):
		unavailable := apperrors.New(apperrors.ErrCodeDatabaseError,
			"Database is temporarily unavailable. Please try again.", http.StatusServiceUnavailable)
		return unavailable.WithCause(err)
	}
	return apperrors.DatabaseError(fmt.Errorf("%s: %w", resource, err))
}
