package board

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"kanbanlive/internal/repository"
)

// Error kinds surfaced to callers. Every error returned by Service wraps at most one of them;
// anything else is an unexpected internal failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransient        = errors.New("temporarily unavailable")
	ErrInvalid          = errors.New("invalid request")
)

// IsRetryable reports whether the failed operation may be retried as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrTransient), errors.Is(err, ErrInvalid):
		return err
	case errors.Is(err, repository.ErrBoardNotFound),
		errors.Is(err, repository.ErrListNotFound),
		errors.Is(err, repository.ErrTaskNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrMemberNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrCrossBoardMove):
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	case isTransient(err):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) < 2 {
			return false
		}
		switch pgErr.Code[:2] {
		case "08", // connection exception
			"40", // serialization failure, deadlock
			"53", // insufficient resources
			"57": // operator intervention, e.g. admin shutdown
			return true
		}
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
