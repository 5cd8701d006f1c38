package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrConflict indicates a uniqueness or concurrency conflict.
	ErrConflict = errors.New("repo conflict")
	// ErrNotFound indicates the row does not exist.
	ErrNotFound = errors.New("repo not found")
	// ErrRetryable indicates a transient failure the caller may retry.
	ErrRetryable = errors.New("repo retryable")
)

// MapError folds driver-level failures into repo error codes so services
// never have to inspect pgconn directly.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound), errors.Is(err, ErrRetryable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, errors.New(op))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrRetryable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return errors.Join(ErrConflict, err) // unique_violation
		case "23503":
			return errors.Join(ErrConflict, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return errors.Join(ErrRetryable, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "already exists"):
		return errors.Join(ErrConflict, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return errors.Join(ErrRetryable, err)
	default:
		return err
	}
}
