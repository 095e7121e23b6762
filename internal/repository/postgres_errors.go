package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var (
	// ErrDuplicateOccurrence reports a uniqueness violation the upsert path could not absorb.
	ErrDuplicateOccurrence = errors.New("duplicate occurrence for series and date")
	// ErrOccurrenceCancelled reports a write against a cancelled occurrence row.
	ErrOccurrenceCancelled = errors.New("occurrence cancelled")
	// ErrSeriesMissing reports a write referencing a series that no longer exists.
	ErrSeriesMissing = errors.New("series missing")
)

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}
