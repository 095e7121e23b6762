package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/recurring-todo-api/internal/models"
)

const occurrenceColumns = `id, series_id, occurrence_date, title, description, priority, category_id, tags, due_time, completed, completed_at, created_at, updated_at, deleted_at`

// OccurrenceRepository persists materialized occurrences.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository constructs the repository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// ListInRange returns every stored occurrence of ownerID's live series dated within
// [start, end], cancelled rows included, joined with the series display fields.
func (r *OccurrenceRepository) ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.MaterializedOccurrence, error) {
	query, args, err := psql.Select(
		"o.id", "o.series_id", "o.occurrence_date", "o.title", "o.description", "o.priority",
		"o.category_id", "o.tags", "o.due_time", "o.completed", "o.completed_at",
		"o.created_at", "o.updated_at", "o.deleted_at",
		"s.anchor_date AS series_anchor_date",
		"s.title AS series_title",
		"s.description AS series_description",
		"s.priority AS series_priority",
		"s.category_id AS series_category_id",
		"s.tags AS series_tags",
		"s.due_time AS series_due_time",
		"(s.recurrence_rule IS NOT NULL) AS series_recurring",
	).
		From("todo_occurrences o").
		Join("todo_series s ON s.id = o.series_id").
		Where(squirrel.Eq{"s.owner_id": ownerID, "s.active": true, "s.deleted_at": nil}).
		Where(squirrel.GtOrEq{"o.occurrence_date": start}).
		Where(squirrel.LtOrEq{"o.occurrence_date": end}).
		OrderBy("o.occurrence_date ASC", "o.series_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list occurrences query: %w", err)
	}

	var occurrences []models.MaterializedOccurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	return occurrences, nil
}

// FindByKey returns the row for (seriesID, date), cancelled or not, or nil when none exists.
func (r *OccurrenceRepository) FindByKey(ctx context.Context, seriesID string, date time.Time) (*models.Occurrence, error) {
	const query = `SELECT ` + occurrenceColumns + ` FROM todo_occurrences WHERE series_id = $1 AND occurrence_date = $2`
	var occurrence models.Occurrence
	if err := r.db.GetContext(ctx, &occurrence, query, seriesID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find occurrence: %w", err)
	}
	return &occurrence, nil
}

// Upsert materializes or updates the occurrence addressed by change in a single statement so
// concurrent first writes to the same (series, date) converge on one row. Nil fields keep the
// stored value. Writes never resurrect a cancelled row; ErrOccurrenceCancelled is returned
// instead.
func (r *OccurrenceRepository) Upsert(ctx context.Context, change models.OccurrenceChange, at time.Time) (*models.Occurrence, error) {
	const query = `INSERT INTO todo_occurrences (` + occurrenceColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10::boolean, FALSE), $11, $12, $12, $13)
ON CONFLICT (series_id, occurrence_date) DO UPDATE SET
	title = COALESCE(EXCLUDED.title, todo_occurrences.title),
	description = COALESCE(EXCLUDED.description, todo_occurrences.description),
	priority = COALESCE(EXCLUDED.priority, todo_occurrences.priority),
	category_id = COALESCE(EXCLUDED.category_id, todo_occurrences.category_id),
	tags = COALESCE(EXCLUDED.tags, todo_occurrences.tags),
	due_time = COALESCE(EXCLUDED.due_time, todo_occurrences.due_time),
	completed = COALESCE($10::boolean, todo_occurrences.completed),
	completed_at = CASE WHEN $10::boolean IS NULL THEN todo_occurrences.completed_at ELSE EXCLUDED.completed_at END,
	updated_at = EXCLUDED.updated_at,
	deleted_at = COALESCE(EXCLUDED.deleted_at, todo_occurrences.deleted_at)
WHERE todo_occurrences.deleted_at IS NULL
RETURNING ` + occurrenceColumns

	var tags interface{}
	if change.Tags != nil {
		tags = pq.StringArray(*change.Tags)
	}
	var deletedAt *time.Time
	if change.Cancel {
		deletedAt = &at
	}

	args := []interface{}{
		uuid.NewString(),
		change.SeriesID,
		change.Date,
		change.Title,
		change.Description,
		change.Priority,
		change.CategoryID,
		tags,
		change.DueTime,
		change.Completed,
		change.CompletedAt,
		at,
		deletedAt,
	}

	var occurrence models.Occurrence
	if err := r.db.GetContext(ctx, &occurrence, query, args...); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, ErrOccurrenceCancelled
		case isUniqueViolation(err):
			return nil, fmt.Errorf("upsert occurrence: %w", ErrDuplicateOccurrence)
		case isForeignKeyViolation(err):
			return nil, fmt.Errorf("upsert occurrence: %w", ErrSeriesMissing)
		}
		return nil, fmt.Errorf("upsert occurrence: %w", err)
	}
	return &occurrence, nil
}

// Restore revives a cancelled occurrence. It reports false when no cancelled row exists.
func (r *OccurrenceRepository) Restore(ctx context.Context, seriesID string, date time.Time, at time.Time) (bool, error) {
	const query = `UPDATE todo_occurrences SET deleted_at = NULL, updated_at = $3
WHERE series_id = $1 AND occurrence_date = $2 AND deleted_at IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, seriesID, date, at)
	if err != nil {
		return false, fmt.Errorf("restore occurrence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("restore occurrence rows: %w", err)
	}
	return affected > 0, nil
}

// SoftDeleteFrom stops a series from generating dates on or after from: the end boundary
// moves to the day before unless it is already earlier, and stored occurrences at or after
// the boundary that are not completed are cancelled.
func (r *OccurrenceRepository) SoftDeleteFrom(ctx context.Context, seriesID string, from time.Time, at time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin truncate series transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	boundary := from.AddDate(0, 0, -1)
	const updateSeries = `UPDATE todo_series SET end_date = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL AND (end_date IS NULL OR end_date > $2)`
	if _, err = tx.ExecContext(ctx, updateSeries, seriesID, boundary, at); err != nil {
		return fmt.Errorf("truncate series: %w", err)
	}

	const cancelOccurrences = `UPDATE todo_occurrences SET deleted_at = $3, updated_at = $3
WHERE series_id = $1 AND occurrence_date >= $2 AND completed = FALSE AND deleted_at IS NULL`
	if _, err = tx.ExecContext(ctx, cancelOccurrences, seriesID, from, at); err != nil {
		return fmt.Errorf("cancel truncated occurrences: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit truncate series: %w", err)
	}
	return nil
}
