package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/recurring-todo-api/internal/models"
)

const seriesColumns = `id, owner_id, title, description, priority, category_id, tags, due_time, anchor_date, end_date, recurrence_rule, active, created_at, updated_at, deleted_at`

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// SeriesRepository persists series definitions.
type SeriesRepository struct {
	db *sqlx.DB
}

// NewSeriesRepository constructs the repository.
func NewSeriesRepository(db *sqlx.DB) *SeriesRepository {
	return &SeriesRepository{db: db}
}

// Create inserts a new series, assigning an id when missing.
func (r *SeriesRepository) Create(ctx context.Context, series *models.Series) error {
	if series.ID == "" {
		series.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if series.CreatedAt.IsZero() {
		series.CreatedAt = now
	}
	series.UpdatedAt = series.CreatedAt
	if series.Tags == nil {
		series.Tags = []string{}
	}

	const query = `INSERT INTO todo_series (` + seriesColumns + `)
VALUES (:id, :owner_id, :title, :description, :priority, :category_id, :tags, :due_time, :anchor_date, :end_date, :recurrence_rule, :active, :created_at, :updated_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, series); err != nil {
		return fmt.Errorf("create series: %w", err)
	}
	return nil
}

// FindByID returns a series owned by ownerID, or nil when it does not exist.
func (r *SeriesRepository) FindByID(ctx context.Context, ownerID, id string, includeDeleted bool) (*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM todo_series WHERE id = $1 AND owner_id = $2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	var series models.Series
	if err := r.db.GetContext(ctx, &series, query, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find series: %w", err)
	}
	return &series, nil
}

// List returns series matching the filter with the total count.
func (r *SeriesRepository) List(ctx context.Context, filter models.SeriesFilter) ([]models.Series, int, error) {
	where := squirrel.And{squirrel.Eq{"owner_id": filter.OwnerID}}
	if !filter.IncludeDeleted {
		where = append(where, squirrel.Eq{"deleted_at": nil})
	}
	if filter.Active != nil {
		where = append(where, squirrel.Eq{"active": *filter.Active})
	}
	if filter.Recurring != nil {
		if *filter.Recurring {
			where = append(where, squirrel.NotEq{"recurrence_rule": nil})
		} else {
			where = append(where, squirrel.Eq{"recurrence_rule": nil})
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		where = append(where, squirrel.Or{
			squirrel.Like{"LOWER(title)": pattern},
			squirrel.Like{"LOWER(description)": pattern},
		})
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	listQuery, args, err := psql.Select(seriesColumns).
		From("todo_series").
		Where(where).
		OrderBy("anchor_date ASC", "created_at ASC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list series query: %w", err)
	}

	var series []models.Series
	if err := r.db.SelectContext(ctx, &series, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list series: %w", err)
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("todo_series").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count series query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count series: %w", err)
	}

	return series, total, nil
}

// ListActiveInRange returns active series of ownerID whose [anchor, end] window intersects
// [start, end]. One-shot series are included when their anchor falls in range.
func (r *SeriesRepository) ListActiveInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.Series, error) {
	query, args, err := psql.Select(seriesColumns).
		From("todo_series").
		Where(squirrel.Eq{"owner_id": ownerID, "active": true, "deleted_at": nil}).
		Where(squirrel.LtOrEq{"anchor_date": end}).
		Where(squirrel.Or{
			squirrel.And{squirrel.Eq{"recurrence_rule": nil}, squirrel.GtOrEq{"anchor_date": start}},
			squirrel.And{
				squirrel.NotEq{"recurrence_rule": nil},
				squirrel.Or{squirrel.Eq{"end_date": nil}, squirrel.GtOrEq{"end_date": start}},
			},
		}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active series query: %w", err)
	}

	var series []models.Series
	if err := r.db.SelectContext(ctx, &series, query, args...); err != nil {
		return nil, fmt.Errorf("list active series: %w", err)
	}
	return series, nil
}

// Update overwrites the mutable columns of a non-deleted series.
func (r *SeriesRepository) Update(ctx context.Context, series *models.Series) error {
	series.UpdatedAt = time.Now().UTC()
	if series.Tags == nil {
		series.Tags = []string{}
	}
	const query = `UPDATE todo_series SET
	title = :title,
	description = :description,
	priority = :priority,
	category_id = :category_id,
	tags = :tags,
	due_time = :due_time,
	anchor_date = :anchor_date,
	end_date = :end_date,
	recurrence_rule = :recurrence_rule,
	active = :active,
	updated_at = :updated_at
WHERE id = :id AND owner_id = :owner_id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, series)
	if err != nil {
		return fmt.Errorf("update series: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks a series and its live occurrences deleted with the same timestamp so a
// restore can undo exactly this cascade. It reports false when nothing was deleted.
func (r *SeriesRepository) SoftDelete(ctx context.Context, ownerID, id string, at time.Time) (deleted bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete series transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteSeries = `UPDATE todo_series SET deleted_at = $3, updated_at = $3 WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, deleteSeries, id, ownerID, at)
	if err != nil {
		return false, fmt.Errorf("soft delete series: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft delete series rows: %w", err)
	}
	if affected == 0 {
		err = tx.Rollback()
		if err != nil {
			return false, fmt.Errorf("rollback delete series: %w", err)
		}
		return false, nil
	}

	const deleteOccurrences = `UPDATE todo_occurrences SET deleted_at = $2, updated_at = $2 WHERE series_id = $1 AND deleted_at IS NULL`
	if _, err = tx.ExecContext(ctx, deleteOccurrences, id, at); err != nil {
		return false, fmt.Errorf("soft delete series occurrences: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete series: %w", err)
	}
	return true, nil
}

// Restore reverses SoftDelete, reviving only occurrences removed by the same cascade.
func (r *SeriesRepository) Restore(ctx context.Context, ownerID, id string, at time.Time) (restored bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin restore series transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var deletedAt time.Time
	const lockQuery = `SELECT deleted_at FROM todo_series WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL FOR UPDATE`
	if err = tx.GetContext(ctx, &deletedAt, lockQuery, id, ownerID); err != nil {
		if err == sql.ErrNoRows {
			err = nil
			_ = tx.Rollback()
			return false, nil
		}
		return false, fmt.Errorf("lock deleted series: %w", err)
	}

	const restoreOccurrences = `UPDATE todo_occurrences SET deleted_at = NULL, updated_at = $3 WHERE series_id = $1 AND deleted_at = $2`
	if _, err = tx.ExecContext(ctx, restoreOccurrences, id, deletedAt, at); err != nil {
		return false, fmt.Errorf("restore series occurrences: %w", err)
	}
	const restoreSeries = `UPDATE todo_series SET deleted_at = NULL, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, restoreSeries, id, at); err != nil {
		return false, fmt.Errorf("restore series: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit restore series: %w", err)
	}
	return true, nil
}

// PurgeDeletedBefore hard deletes series soft-deleted before cutoff; occurrences follow via
// the foreign key cascade.
func (r *SeriesRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM todo_series WHERE deleted_at IS NOT NULL AND deleted_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted series: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge deleted series rows: %w", err)
	}
	return affected, nil
}

// Ping verifies database connectivity for readiness checks.
func (r *SeriesRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
