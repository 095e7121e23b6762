package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

var seriesRowColumns = []string{"id", "owner_id", "title", "description", "priority", "category_id", "tags", "due_time", "anchor_date", "end_date", "recurrence_rule", "active", "created_at", "updated_at", "deleted_at"}

func TestSeriesRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO todo_series")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	series := &models.Series{
		OwnerID:    "owner-1",
		Title:      "Water plants",
		AnchorDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Rule:       &recurrence.Rule{Frequency: recurrence.FrequencyDaily, Interval: 2},
		Active:     true,
	}
	require.NoError(t, repo.Create(context.Background(), series))
	assert.NotEmpty(t, series.ID)
	assert.NotNil(t, series.Tags)
	assert.Equal(t, series.CreatedAt, series.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(seriesRowColumns).
		AddRow("series-1", "owner-1", "Water plants", "", 1, nil, "{home,garden}", "08:30", anchor, nil,
			[]byte(`{"frequency":"WEEKLY","interval":1,"byWeekDays":["MO","TH"]}`), true, anchor, anchor, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM todo_series WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL")).
		WithArgs("series-1", "owner-1").
		WillReturnRows(rows)

	series, err := repo.FindByID(context.Background(), "owner-1", "series-1", false)
	require.NoError(t, err)
	require.NotNil(t, series)
	assert.Equal(t, []string{"home", "garden"}, []string(series.Tags))
	require.NotNil(t, series.Rule)
	assert.Equal(t, recurrence.FrequencyWeekly, series.Rule.Frequency)
	require.Len(t, series.Rule.ByWeekDays, 2)
	require.NotNil(t, series.DueTime)
	assert.Equal(t, "08:30", *series.DueTime)
	assert.Nil(t, series.EndDate)
}

func TestSeriesRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM todo_series WHERE id = $1 AND owner_id = $2")).
		WithArgs("series-9", "owner-1").
		WillReturnError(sql.ErrNoRows)

	series, err := repo.FindByID(context.Background(), "owner-1", "series-9", true)
	require.NoError(t, err)
	assert.Nil(t, series)
}

func TestSeriesRepositoryListWithTotal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(seriesRowColumns).
		AddRow("series-1", "owner-1", "Pay rent", "", 2, nil, "{}", nil, anchor, nil, nil, true, anchor, anchor, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title")).
		WithArgs("owner-1", "%rent%", "%rent%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM todo_series")).
		WithArgs("owner-1", "%rent%", "%rent%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.SeriesFilter{OwnerID: "owner-1", Search: " Rent "})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, items[0].Rule)
	assert.False(t, items[0].IsRecurring())
}

func TestSeriesRepositoryListActiveInRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	anchor := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(seriesRowColumns).
		AddRow("series-1", "owner-1", "Stretch", "", 1, nil, "{}", nil, anchor, nil, `{"frequency":"DAILY","interval":1}`, true, anchor, anchor, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM todo_series WHERE")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	series, err := repo.ListActiveInRange(context.Background(), "owner-1", anchor, anchor.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, series[0].IsRecurring())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE todo_series SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Series{ID: "series-1", OwnerID: "owner-1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSeriesRepositorySoftDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)
	at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE todo_series SET deleted_at = $3")).
		WithArgs("series-1", "owner-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE todo_occurrences SET deleted_at = $2")).
		WithArgs("series-1", at).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	deleted, err := repo.SoftDelete(context.Background(), "owner-1", "series-1", at)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesRepositorySoftDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)
	at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE todo_series SET deleted_at = $3")).
		WithArgs("series-1", "owner-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	deleted, err := repo.SoftDelete(context.Background(), "owner-1", "series-1", at)
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesRepositoryRestoreUsesDeletionStamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)
	stamp := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	at := stamp.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT deleted_at FROM todo_series")).
		WithArgs("series-1", "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"deleted_at"}).AddRow(stamp))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE todo_occurrences SET deleted_at = NULL")).
		WithArgs("series-1", stamp, at).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE todo_series SET deleted_at = NULL")).
		WithArgs("series-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	restored, err := repo.Restore(context.Background(), "owner-1", "series-1", at)
	require.NoError(t, err)
	assert.True(t, restored)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesRepositoryRestoreNotDeleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT deleted_at FROM todo_series")).
		WithArgs("series-1", "owner-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	restored, err := repo.Restore(context.Background(), "owner-1", "series-1", time.Now())
	require.NoError(t, err)
	assert.False(t, restored)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeriesRepositoryPurgeDeletedBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSeriesRepository(db)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM todo_series WHERE deleted_at IS NOT NULL AND deleted_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	purged, err := repo.PurgeDeletedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
}
