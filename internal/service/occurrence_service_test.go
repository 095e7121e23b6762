package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/recurring-todo-api/internal/dto"
	"github.com/noah-isme/recurring-todo-api/internal/identity"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
	"github.com/noah-isme/recurring-todo-api/internal/repository"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
)

// memoryStore mimics the series and occurrence repositories, including the
// one-row-per-(series, date) upsert semantics.
type memoryStore struct {
	mu        sync.Mutex
	series    map[string]*models.Series
	rows      map[string]*models.Occurrence
	upserts   int
	upsertErr error
	listErr   error
	// afterList runs once ListInRange has read the rows, outside the lock.
	afterList func()
}

func newMemoryStore(series ...*models.Series) *memoryStore {
	store := &memoryStore{series: map[string]*models.Series{}, rows: map[string]*models.Occurrence{}}
	for _, s := range series {
		store.series[s.ID] = s
	}
	return store
}

func (m *memoryStore) FindByID(ctx context.Context, ownerID, id string, includeDeleted bool) (*models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[id]
	if !ok || s.OwnerID != ownerID || (s.DeletedAt != nil && !includeDeleted) {
		return nil, nil
	}
	clone := *s
	return &clone, nil
}

func (m *memoryStore) ListActiveInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Series
	for _, s := range m.series {
		if s.OwnerID != ownerID || !s.Active || s.DeletedAt != nil || s.AnchorDate.After(end) {
			continue
		}
		if s.Rule == nil && s.AnchorDate.Before(start) {
			continue
		}
		if s.Rule != nil && s.EndDate != nil && s.EndDate.Before(start) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memoryStore) ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.MaterializedOccurrence, error) {
	out := m.listInRange(ownerID, start, end)
	m.mu.Lock()
	hook := m.afterList
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memoryStore) listInRange(ownerID string, start, end time.Time) []models.MaterializedOccurrence {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MaterializedOccurrence
	for _, row := range m.rows {
		s := m.series[row.SeriesID]
		if s == nil || s.OwnerID != ownerID || !s.Active || s.DeletedAt != nil {
			continue
		}
		if row.OccurrenceDate.Before(start) || row.OccurrenceDate.After(end) {
			continue
		}
		out = append(out, models.MaterializedOccurrence{
			Occurrence:        *row,
			SeriesAnchorDate:  s.AnchorDate,
			SeriesTitle:       s.Title,
			SeriesDescription: s.Description,
			SeriesPriority:    s.Priority,
			SeriesCategoryID:  s.CategoryID,
			SeriesTags:        s.Tags,
			SeriesDueTime:     s.DueTime,
			SeriesRecurring:   s.Rule != nil,
		})
	}
	return out
}

func (m *memoryStore) FindByKey(ctx context.Context, seriesID string, date time.Time) (*models.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey(seriesID, date)]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (m *memoryStore) Upsert(ctx context.Context, change models.OccurrenceChange, at time.Time) (*models.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if _, ok := m.series[change.SeriesID]; !ok {
		return nil, repository.ErrSeriesMissing
	}
	key := rowKey(change.SeriesID, change.Date)
	row, ok := m.rows[key]
	if ok && row.DeletedAt != nil {
		return nil, repository.ErrOccurrenceCancelled
	}
	if !ok {
		row = &models.Occurrence{
			ID:             fmt.Sprintf("occ-%d", len(m.rows)+1),
			SeriesID:       change.SeriesID,
			OccurrenceDate: recurrence.Day(change.Date),
			CreatedAt:      at,
		}
		m.rows[key] = row
	}
	if change.Title != nil {
		row.Title = change.Title
	}
	if change.Description != nil {
		row.Description = change.Description
	}
	if change.Priority != nil {
		row.Priority = change.Priority
	}
	if change.CategoryID != nil {
		row.CategoryID = change.CategoryID
	}
	if change.Tags != nil {
		tags := pq.StringArray(*change.Tags)
		row.Tags = &tags
	}
	if change.DueTime != nil {
		row.DueTime = change.DueTime
	}
	if change.Completed != nil {
		row.Completed = *change.Completed
		row.CompletedAt = change.CompletedAt
	}
	if change.Cancel {
		stamp := at
		row.DeletedAt = &stamp
	}
	row.UpdatedAt = at
	clone := *row
	return &clone, nil
}

func (m *memoryStore) Restore(ctx context.Context, seriesID string, date time.Time, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey(seriesID, date)]
	if !ok || row.DeletedAt == nil {
		return false, nil
	}
	row.DeletedAt = nil
	row.UpdatedAt = at
	return true, nil
}

func (m *memoryStore) SoftDeleteFrom(ctx context.Context, seriesID string, from time.Time, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.series[seriesID]
	boundary := recurrence.AddDays(from, -1)
	if s.EndDate == nil || s.EndDate.After(boundary) {
		s.EndDate = &boundary
	}
	for _, row := range m.rows {
		if row.SeriesID == seriesID && !row.OccurrenceDate.Before(from) && !row.Completed && row.DeletedAt == nil {
			stamp := at
			row.DeletedAt = &stamp
		}
	}
	return nil
}

func (m *memoryStore) rowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func rowKey(seriesID string, date time.Time) string {
	return seriesID + "|" + recurrence.FormatDay(date)
}

func day(raw string) time.Time {
	d, err := recurrence.ParseDay(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func dailySeries(id, anchor string) *models.Series {
	return &models.Series{
		ID:         id,
		OwnerID:    "owner-1",
		Title:      "Water plants",
		Priority:   1,
		Tags:       pq.StringArray{"home"},
		AnchorDate: day(anchor),
		Rule:       &recurrence.Rule{Frequency: recurrence.FrequencyDaily, Interval: 1},
		Active:     true,
	}
}

func newOccurrenceServiceForTest(store *memoryStore, today string) *OccurrenceService {
	svc := NewOccurrenceService(OccurrenceServiceParams{
		Occurrences: store,
		Series:      store,
		Logger:      zap.NewNop(),
		Config:      OccurrenceServiceConfig{Workers: 2},
	})
	fixed := day(today).Add(9 * time.Hour)
	svc.now = func() time.Time { return fixed }
	return svc
}

func listAll(t *testing.T, svc *OccurrenceService, start, end string) []models.OccurrenceView {
	t.Helper()
	views, _, err := svc.ListOccurrences(context.Background(), models.OccurrenceQuery{
		OwnerID:  "owner-1",
		Start:    day(start),
		End:      day(end),
		PageSize: 200,
	})
	require.NoError(t, err)
	return views
}

func viewDates(views []models.OccurrenceView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, recurrence.FormatDay(v.Date))
	}
	return out
}

func TestListOccurrencesExpandsDailySeries(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	views := listAll(t, svc, "2025-01-01", "2025-01-05")

	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04", "2025-01-05"}, viewDates(views))
	for i, view := range views {
		assert.True(t, view.IsVirtual)
		assert.Equal(t, fmt.Sprintf("s1:%d", i), view.Identity)
		assert.Equal(t, models.OccurrenceStatusUpcoming, view.Status)

		decoded, err := identity.Decode(view.Identity)
		require.NoError(t, err)
		assert.True(t, decoded.Date(day("2025-01-01")).Equal(view.Date))
	}
}

func TestCompleteVirtualOccurrenceMaterializesExactlyOnce(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	view, err := svc.Complete(context.Background(), "owner-1", "s1:3")
	require.NoError(t, err)
	assert.True(t, view.Completed)
	assert.False(t, view.IsVirtual)
	assert.Equal(t, "2025-01-04", recurrence.FormatDay(view.Date))
	assert.Equal(t, models.OccurrenceStatusCompleted, view.Status)
	assert.Equal(t, 1, store.rowCount())

	views := listAll(t, svc, "2025-01-04", "2025-01-04")
	require.Len(t, views, 1)
	assert.Equal(t, "s1:3", views[0].Identity)
	assert.True(t, views[0].Completed)
	assert.False(t, views[0].IsVirtual)

	_, err = svc.Complete(context.Background(), "owner-1", "s1:3")
	require.NoError(t, err)
	assert.Equal(t, 1, store.rowCount())
}

func TestCancelFromTruncatesSeries(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-05-25"))
	svc := newOccurrenceServiceForTest(store, "2025-05-25")
	ctx := context.Background()

	_, err := svc.Complete(ctx, "owner-1", "s1:3") // 2025-05-28
	require.NoError(t, err)
	title := "moved"
	_, err = svc.Update(ctx, "owner-1", "s1:9", dto.PatchOccurrenceRequest{Title: &title}) // 2025-06-03
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "owner-1", "s1:10") // 2025-06-04
	require.NoError(t, err)

	require.NoError(t, svc.CancelFrom(ctx, "owner-1", "s1:7")) // 2025-06-01

	views := listAll(t, svc, "2025-05-25", "2025-06-10")
	assert.Equal(t, []string{
		"2025-05-25", "2025-05-26", "2025-05-27", "2025-05-28", "2025-05-29", "2025-05-30", "2025-05-31",
		"2025-06-04",
	}, sortedDates(views))
	for _, view := range views {
		if !view.Date.Before(day("2025-06-01")) {
			assert.True(t, view.Completed, "only completed history survives past the boundary")
		}
	}
	require.NotNil(t, store.series["s1"].EndDate)
	assert.Equal(t, "2025-05-31", recurrence.FormatDay(*store.series["s1"].EndDate))

	_, err = svc.Get(ctx, "owner-1", "s1:8")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Restore(ctx, "owner-1", "s1:9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	require.NotNil(t, store.rows[rowKey("s1", day("2025-06-03"))].DeletedAt)
	assert.Len(t, listAll(t, svc, "2025-05-25", "2025-06-10"), 8)
}

func sortedDates(views []models.OccurrenceView) []string {
	dates := viewDates(views)
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j] < dates[j-1]; j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
	return dates
}

func TestCancelFromKeepsEarlierEndDate(t *testing.T) {
	series := dailySeries("s1", "2025-01-01")
	end := day("2025-01-10")
	series.EndDate = &end
	store := newMemoryStore(series)
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	require.NoError(t, svc.CancelFrom(context.Background(), "owner-1", "s1:4"))
	assert.Equal(t, "2025-01-04", recurrence.FormatDay(*store.series["s1"].EndDate))

	err := svc.CancelFrom(context.Background(), "owner-1", "s1:20")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, "2025-01-04", recurrence.FormatDay(*store.series["s1"].EndDate))
}

func TestCancelFromOneShotCancelsSingleOccurrence(t *testing.T) {
	oneShot := &models.Series{ID: "once", OwnerID: "owner-1", Title: "Dentist", AnchorDate: day("2025-03-03"), Active: true}
	store := newMemoryStore(oneShot)
	svc := newOccurrenceServiceForTest(store, "2025-03-01")

	require.NoError(t, svc.CancelFrom(context.Background(), "owner-1", "once:0"))

	assert.Empty(t, listAll(t, svc, "2025-03-01", "2025-03-31"))
	assert.Nil(t, store.series["once"].EndDate)
	assert.Equal(t, 1, store.rowCount())
}

func TestPromoteRejectsDatesTheSeriesDoesNotProduce(t *testing.T) {
	weekly := dailySeries("w1", "2025-01-06")
	weekly.Rule = &recurrence.Rule{
		Frequency:  recurrence.FrequencyWeekly,
		Interval:   1,
		ByWeekDays: []recurrence.WeekdayNum{{Weekday: time.Monday}, {Weekday: time.Wednesday}},
	}
	store := newMemoryStore(weekly)
	svc := newOccurrenceServiceForTest(store, "2025-01-06")
	ctx := context.Background()

	cases := []string{"w1:1", "w1:-1", "missing:0", "garbage", "w1:x"}
	for _, raw := range cases {
		_, err := svc.Complete(ctx, "owner-1", raw)
		assert.True(t, errors.Is(err, appErrors.ErrNotFound), raw)
	}

	_, err := svc.Complete(ctx, "owner-2", "w1:2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Complete(ctx, "owner-1", "w1:2")
	require.NoError(t, err)
	assert.Equal(t, 1, store.rowCount())
}

func TestPromoteRejectsInactiveSeries(t *testing.T) {
	series := dailySeries("s1", "2025-01-01")
	series.Active = false
	store := newMemoryStore(series)
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	_, err := svc.Complete(context.Background(), "owner-1", "s1:1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, listAll(t, svc, "2025-01-01", "2025-01-05"))
}

func TestConcurrentCompletionsConvergeOnOneRow(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Complete(context.Background(), "owner-1", "s1:5")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.rowCount())
	assert.Equal(t, writers, store.upserts)

	views := listAll(t, svc, "2025-01-06", "2025-01-06")
	require.Len(t, views, 1)
	assert.True(t, views[0].Completed)
}

func TestCancelAndRestoreSingleOccurrence(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")
	ctx := context.Background()

	require.NoError(t, svc.Cancel(ctx, "owner-1", "s1:2"))
	assert.NotContains(t, viewDates(listAll(t, svc, "2025-01-01", "2025-01-05")), "2025-01-03")

	_, err := svc.Get(ctx, "owner-1", "s1:2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Complete(ctx, "owner-1", "s1:2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	view, err := svc.Restore(ctx, "owner-1", "s1:2")
	require.NoError(t, err)
	assert.Equal(t, "s1:2", view.Identity)
	assert.Contains(t, viewDates(listAll(t, svc, "2025-01-01", "2025-01-05")), "2025-01-03")

	_, err = svc.Restore(ctx, "owner-1", "s1:2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateOverridesFieldsAndUncomplete(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")
	ctx := context.Background()

	title := "Water the ferns"
	priority := 2
	tags := []string{" garden ", "garden"}
	view, err := svc.Update(ctx, "owner-1", "s1:1", dto.PatchOccurrenceRequest{Title: &title, Priority: &priority, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "Water the ferns", view.Title)
	assert.Equal(t, 2, view.Priority)
	assert.Equal(t, []string{"garden"}, view.Tags)
	assert.Equal(t, "Water plants", store.series["s1"].Title)

	_, err = svc.Complete(ctx, "owner-1", "s1:1")
	require.NoError(t, err)
	view, err = svc.Uncomplete(ctx, "owner-1", "s1:1")
	require.NoError(t, err)
	assert.False(t, view.Completed)
	assert.Nil(t, view.CompletedAt)
	assert.Equal(t, "Water the ferns", view.Title)

	_, err = svc.Update(ctx, "owner-1", "s1:1", dto.PatchOccurrenceRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	bad := "25:00"
	_, err = svc.Update(ctx, "owner-1", "s1:1", dto.PatchOccurrenceRequest{DueTime: &bad})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPromoteMapsStorageErrors(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	store.upsertErr = fmt.Errorf("upsert occurrence: %w", repository.ErrDuplicateOccurrence)
	_, err := svc.Complete(context.Background(), "owner-1", "s1:1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	store.upsertErr = repository.ErrOccurrenceCancelled
	_, err = svc.Complete(context.Background(), "owner-1", "s1:1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	store.upsertErr = errors.New("connection reset")
	_, err = svc.Complete(context.Background(), "owner-1", "s1:1")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestListFiltersAndOrdersOccurrences(t *testing.T) {
	work := "work"
	chores := dailySeries("a-chores", "2025-01-01")
	report := &models.Series{
		ID:         "b-report",
		OwnerID:    "owner-1",
		Title:      "Weekly report",
		Priority:   2,
		CategoryID: &work,
		Tags:       pq.StringArray{"office"},
		AnchorDate: day("2025-01-01"),
		Rule:       &recurrence.Rule{Frequency: recurrence.FrequencyWeekly, Interval: 1},
		Active:     true,
	}
	store := newMemoryStore(chores, report)
	svc := newOccurrenceServiceForTest(store, "2025-01-03")
	ctx := context.Background()

	_, err := svc.Complete(ctx, "owner-1", "a-chores:0")
	require.NoError(t, err)

	views := listAll(t, svc, "2025-01-01", "2025-01-08")
	require.Len(t, views, 10)
	// overdue first, then upcoming by date with higher priority first, completed last
	assert.Equal(t, "b-report:0", views[0].Identity)
	assert.Equal(t, models.OccurrenceStatusOverdue, views[0].Status)
	assert.Equal(t, "a-chores:1", views[1].Identity)
	assert.Equal(t, "a-chores:2", views[2].Identity)
	assert.Equal(t, models.OccurrenceStatusUpcoming, views[2].Status)
	assert.Equal(t, "b-report:7", views[7].Identity)
	assert.Equal(t, "a-chores:7", views[8].Identity)
	assert.Equal(t, "a-chores:0", views[9].Identity)
	assert.Equal(t, models.OccurrenceStatusCompleted, views[9].Status)

	filtered, total, err := svc.ListOccurrences(ctx, models.OccurrenceQuery{
		OwnerID: "owner-1", Start: day("2025-01-01"), End: day("2025-01-08"), Keyword: "OFFICE",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"b-report:0", "b-report:7"}, []string{filtered[0].Identity, filtered[1].Identity})

	filtered, total, err = svc.ListOccurrences(ctx, models.OccurrenceQuery{
		OwnerID: "owner-1", Start: day("2025-01-01"), End: day("2025-01-08"), CategoryIDs: []string{models.UncategorizedFilter},
		Statuses: []models.OccurrenceStatus{models.OccurrenceStatusCompleted, models.OccurrenceStatusOverdue},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "a-chores:1", filtered[0].Identity)
	assert.Equal(t, "a-chores:0", filtered[1].Identity)

	_, total, err = svc.ListOccurrences(ctx, models.OccurrenceQuery{
		OwnerID: "owner-1", Start: day("2025-01-01"), End: day("2025-01-08"), Priorities: []int{2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestListPaginatesAndValidatesRange(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")
	ctx := context.Background()

	items, page, hit, err := svc.List(ctx, "owner-1", dto.OccurrenceListQuery{
		StartDate: "2025-01-01", EndDate: "2025-01-10", Page: 2, PageSize: 4,
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"2025-01-05", "2025-01-06", "2025-01-07", "2025-01-08"}, viewDates(items))
	assert.Equal(t, &models.Pagination{Page: 2, PageSize: 4, TotalCount: 10}, page)

	items, page, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{
		StartDate: "2025-01-01", EndDate: "2025-01-10", Page: 9, PageSize: 1000,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 200, page.PageSize)

	_, _, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2026-01-02"})
	assert.True(t, errors.Is(err, appErrors.ErrRangeTooLarge))

	_, _, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2025-12-31"})
	assert.NoError(t, err)

	_, _, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{StartDate: "2025-01-10", EndDate: "2025-01-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2025-01-10", Statuses: "later"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2025-01-10", Priorities: "7"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, _, err = svc.List(ctx, "owner-1", dto.OccurrenceListQuery{StartDate: "01/01/2025", EndDate: "2025-01-10"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestListServesFromCacheUntilWrite(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	cacheRepo := newMemoryCacheRepo()
	svc := newOccurrenceServiceForTest(store, "2025-01-01")
	svc.cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	query := dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2025-01-03"}

	_, _, hit, err := svc.List(ctx, "owner-1", query)
	require.NoError(t, err)
	assert.False(t, hit)

	items, page, hit, err := svc.List(ctx, "owner-1", query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, page.TotalCount)

	_, err = svc.Complete(ctx, "owner-1", "s1:1")
	require.NoError(t, err)
	assert.Zero(t, cacheRepo.size())

	items, _, hit, err = svc.List(ctx, "owner-1", query)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, items[2].Completed)
}

func TestListDoesNotCacheAPageRacingAWrite(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	cacheRepo := newMemoryCacheRepo()
	svc := newOccurrenceServiceForTest(store, "2025-01-01")
	svc.cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	query := dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2025-01-03"}

	var once sync.Once
	store.afterList = func() {
		once.Do(func() {
			_, err := svc.Complete(ctx, "owner-1", "s1:1")
			assert.NoError(t, err)
		})
	}

	_, _, hit, err := svc.List(ctx, "owner-1", query)
	require.NoError(t, err)
	assert.False(t, hit)

	items, _, hit, err := svc.List(ctx, "owner-1", query)
	require.NoError(t, err)
	assert.False(t, hit, "a page computed before the write must not be served")
	completed := map[string]bool{}
	for _, item := range items {
		completed[item.Identity] = item.Completed
	}
	assert.True(t, completed["s1:1"])

	_, _, hit, err = svc.List(ctx, "owner-1", query)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestListSkipsCacheWhenGenerationUnreadable(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.counterErr = errors.New("redis down")
	svc := newOccurrenceServiceForTest(store, "2025-01-01")
	svc.cache = NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	query := dto.OccurrenceListQuery{StartDate: "2025-01-01", EndDate: "2025-01-03"}

	for i := 0; i < 2; i++ {
		items, _, hit, err := svc.List(ctx, "owner-1", query)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Len(t, items, 3)
	}
	assert.Zero(t, cacheRepo.size())
}

func TestCalendarStatusAndStatistics(t *testing.T) {
	weekly := dailySeries("w1", "2025-02-03")
	weekly.Rule = &recurrence.Rule{Frequency: recurrence.FrequencyWeekly, Interval: 1}
	store := newMemoryStore(weekly)
	svc := newOccurrenceServiceForTest(store, "2025-02-10")
	ctx := context.Background()

	_, err := svc.Complete(ctx, "owner-1", "w1:7")
	require.NoError(t, err)

	days, err := svc.CalendarStatus(ctx, "owner-1", dto.CalendarQuery{Year: 2025, Month: 2})
	require.NoError(t, err)
	require.Len(t, days, 28)
	var marked []int
	for _, d := range days {
		if d.HasOccurrences {
			marked = append(marked, d.Date.Day())
		}
	}
	assert.Equal(t, []int{3, 10, 17, 24}, marked)
	assert.Equal(t, 1, days[9].Completed)

	_, err = svc.CalendarStatus(ctx, "owner-1", dto.CalendarQuery{Year: 2025, Month: 13})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	stats, err := svc.Statistics(ctx, "owner-1", dto.StatisticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, &models.OccurrenceStatistics{Date: day("2025-02-10"), Total: 1, Completed: 1}, stats)

	stats, err = svc.Statistics(ctx, "owner-1", dto.StatisticsQuery{Date: "2025-02-17"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.InProgress)
}

func TestAgendaSortsByDate(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-03")

	_, err := svc.Complete(context.Background(), "owner-1", "s1:0")
	require.NoError(t, err)

	views, err := svc.Agenda(context.Background(), "owner-1", day("2025-01-01"), day("2025-01-04"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04"}, viewDates(views))

	views, err = svc.Agenda(context.Background(), "owner-1", day("2025-01-01"), day("2025-01-04"), "nothing matches")
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestMaterializedRowsOutliveRuleChanges(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	_, err := svc.Complete(context.Background(), "owner-1", "s1:1")
	require.NoError(t, err)
	store.series["s1"].Rule = &recurrence.Rule{Frequency: recurrence.FrequencyWeekly, Interval: 1}

	views := listAll(t, svc, "2025-01-01", "2025-01-08")
	assert.Equal(t, []string{"2025-01-01", "2025-01-08", "2025-01-02"}, viewDates(views))
	assert.True(t, views[2].Completed)
}

func TestMergeSurfacesStorageErrors(t *testing.T) {
	store := newMemoryStore(dailySeries("s1", "2025-01-01"))
	store.listErr = errors.New("boom")
	svc := newOccurrenceServiceForTest(store, "2025-01-01")

	_, _, err := svc.ListOccurrences(context.Background(), models.OccurrenceQuery{OwnerID: "owner-1", Start: day("2025-01-01"), End: day("2025-01-02")})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
