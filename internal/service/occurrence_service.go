package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/recurring-todo-api/internal/dto"
	"github.com/noah-isme/recurring-todo-api/internal/identity"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
	"github.com/noah-isme/recurring-todo-api/internal/repository"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
)

type occurrenceStore interface {
	ListInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.MaterializedOccurrence, error)
	FindByKey(ctx context.Context, seriesID string, date time.Time) (*models.Occurrence, error)
	Upsert(ctx context.Context, change models.OccurrenceChange, at time.Time) (*models.Occurrence, error)
	Restore(ctx context.Context, seriesID string, date time.Time, at time.Time) (bool, error)
	SoftDeleteFrom(ctx context.Context, seriesID string, from time.Time, at time.Time) error
}

type seriesSource interface {
	FindByID(ctx context.Context, ownerID, id string, includeDeleted bool) (*models.Series, error)
	ListActiveInRange(ctx context.Context, ownerID string, start, end time.Time) ([]models.Series, error)
}

// OccurrenceServiceConfig tunes listing behaviour.
type OccurrenceServiceConfig struct {
	MaxRangeDays    int
	DefaultPageSize int
	MaxPageSize     int
	Workers         int
	Location        *time.Location
	CacheTTL        time.Duration
}

// OccurrenceServiceParams groups constructor dependencies.
type OccurrenceServiceParams struct {
	Occurrences occurrenceStore
	Series      seriesSource
	Cache       *CacheService
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Config      OccurrenceServiceConfig
}

// OccurrenceService merges generated and stored occurrences and applies promote-on-write
// mutations.
type OccurrenceService struct {
	occurrences occurrenceStore
	series      seriesSource
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
	cfg         OccurrenceServiceConfig
}

// NewOccurrenceService constructs an OccurrenceService with sane defaults.
func NewOccurrenceService(params OccurrenceServiceParams) *OccurrenceService {
	cfg := params.Config
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 366
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 200
	}
	if cfg.DefaultPageSize > cfg.MaxPageSize {
		cfg.DefaultPageSize = cfg.MaxPageSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	registerTodoValidations(validate)
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccurrenceService{
		occurrences: params.Occurrences,
		series:      params.Series,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// Today returns the current calendar date in the configured timezone.
func (s *OccurrenceService) Today() time.Time {
	return recurrence.Day(s.now().In(s.cfg.Location))
}

// List parses a listing request and returns one page of occurrences. The boolean reports a
// cache hit.
func (s *OccurrenceService) List(ctx context.Context, ownerID string, req dto.OccurrenceListQuery) ([]models.OccurrenceView, *models.Pagination, bool, error) {
	query, err := s.parseListQuery(ownerID, req)
	if err != nil {
		return nil, nil, false, err
	}

	// The generation is read before the merge: a write that lands while the page is being
	// computed advances it, and the stale page is stored under a key nobody reads.
	generation, cacheable := s.cache.Generation(ctx, repository.OccurrenceGenerationKey(ownerID))
	key := repository.OccurrenceListKey(ownerID, generation, recurrence.FormatDay(s.Today()), queryDigest(query))
	var cached dto.OccurrencePage
	if cacheable && s.cache.Get(ctx, key, &cached) {
		return cached.Items, s.pagination(query, cached.TotalCount), true, nil
	}

	items, total, err := s.ListOccurrences(ctx, query)
	if err != nil {
		return nil, nil, false, err
	}
	if cacheable {
		s.cache.Set(ctx, key, dto.OccurrencePage{Items: items, TotalCount: total}, s.cfg.CacheTTL)
	}
	return items, s.pagination(query, total), false, nil
}

// ListOccurrences merges stored and generated occurrences for the query range, filters and
// sorts them, and returns the requested page together with the filtered total.
func (s *OccurrenceService) ListOccurrences(ctx context.Context, query models.OccurrenceQuery) ([]models.OccurrenceView, int, error) {
	if err := s.checkRange(query.Start, query.End); err != nil {
		return nil, 0, err
	}
	views, err := s.merge(ctx, query.OwnerID, query.Start, query.End)
	if err != nil {
		return nil, 0, err
	}

	filtered := views[:0]
	for _, view := range views {
		if matchesQuery(view, query) {
			filtered = append(filtered, view)
		}
	}
	sortViews(filtered)

	total := len(filtered)
	page, size := s.pageBounds(query.Page, query.PageSize)
	offset := (page - 1) * size
	if offset >= total {
		return []models.OccurrenceView{}, total, nil
	}
	end := offset + size
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

// Agenda returns every visible occurrence in [start, end] sorted for display, optionally
// narrowed by keyword.
func (s *OccurrenceService) Agenda(ctx context.Context, ownerID string, start, end time.Time, keyword string) ([]models.OccurrenceView, error) {
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	views, err := s.merge(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	query := models.OccurrenceQuery{Keyword: keyword}
	filtered := views[:0]
	for _, view := range views {
		if matchesQuery(view, query) {
			filtered = append(filtered, view)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.Before(filtered[j].Date)
		}
		return lessView(filtered[i], filtered[j])
	})
	return filtered, nil
}

// CalendarStatus reports, for every day of the month, how many occurrences fall on it.
func (s *OccurrenceService) CalendarStatus(ctx context.Context, ownerID string, req dto.CalendarQuery) ([]models.DayStatus, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid calendar month")
	}
	first := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	views, err := s.merge(ctx, ownerID, first, last)
	if err != nil {
		return nil, err
	}

	days := make([]models.DayStatus, last.Day())
	for i := range days {
		days[i].Date = first.AddDate(0, 0, i)
	}
	for _, view := range views {
		idx := view.Date.Day() - 1
		days[idx].Total++
		if view.Completed {
			days[idx].Completed++
		}
	}
	for i := range days {
		days[i].HasOccurrences = days[i].Total > 0
	}
	return days, nil
}

// Statistics counts the occurrences of one day. An empty date means today.
func (s *OccurrenceService) Statistics(ctx context.Context, ownerID string, req dto.StatisticsQuery) (*models.OccurrenceStatistics, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid statistics date")
	}
	date := s.Today()
	if req.Date != "" {
		parsed, err := parseDayField("date", req.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}

	views, err := s.merge(ctx, ownerID, date, date)
	if err != nil {
		return nil, err
	}
	stats := &models.OccurrenceStatistics{Date: date, Total: len(views)}
	for _, view := range views {
		if view.Completed {
			stats.Completed++
		}
	}
	stats.InProgress = stats.Total - stats.Completed
	return stats, nil
}

// Get resolves an identity to its stored or generated occurrence.
func (s *OccurrenceService) Get(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error) {
	target, err := s.resolve(ctx, ownerID, rawIdentity)
	if err != nil {
		return nil, err
	}
	if target.existing != nil {
		view := storedView(target.series, target.existing, s.Today())
		return &view, nil
	}
	if !target.series.Active || !target.series.Produces(target.date) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
	}
	view := virtualView(target.series, target.date, s.Today())
	return &view, nil
}

// Complete marks an occurrence done, materializing it when needed.
func (s *OccurrenceService) Complete(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error) {
	at := s.now().UTC()
	done := true
	return s.promote(ctx, ownerID, rawIdentity, func(change *models.OccurrenceChange) {
		change.Completed = &done
		change.CompletedAt = &at
	})
}

// Uncomplete reverts a completion.
func (s *OccurrenceService) Uncomplete(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error) {
	done := false
	return s.promote(ctx, ownerID, rawIdentity, func(change *models.OccurrenceChange) {
		change.Completed = &done
		change.CompletedAt = nil
	})
}

// Update applies field overrides to a single occurrence.
func (s *OccurrenceService) Update(ctx context.Context, ownerID, rawIdentity string, req dto.PatchOccurrenceRequest) (*models.OccurrenceView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid occurrence payload")
	}
	patch := models.OccurrencePatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
		Tags:        req.Tags,
		DueTime:     req.DueTime,
		Completed:   req.Completed,
	}
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	if patch.Tags != nil {
		tags := normalizeTags(*patch.Tags)
		patch.Tags = &tags
	}
	at := s.now().UTC()
	return s.promote(ctx, ownerID, rawIdentity, func(change *models.OccurrenceChange) {
		change.Title = patch.Title
		change.Description = patch.Description
		change.Priority = patch.Priority
		change.CategoryID = patch.CategoryID
		change.Tags = patch.Tags
		change.DueTime = patch.DueTime
		if patch.Completed != nil {
			change.Completed = patch.Completed
			if *patch.Completed {
				change.CompletedAt = &at
			}
		}
	})
}

// Cancel removes a single occurrence by leaving a tombstone for its date.
func (s *OccurrenceService) Cancel(ctx context.Context, ownerID, rawIdentity string) error {
	_, err := s.promote(ctx, ownerID, rawIdentity, func(change *models.OccurrenceChange) {
		change.Cancel = true
	})
	return err
}

// CancelFrom ends the series before the occurrence's date so it and every later occurrence
// disappear. Completed occurrences are kept. For a one-shot series it behaves like Cancel.
func (s *OccurrenceService) CancelFrom(ctx context.Context, ownerID, rawIdentity string) error {
	target, err := s.resolve(ctx, ownerID, rawIdentity)
	if err != nil {
		return err
	}
	if !target.series.IsRecurring() {
		return s.Cancel(ctx, ownerID, rawIdentity)
	}
	if target.existing == nil && !target.series.Produces(target.date) {
		return appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
	}
	if err := s.occurrences.SoftDeleteFrom(ctx, target.series.ID, target.date, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel following occurrences")
	}
	s.invalidate(ctx, ownerID)
	s.logger.Info("series truncated",
		zap.String("series_id", target.series.ID),
		zap.String("owner_id", ownerID),
		zap.String("from", recurrence.FormatDay(target.date)),
	)
	return nil
}

// Restore revives a cancelled single occurrence. Rows tombstoned by CancelFrom lie past the
// series end and stay cancelled; moving the end date back is a series update.
func (s *OccurrenceService) Restore(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error) {
	id, series, err := s.decode(ctx, ownerID, rawIdentity)
	if err != nil {
		return nil, err
	}
	date := id.Date(series.AnchorDate)
	if series.IsRecurring() && series.EndDate != nil && date.After(recurrence.Day(*series.EndDate)) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cancelled occurrence not found")
	}
	restored, err := s.occurrences.Restore(ctx, series.ID, date, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore occurrence")
	}
	if !restored {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cancelled occurrence not found")
	}
	s.invalidate(ctx, ownerID)
	return s.Get(ctx, ownerID, rawIdentity)
}

type promotionTarget struct {
	series   *models.Series
	date     time.Time
	existing *models.Occurrence
}

func (s *OccurrenceService) decode(ctx context.Context, ownerID, rawIdentity string) (identity.Identity, *models.Series, error) {
	id, err := identity.Decode(rawIdentity)
	if err != nil {
		return identity.Identity{}, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "occurrence not found")
	}
	series, err := s.series.FindByID(ctx, ownerID, id.SeriesID, false)
	if err != nil {
		return identity.Identity{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	if series == nil {
		return identity.Identity{}, nil, appErrors.Clone(appErrors.ErrNotFound, "series not found")
	}
	return id, series, nil
}

// resolve loads the series and any stored row for an identity. Cancelled rows resolve to
// NOT_FOUND.
func (s *OccurrenceService) resolve(ctx context.Context, ownerID, rawIdentity string) (*promotionTarget, error) {
	id, series, err := s.decode(ctx, ownerID, rawIdentity)
	if err != nil {
		return nil, err
	}
	date := id.Date(series.AnchorDate)
	existing, err := s.occurrences.FindByKey(ctx, series.ID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrence")
	}
	if existing.Cancelled() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence cancelled")
	}
	return &promotionTarget{series: series, date: date, existing: existing}, nil
}

// promote writes change to the occurrence addressed by rawIdentity, materializing a virtual
// occurrence on first write. The upsert arbitrates concurrent first writes.
func (s *OccurrenceService) promote(ctx context.Context, ownerID, rawIdentity string, apply func(*models.OccurrenceChange)) (*models.OccurrenceView, error) {
	target, err := s.resolve(ctx, ownerID, rawIdentity)
	if err != nil {
		return nil, err
	}
	if target.existing == nil && (!target.series.Active || !target.series.Produces(target.date)) {
		s.metrics.ObservePromotion(PromotionRejected)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
	}

	change := models.OccurrenceChange{SeriesID: target.series.ID, Date: target.date}
	apply(&change)

	stored, err := s.occurrences.Upsert(ctx, change, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOccurrenceCancelled):
			s.metrics.ObservePromotion(PromotionRejected)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence cancelled")
		case errors.Is(err, repository.ErrSeriesMissing):
			s.metrics.ObservePromotion(PromotionRejected)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "series not found")
		case errors.Is(err, repository.ErrDuplicateOccurrence):
			s.metrics.ObservePromotion(PromotionConflict)
			s.logger.Error("occurrence uniqueness violated despite upsert",
				zap.String("series_id", target.series.ID),
				zap.String("date", recurrence.FormatDay(target.date)),
				zap.Error(err),
			)
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "occurrence was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save occurrence")
	}

	outcome := PromotionUpdated
	switch {
	case change.Cancel:
		outcome = PromotionCancelled
	case target.existing == nil:
		outcome = PromotionCreated
	}
	s.metrics.ObservePromotion(outcome)
	s.invalidate(ctx, ownerID)

	view := storedView(target.series, stored, s.Today())
	return &view, nil
}

// merge returns every visible occurrence of ownerID in [start, end], unfiltered and unsorted.
func (s *OccurrenceService) merge(ctx context.Context, ownerID string, start, end time.Time) ([]models.OccurrenceView, error) {
	start, end = recurrence.Day(start), recurrence.Day(end)
	today := s.Today()

	stored, err := s.timedStored(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	series, err := s.timedSeries(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]struct{}, len(stored))
	views := make([]models.OccurrenceView, 0, len(stored))
	for i := range stored {
		row := &stored[i]
		covered[coverKey(row.SeriesID, row.OccurrenceDate)] = struct{}{}
		if row.Cancelled() {
			continue
		}
		views = append(views, materializedView(row, today))
	}

	startedAt := time.Now()
	generated := make([][]models.OccurrenceView, len(series))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)
	for i := range series {
		i := i
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := &series[i]
			var out []models.OccurrenceView
			for _, date := range item.DatesBetween(start, end) {
				if _, ok := covered[coverKey(item.ID, date)]; ok {
					continue
				}
				out = append(out, virtualView(item, date, today))
			}
			generated[i] = out
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var virtual int
	for _, chunk := range generated {
		virtual += len(chunk)
		views = append(views, chunk...)
	}
	s.metrics.ObserveExpansion(virtual, time.Since(startedAt))
	return views, nil
}

func (s *OccurrenceService) timedStored(ctx context.Context, ownerID string, start, end time.Time) ([]models.MaterializedOccurrence, error) {
	began := time.Now()
	rows, err := s.occurrences.ListInRange(ctx, ownerID, start, end)
	s.metrics.ObserveDBQuery("occurrences_in_range", time.Since(began))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrences")
	}
	return rows, nil
}

func (s *OccurrenceService) timedSeries(ctx context.Context, ownerID string, start, end time.Time) ([]models.Series, error) {
	began := time.Now()
	series, err := s.series.ListActiveInRange(ctx, ownerID, start, end)
	s.metrics.ObserveDBQuery("series_in_range", time.Since(began))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	return series, nil
}

func (s *OccurrenceService) checkRange(start, end time.Time) error {
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if recurrence.DaysBetween(start, end)+1 > s.cfg.MaxRangeDays {
		return appErrors.Clone(appErrors.ErrRangeTooLarge, fmt.Sprintf("date range may span at most %d days", s.cfg.MaxRangeDays))
	}
	return nil
}

func (s *OccurrenceService) parseListQuery(ownerID string, req dto.OccurrenceListQuery) (models.OccurrenceQuery, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.OccurrenceQuery{}, invalidPayload(err, "invalid occurrence query")
	}
	start, err := parseDayField("start_date", req.StartDate)
	if err != nil {
		return models.OccurrenceQuery{}, err
	}
	end, err := parseDayField("end_date", req.EndDate)
	if err != nil {
		return models.OccurrenceQuery{}, err
	}

	query := models.OccurrenceQuery{
		OwnerID:     ownerID,
		Start:       start,
		End:         end,
		Keyword:     strings.TrimSpace(req.Keyword),
		CategoryIDs: splitList(req.CategoryIDs),
		Page:        req.Page,
		PageSize:    req.PageSize,
	}
	for _, raw := range splitList(req.Priorities) {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 || p > 2 {
			return models.OccurrenceQuery{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid priority %q", raw))
		}
		query.Priorities = append(query.Priorities, p)
	}
	for _, raw := range splitList(req.Statuses) {
		status := models.OccurrenceStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return models.OccurrenceQuery{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", raw))
		}
		query.Statuses = append(query.Statuses, status)
	}
	if err := s.checkRange(start, end); err != nil {
		return models.OccurrenceQuery{}, err
	}
	return query, nil
}

func (s *OccurrenceService) pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return page, size
}

func (s *OccurrenceService) pagination(query models.OccurrenceQuery, total int) *models.Pagination {
	page, size := s.pageBounds(query.Page, query.PageSize)
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func (s *OccurrenceService) invalidate(ctx context.Context, ownerID string) {
	s.cache.Advance(ctx, repository.OccurrenceGenerationKey(ownerID))
	s.cache.Invalidate(ctx, repository.OccurrenceOwnerPattern(ownerID))
}

func coverKey(seriesID string, date time.Time) string {
	return seriesID + "|" + recurrence.FormatDay(date)
}

func statusFor(date time.Time, completed bool, today time.Time) models.OccurrenceStatus {
	switch {
	case completed:
		return models.OccurrenceStatusCompleted
	case !date.IsZero() && date.Before(today):
		return models.OccurrenceStatusOverdue
	default:
		return models.OccurrenceStatusUpcoming
	}
}

func virtualView(series *models.Series, date time.Time, today time.Time) models.OccurrenceView {
	id := identity.New(series.ID, series.AnchorDate, date)
	return models.OccurrenceView{
		Identity:    id.String(),
		SeriesID:    series.ID,
		Offset:      id.Offset,
		Title:       series.Title,
		Description: series.Description,
		Priority:    series.Priority,
		CategoryID:  series.CategoryID,
		Tags:        copyTags(series.Tags),
		Date:        date,
		Time:        series.DueTime,
		IsVirtual:   true,
		Recurring:   series.IsRecurring(),
		Status:      statusFor(date, false, today),
	}
}

func materializedView(row *models.MaterializedOccurrence, today time.Time) models.OccurrenceView {
	series := &models.Series{
		ID:          row.SeriesID,
		Title:       row.SeriesTitle,
		Description: row.SeriesDescription,
		Priority:    row.SeriesPriority,
		CategoryID:  row.SeriesCategoryID,
		Tags:        row.SeriesTags,
		DueTime:     row.SeriesDueTime,
		AnchorDate:  row.SeriesAnchorDate,
	}
	view := storedView(series, &row.Occurrence, today)
	view.Recurring = row.SeriesRecurring
	return view
}

// storedView overlays a stored row's overrides on its series.
func storedView(series *models.Series, row *models.Occurrence, today time.Time) models.OccurrenceView {
	date := recurrence.Day(row.OccurrenceDate)
	view := virtualView(series, date, today)
	view.IsVirtual = false
	view.Completed = row.Completed
	view.CompletedAt = row.CompletedAt
	view.Cancelled = row.Cancelled()
	if row.Title != nil {
		view.Title = *row.Title
	}
	if row.Description != nil {
		view.Description = *row.Description
	}
	if row.Priority != nil {
		view.Priority = *row.Priority
	}
	if row.CategoryID != nil {
		view.CategoryID = row.CategoryID
	}
	if row.Tags != nil {
		view.Tags = copyTags(*row.Tags)
	}
	if row.DueTime != nil {
		view.Time = row.DueTime
	}
	view.Status = statusFor(date, row.Completed, today)
	return view
}

func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

func matchesQuery(view models.OccurrenceView, query models.OccurrenceQuery) bool {
	if keyword := strings.ToLower(query.Keyword); keyword != "" {
		found := strings.Contains(strings.ToLower(view.Title), keyword) ||
			strings.Contains(strings.ToLower(view.Description), keyword)
		for _, tag := range view.Tags {
			if found {
				break
			}
			found = strings.Contains(strings.ToLower(tag), keyword)
		}
		if !found {
			return false
		}
	}
	if len(query.CategoryIDs) > 0 {
		matched := false
		for _, category := range query.CategoryIDs {
			if (category == models.UncategorizedFilter && view.CategoryID == nil) ||
				(view.CategoryID != nil && *view.CategoryID == category) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(query.Priorities) > 0 {
		matched := false
		for _, p := range query.Priorities {
			if view.Priority == p {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(query.Statuses) > 0 {
		matched := false
		for _, status := range query.Statuses {
			if view.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// sortViews orders undated items last, then by status rank, date, descending priority and
// identity.
func sortViews(views []models.OccurrenceView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Date.IsZero() != b.Date.IsZero() {
			return !a.Date.IsZero()
		}
		if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
			return ra < rb
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return lessView(a, b)
	})
}

func lessView(a, b models.OccurrenceView) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return identity.Compare(
		identity.Identity{SeriesID: a.SeriesID, Offset: a.Offset},
		identity.Identity{SeriesID: b.SeriesID, Offset: b.Offset},
	) < 0
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var digestNamespace = uuid.MustParse("6f1d2c1e-9a53-4d8e-a3c4-2b7f0e5d9c11")

// queryDigest derives a stable cache key component from a normalised query.
func queryDigest(query models.OccurrenceQuery) string {
	categories := append([]string(nil), query.CategoryIDs...)
	sort.Strings(categories)
	priorities := append([]int(nil), query.Priorities...)
	sort.Ints(priorities)
	statuses := make([]string, 0, len(query.Statuses))
	for _, status := range query.Statuses {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%v|%s|%d|%d",
		recurrence.FormatDay(query.Start),
		recurrence.FormatDay(query.End),
		strings.ToLower(query.Keyword),
		strings.Join(categories, ","),
		priorities,
		strings.Join(statuses, ","),
		query.Page,
		query.PageSize,
	)
	return uuid.NewSHA1(digestNamespace, []byte(b.String())).String()
}
