package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/recurring-todo-api/internal/dto"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
	"github.com/noah-isme/recurring-todo-api/internal/repository"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
)

const defaultSeriesPriority = 1

type seriesRepository interface {
	Create(ctx context.Context, series *models.Series) error
	FindByID(ctx context.Context, ownerID, id string, includeDeleted bool) (*models.Series, error)
	List(ctx context.Context, filter models.SeriesFilter) ([]models.Series, int, error)
	Update(ctx context.Context, series *models.Series) error
	SoftDelete(ctx context.Context, ownerID, id string, at time.Time) (bool, error)
	Restore(ctx context.Context, ownerID, id string, at time.Time) (bool, error)
}

// SeriesServiceConfig tunes series authoring.
type SeriesServiceConfig struct {
	PreviewMaxDates int
	MaxRangeDays    int
}

// SeriesService manages series definitions.
type SeriesService struct {
	repo      seriesRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       SeriesServiceConfig
}

// NewSeriesService constructs the service.
func NewSeriesService(repo seriesRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg SeriesServiceConfig) *SeriesService {
	if validate == nil {
		validate = validator.New()
	}
	registerTodoValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PreviewMaxDates <= 0 {
		cfg.PreviewMaxDates = 100
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = 366
	}
	return &SeriesService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now, cfg: cfg}
}

// Create validates and stores a new series for ownerID.
func (s *SeriesService) Create(ctx context.Context, ownerID string, req dto.SeriesRequest) (*models.Series, error) {
	series := &models.Series{OwnerID: ownerID, Active: true}
	if err := s.applyRequest(series, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, series); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create series")
	}
	s.invalidate(ctx, ownerID)
	s.logger.Info("series created",
		zap.String("series_id", series.ID),
		zap.String("owner_id", ownerID),
		zap.Bool("recurring", series.IsRecurring()),
	)
	return series, nil
}

// Get returns a live series owned by ownerID.
func (s *SeriesService) Get(ctx context.Context, ownerID, id string) (*models.Series, error) {
	return s.load(ctx, ownerID, id)
}

// List returns ownerID's series with pagination metadata.
func (s *SeriesService) List(ctx context.Context, ownerID string, query dto.SeriesListQuery) ([]models.Series, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, invalidPayload(err, "invalid series query")
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 20
	}
	series, total, err := s.repo.List(ctx, models.SeriesFilter{
		OwnerID:        ownerID,
		Search:         query.Search,
		Active:         query.Active,
		Recurring:      query.Recurring,
		IncludeDeleted: query.IncludeDeleted,
		Page:           page,
		PageSize:       size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list series")
	}
	return series, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Replace overwrites every field of a series. Stored occurrences are left as they are.
func (s *SeriesService) Replace(ctx context.Context, ownerID, id string, req dto.SeriesRequest) (*models.Series, error) {
	series, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(series, req); err != nil {
		return nil, err
	}
	return s.save(ctx, series)
}

// Patch updates the provided series fields.
func (s *SeriesService) Patch(ctx context.Context, ownerID, id string, req dto.PatchSeriesRequest) (*models.Series, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err, "invalid series payload")
	}
	series, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		series.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		series.Description = *req.Description
	}
	if req.Priority != nil {
		series.Priority = *req.Priority
	}
	if req.CategoryID != nil {
		series.CategoryID = emptyToNil(*req.CategoryID)
	}
	if req.Tags != nil {
		series.Tags = normalizeTags(*req.Tags)
	}
	if req.DueTime != nil {
		series.DueTime = emptyToNil(*req.DueTime)
	}
	if req.AnchorDate != nil {
		anchor, err := parseDayField("anchor_date", *req.AnchorDate)
		if err != nil {
			return nil, err
		}
		series.AnchorDate = anchor
	}
	switch {
	case req.ClearEndDate:
		series.EndDate = nil
	case req.EndDate != nil:
		end, err := parseDayField("end_date", *req.EndDate)
		if err != nil {
			return nil, err
		}
		series.EndDate = &end
	}
	switch {
	case req.ClearRule:
		series.Rule = nil
	case req.Rule != nil:
		series.Rule = req.Rule.Clone()
	}
	if req.Active != nil {
		series.Active = *req.Active
	}

	if err := s.checkSeries(series); err != nil {
		return nil, err
	}
	return s.save(ctx, series)
}

// Delete soft deletes a series together with its stored occurrences.
func (s *SeriesService) Delete(ctx context.Context, ownerID, id string) error {
	deleted, err := s.repo.SoftDelete(ctx, ownerID, id, s.now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete series")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "series not found")
	}
	s.invalidate(ctx, ownerID)
	s.logger.Info("series deleted", zap.String("series_id", id), zap.String("owner_id", ownerID))
	return nil
}

// Restore undoes a soft delete, reviving the occurrences removed with it.
func (s *SeriesService) Restore(ctx context.Context, ownerID, id string) (*models.Series, error) {
	restored, err := s.repo.Restore(ctx, ownerID, id, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore series")
	}
	if !restored {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "deleted series not found")
	}
	s.invalidate(ctx, ownerID)
	s.logger.Info("series restored", zap.String("series_id", id), zap.String("owner_id", ownerID))
	return s.load(ctx, ownerID, id)
}

// Preview lists the dates a series generates in [from, to], capped at the configured maximum.
func (s *SeriesService) Preview(ctx context.Context, ownerID, id string, query dto.PreviewQuery) (*dto.SeriesPreview, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, invalidPayload(err, "invalid preview window")
	}
	from, err := parseDayField("from", query.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDayField("to", query.To)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if recurrence.DaysBetween(from, to) >= s.cfg.MaxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrRangeTooLarge, "")
	}

	series, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	dates := series.DatesBetween(from, to)
	preview := &dto.SeriesPreview{
		SeriesID: series.ID,
		From:     recurrence.FormatDay(from),
		To:       recurrence.FormatDay(to),
		Dates:    make([]string, 0, len(dates)),
	}
	if len(dates) > s.cfg.PreviewMaxDates {
		dates = dates[:s.cfg.PreviewMaxDates]
		preview.Truncated = true
	}
	for _, d := range dates {
		preview.Dates = append(preview.Dates, recurrence.FormatDay(d))
	}
	if series.IsRecurring() {
		preview.RRule = series.EffectiveRule().RRule()
	}
	return preview, nil
}

func (s *SeriesService) load(ctx context.Context, ownerID, id string) (*models.Series, error) {
	series, err := s.repo.FindByID(ctx, ownerID, id, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	if series == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "series not found")
	}
	return series, nil
}

func (s *SeriesService) save(ctx context.Context, series *models.Series) (*models.Series, error) {
	if err := s.repo.Update(ctx, series); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "series not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update series")
	}
	s.invalidate(ctx, series.OwnerID)
	s.logger.Info("series updated", zap.String("series_id", series.ID), zap.String("owner_id", series.OwnerID))
	return series, nil
}

func (s *SeriesService) applyRequest(series *models.Series, req dto.SeriesRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return invalidPayload(err, "invalid series payload")
	}
	anchor, err := parseDayField("anchor_date", req.AnchorDate)
	if err != nil {
		return err
	}

	series.Title = strings.TrimSpace(req.Title)
	series.Description = req.Description
	series.Priority = defaultSeriesPriority
	if req.Priority != nil {
		series.Priority = *req.Priority
	}
	series.CategoryID = nil
	if req.CategoryID != nil {
		series.CategoryID = emptyToNil(*req.CategoryID)
	}
	series.Tags = normalizeTags(req.Tags)
	series.DueTime = nil
	if req.DueTime != nil {
		series.DueTime = emptyToNil(*req.DueTime)
	}
	series.AnchorDate = anchor
	series.EndDate = nil
	if req.EndDate != nil {
		end, err := parseDayField("end_date", *req.EndDate)
		if err != nil {
			return err
		}
		series.EndDate = &end
	}
	series.Rule = req.Rule.Clone()
	if req.Active != nil {
		series.Active = *req.Active
	}
	return s.checkSeries(series)
}

// checkSeries enforces cross-field invariants and pins the rule anchor to the series anchor.
func (s *SeriesService) checkSeries(series *models.Series) error {
	if series.Title == "" {
		return appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if series.EndDate != nil && series.EndDate.Before(series.AnchorDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before anchor_date")
	}
	if series.Rule != nil {
		series.Rule.AnchorDate = series.AnchorDate
		if err := recurrence.Validate(series.Rule); err != nil {
			return invalidRule(err)
		}
	}
	return nil
}

func (s *SeriesService) invalidate(ctx context.Context, ownerID string) {
	s.cache.Advance(ctx, repository.OccurrenceGenerationKey(ownerID))
	s.cache.Invalidate(ctx, repository.OccurrenceOwnerPattern(ownerID))
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

func emptyToNil(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
