package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recurring-todo-api/internal/dto"
	"github.com/noah-isme/recurring-todo-api/internal/middleware"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/internal/service"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
	"github.com/noah-isme/recurring-todo-api/pkg/response"
)

const scopeFollowing = "following"

type occurrenceService interface {
	List(ctx context.Context, ownerID string, req dto.OccurrenceListQuery) ([]models.OccurrenceView, *models.Pagination, bool, error)
	Get(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error)
	Update(ctx context.Context, ownerID, rawIdentity string, req dto.PatchOccurrenceRequest) (*models.OccurrenceView, error)
	Complete(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error)
	Uncomplete(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error)
	Cancel(ctx context.Context, ownerID, rawIdentity string) error
	CancelFrom(ctx context.Context, ownerID, rawIdentity string) error
	Restore(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error)
	CalendarStatus(ctx context.Context, ownerID string, req dto.CalendarQuery) ([]models.DayStatus, error)
	Statistics(ctx context.Context, ownerID string, req dto.StatisticsQuery) (*models.OccurrenceStatistics, error)
}

type exportService interface {
	Export(ctx context.Context, ownerID string, query dto.ExportQuery) (*service.ExportFile, error)
}

// OccurrenceHandler exposes the merged occurrence listing and per-occurrence mutations.
type OccurrenceHandler struct {
	service occurrenceService
	exports exportService
}

// NewOccurrenceHandler builds a new handler. A nil exports service disables the export route.
func NewOccurrenceHandler(service occurrenceService, exports exportService) *OccurrenceHandler {
	return &OccurrenceHandler{service: service, exports: exports}
}

// List godoc
// @Summary List stored and generated occurrences in a date range
// @Tags Occurrences
// @Produce json
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Param keyword query string false "Keyword over title, description and tags"
// @Param category_ids query string false "Comma separated category ids, none for uncategorized"
// @Param priorities query string false "Comma separated priorities (0-2)"
// @Param statuses query string false "Comma separated statuses (OVERDUE, UPCOMING, COMPLETED)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /occurrences [get]
func (h *OccurrenceHandler) List(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var query dto.OccurrenceListQuery
	if !bindQuery(c, &query, "invalid occurrence query") {
		return
	}
	items, pagination, hit, err := h.service.List(c.Request.Context(), owner, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get an occurrence by identity
// @Tags Occurrences
// @Produce json
// @Param identity path string true "Occurrence identity ({seriesId}:{offset})"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /occurrences/{identity} [get]
func (h *OccurrenceHandler) Get(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), owner, c.Param("identity"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Override fields of a single occurrence
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param identity path string true "Occurrence identity"
// @Param payload body dto.PatchOccurrenceRequest true "Overrides"
// @Success 200 {object} response.Envelope
// @Router /occurrences/{identity} [patch]
func (h *OccurrenceHandler) Update(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req dto.PatchOccurrenceRequest
	if !bindJSON(c, &req, "invalid occurrence payload") {
		return
	}
	view, err := h.service.Update(c.Request.Context(), owner, c.Param("identity"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Complete godoc
// @Summary Mark an occurrence complete
// @Tags Occurrences
// @Produce json
// @Param identity path string true "Occurrence identity"
// @Success 200 {object} response.Envelope
// @Router /occurrences/{identity}/complete [post]
func (h *OccurrenceHandler) Complete(c *gin.Context) {
	h.mutate(c, h.service.Complete)
}

// Uncomplete godoc
// @Summary Revert an occurrence completion
// @Tags Occurrences
// @Produce json
// @Param identity path string true "Occurrence identity"
// @Success 200 {object} response.Envelope
// @Router /occurrences/{identity}/uncomplete [post]
func (h *OccurrenceHandler) Uncomplete(c *gin.Context) {
	h.mutate(c, h.service.Uncomplete)
}

// Restore godoc
// @Summary Restore a cancelled occurrence
// @Tags Occurrences
// @Produce json
// @Param identity path string true "Occurrence identity"
// @Success 200 {object} response.Envelope
// @Router /occurrences/{identity}/restore [post]
func (h *OccurrenceHandler) Restore(c *gin.Context) {
	h.mutate(c, h.service.Restore)
}

// Delete godoc
// @Summary Cancel an occurrence, or it and every following one with scope=following
// @Tags Occurrences
// @Param identity path string true "Occurrence identity"
// @Param scope query string false "single (default) or following"
// @Success 204
// @Router /occurrences/{identity} [delete]
func (h *OccurrenceHandler) Delete(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var err error
	switch scope := c.DefaultQuery("scope", "single"); scope {
	case scopeFollowing:
		err = h.service.CancelFrom(c.Request.Context(), owner, c.Param("identity"))
	case "single":
		err = h.service.Cancel(c.Request.Context(), owner, c.Param("identity"))
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "scope must be single or following")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Calendar godoc
// @Summary Per-day occurrence counts for a month
// @Tags Occurrences
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Router /occurrences/calendar [get]
func (h *OccurrenceHandler) Calendar(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var query dto.CalendarQuery
	if !bindQuery(c, &query, "invalid calendar month") {
		return
	}
	days, err := h.service.CalendarStatus(c.Request.Context(), owner, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// Statistics godoc
// @Summary Total, in-progress and completed occurrences of a day
// @Tags Occurrences
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /occurrences/statistics [get]
func (h *OccurrenceHandler) Statistics(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var query dto.StatisticsQuery
	if !bindQuery(c, &query, "invalid statistics date") {
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), owner, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Download an agenda range as CSV, PDF or iCalendar
// @Tags Occurrences
// @Produce octet-stream
// @Param format query string true "csv, pdf or ics"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /occurrences/export [get]
func (h *OccurrenceHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if !bindQuery(c, &query, "invalid export query") {
		return
	}
	file, err := h.exports.Export(c.Request.Context(), owner, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}

func (h *OccurrenceHandler) mutate(c *gin.Context, fn func(ctx context.Context, ownerID, rawIdentity string) (*models.OccurrenceView, error)) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	view, err := fn(c.Request.Context(), owner, c.Param("identity"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
