package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/recurring-todo-api/internal/dto"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/pkg/response"
)

type seriesService interface {
	Create(ctx context.Context, ownerID string, req dto.SeriesRequest) (*models.Series, error)
	Get(ctx context.Context, ownerID, id string) (*models.Series, error)
	List(ctx context.Context, ownerID string, query dto.SeriesListQuery) ([]models.Series, *models.Pagination, error)
	Replace(ctx context.Context, ownerID, id string, req dto.SeriesRequest) (*models.Series, error)
	Patch(ctx context.Context, ownerID, id string, req dto.PatchSeriesRequest) (*models.Series, error)
	Delete(ctx context.Context, ownerID, id string) error
	Restore(ctx context.Context, ownerID, id string) (*models.Series, error)
	Preview(ctx context.Context, ownerID, id string, query dto.PreviewQuery) (*dto.SeriesPreview, error)
}

// SeriesHandler exposes series authoring endpoints.
type SeriesHandler struct {
	service seriesService
}

// NewSeriesHandler builds a new handler.
func NewSeriesHandler(service seriesService) *SeriesHandler {
	return &SeriesHandler{service: service}
}

// Create godoc
// @Summary Create a series
// @Tags Series
// @Accept json
// @Produce json
// @Param payload body dto.SeriesRequest true "Series payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /series [post]
func (h *SeriesHandler) Create(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req dto.SeriesRequest
	if !bindJSON(c, &req, "invalid series payload") {
		return
	}
	series, err := h.service.Create(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, series)
}

// List godoc
// @Summary List series
// @Tags Series
// @Produce json
// @Param search query string false "Search in title and description"
// @Param active query bool false "Active filter"
// @Param recurring query bool false "Recurring filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /series [get]
func (h *SeriesHandler) List(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var query dto.SeriesListQuery
	if !bindQuery(c, &query, "invalid series query") {
		return
	}
	series, pagination, err := h.service.List(c.Request.Context(), owner, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, pagination)
}

// Get godoc
// @Summary Get a series
// @Tags Series
// @Produce json
// @Param id path string true "Series ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /series/{id} [get]
func (h *SeriesHandler) Get(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	series, err := h.service.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// Replace godoc
// @Summary Replace a series
// @Tags Series
// @Accept json
// @Produce json
// @Param id path string true "Series ID"
// @Param payload body dto.SeriesRequest true "Series payload"
// @Success 200 {object} response.Envelope
// @Router /series/{id} [put]
func (h *SeriesHandler) Replace(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req dto.SeriesRequest
	if !bindJSON(c, &req, "invalid series payload") {
		return
	}
	series, err := h.service.Replace(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// Patch godoc
// @Summary Update selected series fields
// @Tags Series
// @Accept json
// @Produce json
// @Param id path string true "Series ID"
// @Param payload body dto.PatchSeriesRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /series/{id} [patch]
func (h *SeriesHandler) Patch(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req dto.PatchSeriesRequest
	if !bindJSON(c, &req, "invalid series payload") {
		return
	}
	series, err := h.service.Patch(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// Delete godoc
// @Summary Soft delete a series and its occurrences
// @Tags Series
// @Param id path string true "Series ID"
// @Success 204
// @Router /series/{id} [delete]
func (h *SeriesHandler) Delete(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), owner, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a soft deleted series
// @Tags Series
// @Produce json
// @Param id path string true "Series ID"
// @Success 200 {object} response.Envelope
// @Router /series/{id}/restore [post]
func (h *SeriesHandler) Restore(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	series, err := h.service.Restore(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, series, nil)
}

// Preview godoc
// @Summary Preview the dates a series generates
// @Tags Series
// @Produce json
// @Param id path string true "Series ID"
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /series/{id}/preview [get]
func (h *SeriesHandler) Preview(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var query dto.PreviewQuery
	if !bindQuery(c, &query, "invalid preview window") {
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), owner, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}
