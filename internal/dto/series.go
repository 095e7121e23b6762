package dto

import "github.com/noah-isme/recurring-todo-api/internal/recurrence"

// SeriesRequest is the full payload for creating or replacing a series. Dates use YYYY-MM-DD.
type SeriesRequest struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Priority    *int             `json:"priority" validate:"omitempty,min=0,max=2"`
	CategoryID  *string          `json:"category_id" validate:"omitempty,max=64"`
	Tags        []string         `json:"tags" validate:"max=20,dive,required,max=50"`
	DueTime     *string          `json:"due_time" validate:"omitempty,hhmm"`
	AnchorDate  string           `json:"anchor_date" validate:"required,datetime=2006-01-02"`
	EndDate     *string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Rule        *recurrence.Rule `json:"recurrence_rule"`
	Active      *bool            `json:"active"`
}

// PatchSeriesRequest updates selected series fields. ClearEndDate and ClearRule reset the
// nullable columns since a JSON null cannot be told apart from an omitted field.
type PatchSeriesRequest struct {
	Title        *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string          `json:"description" validate:"omitempty,max=2000"`
	Priority     *int             `json:"priority" validate:"omitempty,min=0,max=2"`
	CategoryID   *string          `json:"category_id" validate:"omitempty,max=64"`
	Tags         *[]string        `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	DueTime      *string          `json:"due_time" validate:"omitempty,hhmm"`
	AnchorDate   *string          `json:"anchor_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ClearEndDate bool             `json:"clear_end_date"`
	Rule         *recurrence.Rule `json:"recurrence_rule"`
	ClearRule    bool             `json:"clear_recurrence_rule"`
	Active       *bool            `json:"active"`
}

// SeriesListQuery captures list query parameters.
type SeriesListQuery struct {
	Search         string `form:"search"`
	Active         *bool  `form:"active"`
	Recurring      *bool  `form:"recurring"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PageSize       int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// PreviewQuery bounds a series preview.
type PreviewQuery struct {
	From string `form:"from" validate:"required,datetime=2006-01-02"`
	To   string `form:"to" validate:"required,datetime=2006-01-02"`
}

// SeriesPreview lists the dates a series generates within a window.
type SeriesPreview struct {
	SeriesID  string   `json:"series_id"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Dates     []string `json:"dates"`
	Truncated bool     `json:"truncated"`
	RRule     string   `json:"rrule,omitempty"`
}
