package dto

import "github.com/noah-isme/recurring-todo-api/internal/models"

// OccurrenceListQuery captures listing query parameters. List values are comma separated.
type OccurrenceListQuery struct {
	StartDate   string `form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `form:"end_date" validate:"required,datetime=2006-01-02"`
	Keyword     string `form:"keyword" validate:"max=200"`
	CategoryIDs string `form:"category_ids"`
	Priorities  string `form:"priorities"`
	Statuses    string `form:"statuses"`
	Page        int    `form:"page" validate:"omitempty,min=1"`
	PageSize    int    `form:"page_size" validate:"omitempty,min=1"`
}

// PatchOccurrenceRequest overrides fields of a single occurrence.
type PatchOccurrenceRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	Priority    *int      `json:"priority" validate:"omitempty,min=0,max=2"`
	CategoryID  *string   `json:"category_id" validate:"omitempty,max=64"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	DueTime     *string   `json:"due_time" validate:"omitempty,hhmm"`
	Completed   *bool     `json:"completed"`
}

// CalendarQuery selects a month for the calendar status view.
type CalendarQuery struct {
	Year  int `form:"year" validate:"required,min=1970,max=9999"`
	Month int `form:"month" validate:"required,min=1,max=12"`
}

// StatisticsQuery selects the day summarised by the statistics endpoint.
type StatisticsQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ExportQuery selects format and range for an agenda export.
type ExportQuery struct {
	Format    string `form:"format" validate:"required,oneof=csv pdf ics"`
	StartDate string `form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `form:"end_date" validate:"required,datetime=2006-01-02"`
	Keyword   string `form:"keyword" validate:"max=200"`
}

// OccurrencePage is the cached shape of one listing page.
type OccurrencePage struct {
	Items      []models.OccurrenceView `json:"items"`
	TotalCount int                     `json:"total_count"`
}
