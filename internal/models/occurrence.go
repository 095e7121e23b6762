package models

import (
	"time"

	"github.com/lib/pq"
)

// OccurrenceStatus classifies an occurrence relative to today.
type OccurrenceStatus string

const (
	OccurrenceStatusOverdue   OccurrenceStatus = "OVERDUE"
	OccurrenceStatusUpcoming  OccurrenceStatus = "UPCOMING"
	OccurrenceStatusCompleted OccurrenceStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s OccurrenceStatus) Valid() bool {
	switch s {
	case OccurrenceStatusOverdue, OccurrenceStatusUpcoming, OccurrenceStatusCompleted:
		return true
	}
	return false
}

// Rank orders statuses for listing: overdue first, completed last.
func (s OccurrenceStatus) Rank() int {
	switch s {
	case OccurrenceStatusOverdue:
		return 0
	case OccurrenceStatusUpcoming:
		return 1
	default:
		return 2
	}
}

// Occurrence is a persisted, possibly edited or completed, instance of a series on one date.
// Nil override fields inherit from the series. A set DeletedAt marks a cancelled occurrence.
type Occurrence struct {
	ID             string          `db:"id" json:"id"`
	SeriesID       string          `db:"series_id" json:"series_id"`
	OccurrenceDate time.Time       `db:"occurrence_date" json:"occurrence_date"`
	Title          *string         `db:"title" json:"title,omitempty"`
	Description    *string         `db:"description" json:"description,omitempty"`
	Priority       *int            `db:"priority" json:"priority,omitempty"`
	CategoryID     *string         `db:"category_id" json:"category_id,omitempty"`
	Tags           *pq.StringArray `db:"tags" json:"tags,omitempty"`
	DueTime        *string         `db:"due_time" json:"due_time,omitempty"`
	Completed      bool            `db:"completed" json:"completed"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Cancelled reports whether the row is a tombstone.
func (o *Occurrence) Cancelled() bool {
	return o != nil && o.DeletedAt != nil
}

// MaterializedOccurrence joins a stored occurrence with the display fields of its series.
type MaterializedOccurrence struct {
	Occurrence
	SeriesAnchorDate  time.Time      `db:"series_anchor_date"`
	SeriesTitle       string         `db:"series_title"`
	SeriesDescription string         `db:"series_description"`
	SeriesPriority    int            `db:"series_priority"`
	SeriesCategoryID  *string        `db:"series_category_id"`
	SeriesTags        pq.StringArray `db:"series_tags"`
	SeriesDueTime     *string        `db:"series_due_time"`
	SeriesRecurring   bool           `db:"series_recurring"`
}

// OccurrenceChange describes a promote-on-write mutation. Nil fields keep whatever the row
// already holds (or inherit from the series on first write).
type OccurrenceChange struct {
	SeriesID    string
	Date        time.Time
	Title       *string
	Description *string
	Priority    *int
	CategoryID  *string
	Tags        *[]string
	DueTime     *string
	Completed   *bool
	CompletedAt *time.Time
	Cancel      bool
}

// OccurrencePatch is the caller facing field override set for a single occurrence.
type OccurrencePatch struct {
	Title       *string
	Description *string
	Priority    *int
	CategoryID  *string
	Tags        *[]string
	DueTime     *string
	Completed   *bool
}

// Empty reports whether the patch changes nothing.
func (p OccurrencePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.CategoryID == nil &&
		p.Tags == nil && p.DueTime == nil && p.Completed == nil
}

// OccurrenceView is the uniform shape returned for both stored and generated occurrences.
type OccurrenceView struct {
	Identity    string           `json:"identity"`
	SeriesID    string           `json:"series_id"`
	Offset      int              `json:"-"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Priority    int              `json:"priority"`
	CategoryID  *string          `json:"category_id,omitempty"`
	Tags        []string         `json:"tags"`
	Date        time.Time        `json:"date"`
	Time        *string          `json:"time,omitempty"`
	Completed   bool             `json:"completed"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	IsVirtual   bool             `json:"is_virtual"`
	Recurring   bool             `json:"recurring"`
	Status      OccurrenceStatus `json:"status"`
	Cancelled   bool             `json:"-"`
}

// UncategorizedFilter selects occurrences without a category in OccurrenceQuery.CategoryIDs.
const UncategorizedFilter = "none"

// OccurrenceQuery captures listing criteria.
type OccurrenceQuery struct {
	OwnerID     string
	Start       time.Time
	End         time.Time
	Keyword     string
	CategoryIDs []string
	Priorities  []int
	Statuses    []OccurrenceStatus
	Page        int
	PageSize    int
}

// DayStatus summarises one calendar day of a month view.
type DayStatus struct {
	Date           time.Time `json:"date"`
	HasOccurrences bool      `json:"has_occurrences"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
}

// OccurrenceStatistics counts the occurrences of one day.
type OccurrenceStatistics struct {
	Date       time.Time `json:"date"`
	Total      int       `json:"total"`
	InProgress int       `json:"in_progress"`
	Completed  int       `json:"completed"`
}
