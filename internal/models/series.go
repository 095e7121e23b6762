package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
)

// Series is the template repeating (or one-shot) to-do items are generated from.
type Series struct {
	ID          string           `db:"id" json:"id"`
	OwnerID     string           `db:"owner_id" json:"owner_id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	Priority    int              `db:"priority" json:"priority"`
	CategoryID  *string          `db:"category_id" json:"category_id,omitempty"`
	Tags        pq.StringArray   `db:"tags" json:"tags"`
	DueTime     *string          `db:"due_time" json:"due_time,omitempty"`
	AnchorDate  time.Time        `db:"anchor_date" json:"anchor_date"`
	EndDate     *time.Time       `db:"end_date" json:"end_date,omitempty"`
	Rule        *recurrence.Rule `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	Active      bool             `db:"active" json:"active"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsRecurring reports whether the series carries a rule.
func (s *Series) IsRecurring() bool {
	return s != nil && s.Rule != nil
}

// EffectiveRule returns the rule anchored at the series anchor, or nil for one-shot series.
func (s *Series) EffectiveRule() *recurrence.Rule {
	if s == nil || s.Rule == nil {
		return nil
	}
	return s.Rule.WithAnchor(s.AnchorDate)
}

// Window returns the inclusive [anchor, end] span in which the series can produce dates.
// A nil end means open ended.
func (s *Series) Window() (time.Time, *time.Time) {
	anchor := recurrence.Day(s.AnchorDate)
	if s.Rule == nil {
		return anchor, &anchor
	}
	if s.EndDate == nil {
		return anchor, nil
	}
	end := recurrence.Day(*s.EndDate)
	return anchor, &end
}

// Produces reports whether the series generates date within its window.
func (s *Series) Produces(date time.Time) bool {
	date = recurrence.Day(date)
	start, end := s.Window()
	if date.Before(start) || (end != nil && date.After(*end)) {
		return false
	}
	if s.Rule == nil {
		return date.Equal(start)
	}
	return recurrence.Occurs(s.EffectiveRule(), date)
}

// DatesBetween returns the dates the series produces within [from, to], clipped to its window.
func (s *Series) DatesBetween(from, to time.Time) []time.Time {
	from, to = recurrence.Day(from), recurrence.Day(to)
	start, end := s.Window()
	if from.Before(start) {
		from = start
	}
	if end != nil && to.After(*end) {
		to = *end
	}
	if from.After(to) {
		return nil
	}
	if s.Rule == nil {
		return []time.Time{start}
	}
	return s.EffectiveRule().Between(from, to)
}

// SeriesFilter narrows down series listings.
type SeriesFilter struct {
	OwnerID        string
	Search         string
	Active         *bool
	Recurring      *bool
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// SeriesPatch carries field-level overrides; nil fields are left untouched.
type SeriesPatch struct {
	Title       *string
	Description *string
	Priority    *int
	CategoryID  *string
	Tags        *[]string
	DueTime     *string
	AnchorDate  *time.Time
	EndDate     *time.Time
	ClearEnd    bool
	Rule        *recurrence.Rule
	ClearRule   bool
	Active      *bool
}
