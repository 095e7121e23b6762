package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// CalendarEntry is one all-day agenda item rendered into a VEVENT.
type CalendarEntry struct {
	UID         string
	Date        time.Time
	Summary     string
	Description string
	Categories  []string
	Priority    int
	Completed   bool
}

// ICSExporter renders agenda entries as an iCalendar feed.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter constructs an exporter stamping entries with productID.
func NewICSExporter(productID string) *ICSExporter {
	if productID == "" {
		productID = "-//recurring-todo-api//agenda//EN"
	}
	return &ICSExporter{productID: productID, now: time.Now}
}

// ContentType reports the iCalendar MIME type.
func (e *ICSExporter) ContentType() string { return "text/calendar; charset=utf-8" }

// Extension reports the file suffix.
func (e *ICSExporter) Extension() string { return "ics" }

// RenderEntries serializes entries into a VCALENDAR document.
func (e *ICSExporter) RenderEntries(name string, entries []CalendarEntry) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	stamp := e.now().UTC()

	for _, entry := range entries {
		if entry.UID == "" {
			return nil, fmt.Errorf("ics entry on %s has no uid", entry.Date.Format("2006-01-02"))
		}
		event := cal.AddEvent(entry.UID)
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(entry.Date)
		event.SetAllDayEndAt(entry.Date.AddDate(0, 0, 1))
		event.SetSummary(entry.Summary)
		if entry.Description != "" {
			event.SetDescription(entry.Description)
		}
		if len(entry.Categories) > 0 {
			event.SetProperty(ical.ComponentPropertyCategories, strings.Join(entry.Categories, ","))
		}
		event.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(icalPriority(entry.Priority)))
		if entry.Completed {
			event.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
			event.SetProperty(ical.ComponentProperty("X-COMPLETED"), "TRUE")
		}
	}

	return []byte(cal.Serialize()), nil
}

// icalPriority maps low/normal/high (0..2) onto the RFC-5545 scale where 1 is highest.
func icalPriority(p int) int {
	switch {
	case p >= 2:
		return 1
	case p == 1:
		return 5
	default:
		return 9
	}
}
