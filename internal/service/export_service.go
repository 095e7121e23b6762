package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/recurring-todo-api/internal/dto"
	"github.com/noah-isme/recurring-todo-api/internal/models"
	"github.com/noah-isme/recurring-todo-api/internal/recurrence"
	appErrors "github.com/noah-isme/recurring-todo-api/pkg/errors"
	"github.com/noah-isme/recurring-todo-api/pkg/export"
)

type agendaSource interface {
	Agenda(ctx context.Context, ownerID string, start, end time.Time, keyword string) ([]models.OccurrenceView, error)
}

type icsRenderer interface {
	RenderEntries(name string, entries []export.CalendarEntry) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered agenda ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var agendaHeaders = []string{"Date", "Time", "Title", "Description", "Priority", "Category", "Tags", "Status", "Identity"}

// ExportService renders agenda ranges as CSV, PDF or iCalendar documents.
type ExportService struct {
	agenda    agendaSource
	csv       export.Renderer
	pdf       export.Renderer
	ics       icsRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(agenda agendaSource, csv, pdf export.Renderer, ics icsRenderer, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("")
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{agenda: agenda, csv: csv, pdf: pdf, ics: ics, validator: validate, logger: logger}
}

// Export renders ownerID's agenda for the requested range.
func (s *ExportService) Export(ctx context.Context, ownerID string, query dto.ExportQuery) (*ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, invalidPayload(err, "invalid export query")
	}
	start, err := parseDayField("start_date", query.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDayField("end_date", query.EndDate)
	if err != nil {
		return nil, err
	}

	views, err := s.agenda.Agenda(ctx, ownerID, start, end, strings.TrimSpace(query.Keyword))
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Agenda %s to %s", recurrence.FormatDay(start), recurrence.FormatDay(end))
	base := fmt.Sprintf("agenda_%s_%s", recurrence.FormatDay(start), recurrence.FormatDay(end))

	var (
		body        []byte
		contentType string
		extension   string
	)
	switch query.Format {
	case "ics":
		body, err = s.ics.RenderEntries(title, calendarEntries(views))
		contentType, extension = s.ics.ContentType(), s.ics.Extension()
	case "pdf":
		body, err = s.pdf.Render(agendaDataset(title, views))
		contentType, extension = s.pdf.ContentType(), s.pdf.Extension()
	default:
		body, err = s.csv.Render(agendaDataset(title, views))
		contentType, extension = s.csv.ContentType(), s.csv.Extension()
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("agenda exported",
		zap.String("owner_id", ownerID),
		zap.String("format", query.Format),
		zap.Int("occurrences", len(views)),
	)
	return &ExportFile{Filename: base + "." + extension, ContentType: contentType, Body: body}, nil
}

func agendaDataset(title string, views []models.OccurrenceView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, map[string]string{
			"Date":        recurrence.FormatDay(view.Date),
			"Time":        deref(view.Time),
			"Title":       view.Title,
			"Description": view.Description,
			"Priority":    priorityLabel(view.Priority),
			"Category":    deref(view.CategoryID),
			"Tags":        strings.Join(view.Tags, ", "),
			"Status":      string(view.Status),
			"Identity":    view.Identity,
		})
	}
	return export.Dataset{Title: title, Headers: agendaHeaders, Rows: rows}
}

func calendarEntries(views []models.OccurrenceView) []export.CalendarEntry {
	entries := make([]export.CalendarEntry, 0, len(views))
	for _, view := range views {
		var categories []string
		if view.CategoryID != nil {
			categories = append(categories, *view.CategoryID)
		}
		categories = append(categories, view.Tags...)
		entries = append(entries, export.CalendarEntry{
			UID:         strings.ReplaceAll(view.Identity, ":", "-") + "@recurring-todo",
			Date:        view.Date,
			Summary:     view.Title,
			Description: view.Description,
			Categories:  categories,
			Priority:    view.Priority,
			Completed:   view.Completed,
		})
	}
	return entries
}

func priorityLabel(priority int) string {
	switch priority {
	case 0:
		return "low"
	case 1:
		return "normal"
	case 2:
		return "high"
	default:
		return strconv.Itoa(priority)
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
