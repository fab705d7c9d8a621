package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/campus-ops/timetable-api/internal/models"
	appErrors "github.com/campus-ops/timetable-api/pkg/errors"
	"github.com/campus-ops/timetable-api/pkg/export"
)

var dayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

// ExportService renders weekly timetables as downloadable documents.
type ExportService struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewExportService builds an export service.
func NewExportService() *ExportService {
	return &ExportService{
		csv: export.NewCSVExporter(),
		pdf: export.NewPDFExporter(true),
	}
}

// ExportedFile is a rendered document ready for download.
type ExportedFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// RenderWeekly flattens a weekly view into a table and renders it in the
// requested format ("csv" or "pdf").
func (s *ExportService) RenderWeekly(view models.WeeklyTimetable, title, format string) (*ExportedFile, error) {
	dataset := weeklyDataset(view)

	switch strings.ToLower(format) {
	case "csv", "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportedFile{Content: content, ContentType: "text/csv", Filename: title + ".csv"}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportedFile{Content: content, ContentType: "application/pdf", Filename: title + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func weeklyDataset(view models.WeeklyTimetable) export.Dataset {
	headers := []string{"Day", "Start", "End", "Group", "Subject", "Teacher", "Classroom", "Notes"}

	days := make([]int, 0, len(view))
	for day := range view {
		days = append(days, day)
	}
	sort.Ints(days)

	var rows []map[string]string
	for _, day := range days {
		for _, entry := range view[day] {
			rows = append(rows, map[string]string{
				"Day":       dayNames[day],
				"Start":     entry.StartMinute.String(),
				"End":       entry.EndMinute.String(),
				"Group":     entry.GroupID,
				"Subject":   entry.SubjectID,
				"Teacher":   entry.TeacherID,
				"Classroom": entry.ClassroomID,
				"Notes":     entry.Notes,
			})
		}
	}

	return export.Dataset{Headers: headers, Rows: rows}
}
