package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/course-reg-api/internal/models"
	appErrors "github.com/noah-isme/course-reg-api/pkg/errors"
	"github.com/noah-isme/course-reg-api/pkg/export"
)

type rosterReader interface {
	ListRosterBySection(ctx context.Context, sectionID string) ([]models.RosterEntry, error)
}

type sectionDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// RosterExport carries a rendered roster document.
type RosterExport struct {
	Content     []byte
	Filename    string
	ContentType string
}

// ExportService renders section rosters for download.
type ExportService struct {
	enrollments rosterReader
	sections    sectionDetailReader
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(enrollments rosterReader, sections sectionDetailReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{enrollments: enrollments, sections: sections, csv: csv, pdf: pdf, logger: logger}
}

var rosterHeaders = []string{"Student", "Email", "Status", "Grade"}

// Roster renders the section roster in the requested format. Only the
// section's instructor of record or an admin may export.
func (s *ExportService) Roster(ctx context.Context, actor models.Actor, sectionID, format string) (*RosterExport, error) {
	section, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	instructorOfRecord := section.InstructorID != nil && *section.InstructorID == actor.UserID
	if !instructorOfRecord && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "only the section instructor or an admin may export")
	}

	roster, err := s.enrollments.ListRosterBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := export.Dataset{Headers: rosterHeaders}
	for _, entry := range roster {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": entry.StudentName,
			"Email":   entry.StudentEmail,
			"Status":  string(entry.Status),
			"Grade":   fmt.Sprintf("%.1f", entry.Grade),
		})
	}

	base := fmt.Sprintf("roster-%s-%s", section.CourseCode, section.TermName)
	base = strings.ReplaceAll(strings.ToLower(base), " ", "-")

	switch strings.ToLower(format) {
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
		}
		return &RosterExport{Content: content, Filename: base + ".csv", ContentType: "text/csv"}, nil
	case "pdf":
		title := fmt.Sprintf("%s %s roster", section.CourseCode, section.TermName)
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
		}
		return &RosterExport{Content: content, Filename: base + ".pdf", ContentType: "application/pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
