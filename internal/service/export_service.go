package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	"github.com/campusops/course-records-api/pkg/export"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

// ExportFormat identifies a supported export encoding.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportStudentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type exportTranscriptRepository interface {
	Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error)
}

type exportCourseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type exportRosterRepository interface {
	RosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, error)
}

// ExportFile is a rendered download ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders transcript and roster downloads.
type ExportService struct {
	students    exportStudentFinder
	transcripts exportTranscriptRepository
	courses     exportCourseFinder
	roster      exportRosterRepository
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(students exportStudentFinder, transcripts exportTranscriptRepository, courses exportCourseFinder, roster exportRosterRepository, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, transcripts: transcripts, courses: courses, roster: roster, csv: csv, pdf: pdf, logger: logger}
}

// Transcript renders a student's transcript in the requested format.
func (s *ExportService) Transcript(ctx context.Context, studentID string, format ExportFormat) (*ExportFile, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	entries, err := s.transcripts.Transcript(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		grade := ""
		if entry.GradeValue != nil {
			grade = fmt.Sprintf("%.2f", *entry.GradeValue)
		}
		rows = append(rows, []string{
			entry.CourseCode,
			entry.CourseName,
			string(entry.Status),
			entry.EnrolledAt.UTC().Format("2006-01-02"),
			grade,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Status", "Enrolled At", "Grade"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Transcript %s %s", student.EnrollmentNumber, strings.TrimSpace(student.FirstName+" "+student.LastName))
	base := fmt.Sprintf("transcript_%s_%s", sanitizeFilename(student.EnrollmentNumber), time.Now().UTC().Format("20060102_150405"))
	return s.render(dataset, title, base, format)
}

// Roster renders the attendance roster of a course for one date.
func (s *ExportService) Roster(ctx context.Context, courseID string, date time.Time, format ExportFormat) (*ExportFile, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	roster, err := s.roster.RosterForDate(ctx, courseID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	rows := make([][]string, 0, len(roster))
	for _, entry := range roster {
		present := "absent"
		if entry.Present {
			present = "present"
		}
		rows = append(rows, []string{entry.EnrollmentNumber, entry.StudentName, present})
	}
	day := date.UTC().Format("2006-01-02")
	dataset := export.Dataset{
		Headers: []string{"Enrollment Number", "Student", "Attendance"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Roster %s %s", course.Code, day)
	base := fmt.Sprintf("roster_%s_%s", sanitizeFilename(course.Code), strings.ReplaceAll(day, "-", ""))
	return s.render(dataset, title, base, format)
}

func (s *ExportService) render(dataset export.Dataset, title, base string, format ExportFormat) (*ExportFile, error) {
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Payload: payload}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
