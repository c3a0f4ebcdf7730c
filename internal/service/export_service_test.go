package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type mockTranscriptRepo struct {
	entries map[string][]models.TranscriptEntry
}

func (m *mockTranscriptRepo) Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error) {
	return m.entries[studentID], nil
}

func newExportFixture() *ExportService {
	grade := 8.75
	students := &mockStudentReader{students: map[string]*models.Student{
		"s1": {ID: "s1", EnrollmentNumber: "2026-0001", FirstName: "Ana", LastName: "Lopez"},
	}}
	transcripts := &mockTranscriptRepo{entries: map[string][]models.TranscriptEntry{
		"s1": {
			{CourseCode: "MATH101", CourseName: "Calculus I", Status: models.EnrollmentStatusCompleted,
				EnrolledAt: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), GradeValue: &grade},
			{CourseCode: "PHYS201", CourseName: "Mechanics", Status: models.EnrollmentStatusActive,
				EnrolledAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)},
		},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "MATH101"},
	}}
	roster := &mockRosterRepo{roster: map[string][]models.RosterEntry{
		"c1": {
			{EnrollmentNumber: "2026-0001", StudentName: "Ana Lopez", Present: true},
			{EnrollmentNumber: "2026-0002", StudentName: "Ben Diaz", Present: false},
		},
	}}
	return NewExportService(students, transcripts, courses, roster, nil, nil, zap.NewNop())
}

func TestExportServiceTranscriptCSV(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.Transcript(context.Background(), "s1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "transcript_2026-0001_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	content := string(file.Payload)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Course Code,Course Name,Status,Enrolled At,Grade", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "MATH101")
	assert.Contains(t, lines[1], "8.75")
	assert.Contains(t, lines[2], "PHYS201")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), ","))
}

func TestExportServiceTranscriptPDF(t *testing.T) {
	svc := newExportFixture()

	file, err := svc.Transcript(context.Background(), "s1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(file.Payload, []byte("%PDF")))
}

func TestExportServiceTranscriptStudentNotFound(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.Transcript(context.Background(), "missing", ExportFormatCSV)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "student not found", appErr.Message)
}

func TestExportServiceRosterCSV(t *testing.T) {
	svc := newExportFixture()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	file, err := svc.Roster(context.Background(), "c1", day, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "roster_MATH101_20260302.csv", file.Filename)

	content := string(file.Payload)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Enrollment Number,Student,Attendance", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "present")
	assert.Contains(t, lines[2], "absent")
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.Transcript(context.Background(), "s1", ExportFormat("xlsx"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "format must be csv or pdf", appErr.Message)
}
