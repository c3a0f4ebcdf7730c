package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]models.Student
	numbers  map[string]string
	emails   map[string]string
	created  *models.Student
	updated  *models.Student
	disabled []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByNumber(ctx context.Context, number string, excludeID string) (bool, error) {
	owner, ok := m.numbers[number]
	return ok && owner != excludeID, nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	owner, ok := m.emails[email]
	return ok && owner != excludeID, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	student.ID = "new-student"
	m.students[student.ID] = *student
	m.created = student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	m.updated = student
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	m.disabled = append(m.disabled, id)
	return nil
}

type mockStudentViews struct {
	courses    map[string][]models.CourseSummary
	schedule   map[string][]models.ScheduleEntry
	transcript map[string][]models.TranscriptEntry
}

func (m *mockStudentViews) ActiveCourseSummaries(ctx context.Context, studentID string) ([]models.CourseSummary, error) {
	return m.courses[studentID], nil
}

func (m *mockStudentViews) Schedule(ctx context.Context, studentID string) ([]models.ScheduleEntry, error) {
	return m.schedule[studentID], nil
}

func (m *mockStudentViews) Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error) {
	return m.transcript[studentID], nil
}

func validCreateStudentRequest() CreateStudentRequest {
	return CreateStudentRequest{
		EnrollmentNumber: "2026-0001",
		FirstName:        "Ana",
		LastName:         "Lopez",
		Email:            "ana.lopez@example.com",
		BirthDate:        time.Date(2004, 5, 12, 0, 0, 0, 0, time.UTC),
		AdmittedAt:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{numbers: map[string]string{}, emails: map[string]string{}}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), validCreateStudentRequest())
	require.NoError(t, err)
	assert.True(t, student.Active)
	assert.NotNil(t, repo.created)
}

func TestStudentServiceCreateDuplicateNumber(t *testing.T) {
	repo := &mockStudentRepo{numbers: map[string]string{"2026-0001": "other"}, emails: map[string]string{}}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), validCreateStudentRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "enrollment number already used", appErr.Message)
}

func TestStudentServiceCreateInvalidEmail(t *testing.T) {
	repo := &mockStudentRepo{numbers: map[string]string{}, emails: map[string]string{}}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	req := validCreateStudentRequest()
	req.Email = "not-an-email"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestStudentServiceGetIncludesActiveCourses(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1", FirstName: "Ana"}}}
	views := &mockStudentViews{courses: map[string][]models.CourseSummary{
		"s1": {{ID: "c1", Code: "MATH101", Name: "Calculus"}},
	}}
	svc := NewStudentService(repo, views, nil, validator.New(), zap.NewNop())

	detail, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, detail.Courses, 1)
	assert.Equal(t, "MATH101", detail.Courses[0].Code)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "student not found", appErr.Message)
}

func TestStudentServiceCourses(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	views := &mockStudentViews{courses: map[string][]models.CourseSummary{
		"s1": {{ID: "c1", Code: "MATH101", Name: "Calculus"}},
	}}
	svc := NewStudentService(repo, views, nil, validator.New(), zap.NewNop())

	courses, err := svc.Courses(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "MATH101", courses[0].Code)
}

func TestStudentServiceCoursesNotFound(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Courses(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "student not found", appErr.Message)
}

func TestStudentServiceSchedule(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	views := &mockStudentViews{schedule: map[string][]models.ScheduleEntry{
		"s1": {
			{Day: models.DayMonday, StartTime: "09:00", EndTime: "11:00", CourseCode: "MATH101"},
			{Day: models.DayWednesday, StartTime: "14:00", EndTime: "16:00", CourseCode: "PHYS201"},
		},
	}}
	svc := NewStudentService(repo, views, nil, validator.New(), zap.NewNop())

	entries, err := svc.Schedule(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.DayMonday, entries[0].Day)
}

func TestStudentServiceScheduleEmpty(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	entries, err := svc.Schedule(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestStudentServiceTranscript(t *testing.T) {
	grade := 8.75
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	views := &mockStudentViews{transcript: map[string][]models.TranscriptEntry{
		"s1": {
			{CourseCode: "MATH101", Status: models.EnrollmentStatusCompleted, GradeValue: &grade},
			{CourseCode: "PHYS201", Status: models.EnrollmentStatusActive},
		},
	}}
	svc := NewStudentService(repo, views, nil, validator.New(), zap.NewNop())

	entries, err := svc.Transcript(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].GradeValue)
	assert.Equal(t, 8.75, *entries[0].GradeValue)
	assert.Nil(t, entries[1].GradeValue)
}

func TestStudentServiceUpdateDuplicateEmail(t *testing.T) {
	repo := &mockStudentRepo{
		students: map[string]models.Student{"s1": {ID: "s1"}},
		numbers:  map[string]string{"2026-0001": "s1"},
		emails:   map[string]string{"ana.lopez@example.com": "other"},
	}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	req := UpdateStudentRequest{
		EnrollmentNumber: "2026-0001",
		FirstName:        "Ana",
		LastName:         "Lopez",
		Email:            "ana.lopez@example.com",
		BirthDate:        time.Date(2004, 5, 12, 0, 0, 0, 0, time.UTC),
		AdmittedAt:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Active:           true,
	}
	_, err := svc.Update(context.Background(), "s1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "email already used", appErr.Message)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1", Active: true}}}
	svc := NewStudentService(repo, &mockStudentViews{}, nil, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "s1"))
	assert.Contains(t, repo.disabled, "s1")
}
