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

type mockCourseRepo struct {
	courses map[string]models.Course
	codes   map[string]string
	created *models.Course
	updated *models.Course
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseRow, int, error) {
	var out []models.CourseRow
	for _, c := range m.courses {
		out = append(out, models.CourseRow{Course: c})
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		return &models.CourseDetail{CourseRow: models.CourseRow{Course: c}, EnrolledCount: 3}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	owner, ok := m.codes[code]
	return ok && owner != excludeID, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]models.Course)
	}
	course.ID = "new-course"
	m.courses[course.ID] = *course
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	m.updated = course
	return nil
}

func (m *mockCourseRepo) Deactivate(ctx context.Context, id string) error {
	if c, ok := m.courses[id]; ok {
		c.Active = false
		m.courses[id] = c
	}
	return nil
}

type mockProfessorReader struct {
	professors map[string]*models.Professor
}

func (m *mockProfessorReader) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	if p, ok := m.professors[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockRosterRepo struct {
	roster map[string][]models.RosterEntry
}

func (m *mockRosterRepo) RosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, error) {
	return m.roster[courseID], nil
}

func validCreateCourseRequest() CreateCourseRequest {
	return CreateCourseRequest{
		Code:      "MATH101",
		Name:      "Calculus I",
		Credits:   6,
		MaxSeats:  30,
		Day:       "MON",
		StartTime: "09:00",
		EndTime:   "11:00",
		StartDate: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 26, 0, 0, 0, 0, time.UTC),
	}
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{codes: map[string]string{}}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	course, err := svc.Create(context.Background(), validCreateCourseRequest())
	require.NoError(t, err)
	assert.True(t, course.Active)
	assert.Equal(t, models.DayMonday, course.Day)
}

func TestCourseServiceCreateDuplicateCode(t *testing.T) {
	repo := &mockCourseRepo{codes: map[string]string{"MATH101": "other"}}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), validCreateCourseRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "course code already used", appErr.Message)
}

func TestCourseServiceCreateUnknownProfessor(t *testing.T) {
	repo := &mockCourseRepo{codes: map[string]string{}}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	req := validCreateCourseRequest()
	missing := "p-missing"
	req.ProfessorID = &missing
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "professor not found", appErr.Message)
}

func TestCourseServiceCreateScheduleValidation(t *testing.T) {
	repo := &mockCourseRepo{codes: map[string]string{}}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	cases := []struct {
		name    string
		mutate  func(*CreateCourseRequest)
		message string
	}{
		{"bad day", func(r *CreateCourseRequest) { r.Day = "MONDAY" }, "day must be one of MON..SUN"},
		{"bad time", func(r *CreateCourseRequest) { r.StartTime = "9am" }, "start_time must be HH:MM"},
		{"inverted times", func(r *CreateCourseRequest) { r.StartTime = "12:00"; r.EndTime = "09:00" }, "start_time must be before end_time"},
		{"inverted dates", func(r *CreateCourseRequest) {
			r.StartDate = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		}, "start_date must be before end_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateCourseRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, http.StatusBadRequest, appErr.Status)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestCourseServiceByProfessor(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1", Code: "MATH101"}}}
	professors := &mockProfessorReader{professors: map[string]*models.Professor{"p1": {ID: "p1"}}}
	svc := NewCourseService(repo, professors, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	courses, pagination, err := svc.ByProfessor(context.Background(), "p1", models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestCourseServiceByProfessorNotFound(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	_, _, err := svc.ByProfessor(context.Background(), "missing", models.CourseFilter{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "professor not found", appErr.Message)
}

func TestCourseServiceGetDetail(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1", Code: "MATH101", MaxSeats: 30}}}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	detail, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, detail.EnrolledCount)
}

func TestCourseServiceRoster(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{"c1": {ID: "c1"}}}
	roster := &mockRosterRepo{roster: map[string][]models.RosterEntry{
		"c1": {
			{StudentID: "s1", StudentName: "Ana Lopez", Present: true},
			{StudentID: "s2", StudentName: "Ben Diaz", Present: false},
		},
	}}
	svc := NewCourseService(repo, &mockProfessorReader{}, roster, nil, validator.New(), zap.NewNop())

	entries, err := svc.Roster(context.Background(), "c1", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Present)
	assert.False(t, entries[1].Present)
}

func TestCourseServiceRosterCourseNotFound(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, &mockProfessorReader{}, &mockRosterRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Roster(context.Background(), "missing", time.Now())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}
