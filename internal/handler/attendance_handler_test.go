package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/course-records-api/internal/models"
	"github.com/campusops/course-records-api/internal/service"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type attendanceRepoStub struct {
	rows   map[string]map[string]models.Attendance
	active map[string][]string
}

func (m *attendanceRepoStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	return nil, 0, nil
}

func (m *attendanceRepoStub) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	return nil, sql.ErrNoRows
}

func (m *attendanceRepoStub) FindDetailByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	return nil, sql.ErrNoRows
}

func (m *attendanceRepoStub) EnsureForDate(ctx context.Context, courseID string, date time.Time) (int, error) {
	if m.rows == nil {
		m.rows = make(map[string]map[string]models.Attendance)
	}
	key := date.Format("2006-01-02")
	if m.rows[key] == nil {
		m.rows[key] = make(map[string]models.Attendance)
	}
	created := 0
	for _, enrollmentID := range m.active[courseID] {
		if _, ok := m.rows[key][enrollmentID]; ok {
			continue
		}
		m.rows[key][enrollmentID] = models.Attendance{ID: "a-" + enrollmentID, EnrollmentID: enrollmentID, Date: date}
		created++
	}
	return created, nil
}

func (m *attendanceRepoStub) RosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, error) {
	key := date.Format("2006-01-02")
	var roster []models.RosterEntry
	for _, enrollmentID := range m.active[courseID] {
		row := m.rows[key][enrollmentID]
		roster = append(roster, models.RosterEntry{StudentID: enrollmentID, Present: row.Present})
	}
	return roster, nil
}

func (m *attendanceRepoStub) Upsert(ctx context.Context, attendance *models.Attendance) error {
	if m.rows == nil {
		m.rows = make(map[string]map[string]models.Attendance)
	}
	key := attendance.Date.Format("2006-01-02")
	if m.rows[key] == nil {
		m.rows[key] = make(map[string]models.Attendance)
	}
	if attendance.ID == "" {
		attendance.ID = "a-" + attendance.EnrollmentID
	}
	m.rows[key][attendance.EnrollmentID] = *attendance
	return nil
}

func (m *attendanceRepoStub) Delete(ctx context.Context, id string) error {
	return nil
}

type attendanceEnrollmentsStub struct {
	enrollments map[string]models.Enrollment
}

func (m *attendanceEnrollmentsStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *attendanceEnrollmentsStub) FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == models.EnrollmentStatusActive {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

type rosterEnvelope struct {
	Data  []models.RosterEntry   `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newAttendanceTestRouter() (*gin.Engine, *attendanceRepoStub) {
	gin.SetMode(gin.TestMode)
	repo := &attendanceRepoStub{active: map[string][]string{"c1": {"e1", "e2"}}}
	enrollments := &attendanceEnrollmentsStub{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive},
		"e2": {ID: "e2", StudentID: "s2", CourseID: "c1", Status: models.EnrollmentStatusActive},
	}}
	courses := &courseFinderStub{courses: map[string]*models.Course{"c1": {ID: "c1"}}}
	students := &studentFinderStub{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := service.NewAttendanceService(repo, enrollments, courses, students, nil, nil, nil)
	h := NewAttendanceHandler(svc)

	r := gin.New()
	r.GET("/courses/:id/attendance", h.CourseAttendance)
	r.POST("/courses/:id/attendance", h.RecordCourseAttendance)
	return r, repo
}

func TestAttendanceHandlerCourseAttendance(t *testing.T) {
	r, _ := newAttendanceTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses/c1/attendance?date=2026-03-02", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope rosterEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "2026-03-02", envelope.Meta["date"])
	assert.Equal(t, float64(2), envelope.Meta["created"])

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/courses/c1/attendance?date=2026-03-02", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, float64(0), envelope.Meta["created"])
}

func TestAttendanceHandlerCourseAttendanceDefaultsToToday(t *testing.T) {
	r, _ := newAttendanceTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses/c1/attendance", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope rosterEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	today := time.Now().UTC().Truncate(24 * time.Hour).Format("2006-01-02")
	assert.Equal(t, today, envelope.Meta["date"])
}

func TestAttendanceHandlerCourseAttendanceMalformedDate(t *testing.T) {
	r, _ := newAttendanceTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses/c1/attendance?date=march-2nd", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope rosterEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "date must be YYYY-MM-DD", envelope.Error.Message)
}

func TestAttendanceHandlerCourseAttendanceUnknownCourse(t *testing.T) {
	r, _ := newAttendanceTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses/missing/attendance", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandlerRecordCourseAttendancePartial(t *testing.T) {
	r, repo := newAttendanceTestRouter()

	body := `{"date":"2026-03-02","entries":[{"student_id":"s1","present":true},{"student_id":"unknown","present":true}]}`
	w := postJSON(t, r, "/courses/c1/attendance", body)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data service.BatchAttendanceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Updated)
	require.Len(t, envelope.Data.Errors, 1)
	assert.Contains(t, envelope.Data.Errors[0], "unknown")

	assert.True(t, repo.rows["2026-03-02"]["e1"].Present)
}

func TestAttendanceHandlerRecordCourseAttendanceInvalidBody(t *testing.T) {
	r, _ := newAttendanceTestRouter()

	w := postJSON(t, r, "/courses/c1/attendance", `{"entries":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
