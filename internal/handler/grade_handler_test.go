package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/course-records-api/internal/models"
	"github.com/campusops/course-records-api/internal/service"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type gradeRepoStub struct {
	byEnrollment map[string]models.Grade
}

func (m *gradeRepoStub) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	return nil, 0, nil
}

func (m *gradeRepoStub) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	for _, g := range m.byEnrollment {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *gradeRepoStub) FindDetailByID(ctx context.Context, id string) (*models.GradeDetail, error) {
	g, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.GradeDetail{Grade: *g}, nil
}

func (m *gradeRepoStub) Upsert(ctx context.Context, grade *models.Grade) (bool, error) {
	if m.byEnrollment == nil {
		m.byEnrollment = make(map[string]models.Grade)
	}
	existing, ok := m.byEnrollment[grade.EnrollmentID]
	if ok {
		grade.ID = existing.ID
		grade.RecordedAt = existing.RecordedAt
	} else {
		grade.ID = "g-" + grade.EnrollmentID
		grade.RecordedAt = time.Now()
	}
	m.byEnrollment[grade.EnrollmentID] = *grade
	return !ok, nil
}

func (m *gradeRepoStub) Delete(ctx context.Context, id string) error {
	for key, g := range m.byEnrollment {
		if g.ID == id {
			delete(m.byEnrollment, key)
		}
	}
	return nil
}

type gradeEnrollmentsStub struct {
	enrollments map[string]*models.Enrollment
}

func (m *gradeEnrollmentsStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *gradeEnrollmentsStub) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
	}
	return nil
}

type gradeEnvelope struct {
	Data  models.Grade     `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func newGradeTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	repo := &gradeRepoStub{}
	enrollments := &gradeEnrollmentsStub{enrollments: map[string]*models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive},
	}}
	courses := &courseFinderStub{courses: map[string]*models.Course{
		"c1": {ID: "c1", EndDate: time.Now().Add(30 * 24 * time.Hour)},
	}}
	svc := service.NewGradeService(repo, enrollments, courses, nil, nil, nil)
	h := NewGradeHandler(svc)

	r := gin.New()
	r.POST("/grades/record", h.Record)
	return r
}

func TestGradeHandlerRecordCreatesThenReplaces(t *testing.T) {
	r := newGradeTestRouter()

	w := postJSON(t, r, "/grades/record", `{"enrollment_id":"e1","value":8.5}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope gradeEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 8.5, envelope.Data.Value)

	w = postJSON(t, r, "/grades/record", `{"enrollment_id":"e1","value":9.25}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 9.25, envelope.Data.Value)
}

func TestGradeHandlerRecordMissingValue(t *testing.T) {
	r := newGradeTestRouter()

	w := postJSON(t, r, "/grades/record", `{"enrollment_id":"e1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradeHandlerRecordValueOutOfRange(t *testing.T) {
	r := newGradeTestRouter()

	w := postJSON(t, r, "/grades/record", `{"enrollment_id":"e1","value":10.5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradeHandlerRecordUnknownEnrollment(t *testing.T) {
	r := newGradeTestRouter()

	w := postJSON(t, r, "/grades/record", `{"enrollment_id":"missing","value":7}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope gradeEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "enrollment not found", envelope.Error.Message)
}
