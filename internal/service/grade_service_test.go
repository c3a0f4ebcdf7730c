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

type mockGradeRepo struct {
	grades  map[string]models.Grade
	byEnrol map[string]models.Grade
	deleted []string
}

func (m *mockGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	return nil, 0, nil
}

func (m *mockGradeRepo) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	if g, ok := m.grades[id]; ok {
		return &g, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) FindDetailByID(ctx context.Context, id string) (*models.GradeDetail, error) {
	if g, ok := m.grades[id]; ok {
		return &models.GradeDetail{Grade: g}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.Grade) (bool, error) {
	if m.byEnrol == nil {
		m.byEnrol = make(map[string]models.Grade)
	}
	if m.grades == nil {
		m.grades = make(map[string]models.Grade)
	}
	existing, ok := m.byEnrol[grade.EnrollmentID]
	if ok {
		grade.ID = existing.ID
		grade.RecordedAt = existing.RecordedAt
	} else {
		grade.ID = "g-" + grade.EnrollmentID
		grade.RecordedAt = time.Now()
	}
	m.byEnrol[grade.EnrollmentID] = *grade
	m.grades[grade.ID] = *grade
	return !ok, nil
}

func (m *mockGradeRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.grades, id)
	return nil
}

type mockGradeEnrollments struct {
	enrollments map[string]models.Enrollment
	status      map[string]models.EnrollmentStatus
}

func (m *mockGradeEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeEnrollments) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.status == nil {
		m.status = make(map[string]models.EnrollmentStatus)
	}
	m.status[id] = status
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		m.enrollments[id] = e
	}
	return nil
}

func ptrFloat(v float64) *float64 { return &v }

func newGradeFixture(endDate time.Time) (*mockGradeRepo, *mockGradeEnrollments, *mockCourseReader) {
	repo := &mockGradeRepo{}
	enrollments := &mockGradeEnrollments{enrollments: map[string]models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"c1": {ID: "c1", EndDate: endDate},
	}}
	return repo, enrollments, courses
}

func TestGradeServiceRecordCreatesThenUpdates(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(30 * 24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	grade, created, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(8.5)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 8.5, grade.Value)

	grade, created, err = svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(9.25)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 9.25, grade.Value)
}

func TestGradeServiceRecordCompletesEndedCourse(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(-24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(7)})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollments.status["e1"])
}

func TestGradeServiceRecordKeepsActiveWhileCourseRuns(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(30 * 24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(7)})
	require.NoError(t, err)
	assert.Empty(t, enrollments.status)
}

func TestGradeServiceRecordWithdrawnConflict(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now())
	enrollments.enrollments["e1"] = models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusWithdrawn}
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(7)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "cannot grade a withdrawn enrollment", appErr.Message)
}

func TestGradeServiceRecordEnrollmentNotFound(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now())
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "absent", Value: ptrFloat(7)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestGradeServiceRecordMissingValue(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Empty(t, repo.byEnrol)
}

func TestGradeServiceUpdate(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	recorded, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(6.5)})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), recorded.ID, UpdateGradeRequest{Value: ptrFloat(9), Notes: "resit"})
	require.NoError(t, err)
	assert.Equal(t, 9.0, updated.Value)
	assert.Equal(t, "resit", updated.Notes)
	assert.Equal(t, recorded.ID, updated.ID)
}

func TestGradeServiceUpdateNotFound(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "missing", UpdateGradeRequest{Value: ptrFloat(9)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestGradeServiceRecordValueValidation(t *testing.T) {
	repo, enrollments, courses := newGradeFixture(time.Now().Add(24 * time.Hour))
	svc := NewGradeService(repo, enrollments, courses, nil, validator.New(), zap.NewNop())

	cases := []struct {
		name  string
		value float64
		valid bool
	}{
		{"zero", 0, true},
		{"max", 10, true},
		{"two decimals", 7.25, true},
		{"negative", -0.5, false},
		{"above max", 10.01, false},
		{"three decimals", 7.125, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Record(context.Background(), RecordGradeRequest{EnrollmentID: "e1", Value: ptrFloat(tc.value)})
			if tc.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				appErr := appErrors.FromError(err)
				assert.Equal(t, http.StatusBadRequest, appErr.Status)
			}
		})
	}
}
