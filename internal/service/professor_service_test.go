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

type mockProfessorRepo struct {
	professors map[string]models.Professor
	emails     map[string]string
	disabled   []string
}

func (m *mockProfessorRepo) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	var out []models.Professor
	for _, p := range m.professors {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockProfessorRepo) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	if p, ok := m.professors[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfessorRepo) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	owner, ok := m.emails[email]
	return ok && owner != excludeID, nil
}

func (m *mockProfessorRepo) Create(ctx context.Context, professor *models.Professor) error {
	if m.professors == nil {
		m.professors = make(map[string]models.Professor)
	}
	professor.ID = "new-professor"
	m.professors[professor.ID] = *professor
	return nil
}

func (m *mockProfessorRepo) Update(ctx context.Context, professor *models.Professor) error {
	m.professors[professor.ID] = *professor
	return nil
}

func (m *mockProfessorRepo) Deactivate(ctx context.Context, id string) error {
	m.disabled = append(m.disabled, id)
	return nil
}

func validCreateProfessorRequest() CreateProfessorRequest {
	return CreateProfessorRequest{
		FirstName: "Eva",
		LastName:  "Marin",
		Email:     "eva.marin@example.com",
		Specialty: "Mathematics",
		HiredAt:   time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProfessorServiceCreate(t *testing.T) {
	repo := &mockProfessorRepo{emails: map[string]string{}}
	svc := NewProfessorService(repo, validator.New(), zap.NewNop())

	professor, err := svc.Create(context.Background(), validCreateProfessorRequest())
	require.NoError(t, err)
	assert.True(t, professor.Active)
	assert.NotEmpty(t, professor.ID)
}

func TestProfessorServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockProfessorRepo{emails: map[string]string{"eva.marin@example.com": "other"}}
	svc := NewProfessorService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), validCreateProfessorRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "email already used", appErr.Message)
}

func TestProfessorServiceCreateMissingFields(t *testing.T) {
	repo := &mockProfessorRepo{emails: map[string]string{}}
	svc := NewProfessorService(repo, validator.New(), zap.NewNop())

	req := validCreateProfessorRequest()
	req.LastName = ""
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestProfessorServiceUpdateKeepsOwnEmail(t *testing.T) {
	repo := &mockProfessorRepo{
		professors: map[string]models.Professor{"p1": {ID: "p1", Email: "eva.marin@example.com"}},
		emails:     map[string]string{"eva.marin@example.com": "p1"},
	}
	svc := NewProfessorService(repo, validator.New(), zap.NewNop())

	req := UpdateProfessorRequest{
		FirstName: "Eva",
		LastName:  "Marin",
		Email:     "eva.marin@example.com",
		HiredAt:   time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
		Active:    true,
	}
	professor, err := svc.Update(context.Background(), "p1", req)
	require.NoError(t, err)
	assert.Equal(t, "Eva", professor.FirstName)
}

func TestProfessorServiceDeactivateNotFound(t *testing.T) {
	repo := &mockProfessorRepo{}
	svc := NewProfessorService(repo, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "professor not found", appErr.Message)
}
