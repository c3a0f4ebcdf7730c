package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type professorRepository interface {
	List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error)
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, professor *models.Professor) error
	Update(ctx context.Context, professor *models.Professor) error
	Deactivate(ctx context.Context, id string) error
}

// CreateProfessorRequest holds payload for creating professors.
type CreateProfessorRequest struct {
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone"`
	Specialty string    `json:"specialty"`
	HiredAt   time.Time `json:"hired_at" validate:"required"`
}

// UpdateProfessorRequest holds payload for updating professors.
type UpdateProfessorRequest struct {
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Phone     string    `json:"phone"`
	Specialty string    `json:"specialty"`
	HiredAt   time.Time `json:"hired_at" validate:"required"`
	Active    bool      `json:"active"`
}

// ProfessorService handles professor use-cases.
type ProfessorService struct {
	repo      professorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService constructs the professor service.
func NewProfessorService(repo professorRepository, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorService{repo: repo, validator: validate, logger: logger}
}

// List returns professors and pagination metadata.
func (s *ProfessorService) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, *models.Pagination, error) {
	professors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return professors, pagination, nil
}

// Get returns a professor by ID.
func (s *ProfessorService) Get(ctx context.Context, id string) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return professor, nil
}

// Create registers a new professor.
func (s *ProfessorService) Create(ctx context.Context, req CreateProfessorRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}
	exists, err := s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	professor := &models.Professor{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
		HiredAt:   req.HiredAt,
		Active:    true,
	}
	if err := s.repo.Create(ctx, professor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create professor")
	}
	return professor, nil
}

// Update modifies an existing professor record.
func (s *ProfessorService) Update(ctx context.Context, id string, req UpdateProfessorRequest) (*models.Professor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}
	professor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	exists, err := s.repo.ExistsByEmail(ctx, req.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	professor.FirstName = req.FirstName
	professor.LastName = req.LastName
	professor.Email = req.Email
	professor.Phone = req.Phone
	professor.Specialty = req.Specialty
	professor.HiredAt = req.HiredAt
	professor.Active = req.Active
	if err := s.repo.Update(ctx, professor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professor")
	}
	return professor, nil
}

// Deactivate marks a professor inactive. Courses keep the reference.
func (s *ProfessorService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate professor")
	}
	return nil
}
