package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	FindDetailByID(ctx context.Context, id string) (*models.GradeDetail, error)
	Upsert(ctx context.Context, grade *models.Grade) (bool, error)
	Delete(ctx context.Context, id string) error
}

type gradeEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type gradeCourseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// RecordGradeRequest holds payload for recording a grade. Value is a pointer
// so an omitted value is rejected instead of being read as 0.00.
type RecordGradeRequest struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required"`
	Value        *float64 `json:"value" validate:"required,grade_value"`
	Notes        string   `json:"notes"`
}

// UpdateGradeRequest holds payload for updating an existing grade.
type UpdateGradeRequest struct {
	Value *float64 `json:"value" validate:"required,grade_value"`
	Notes string   `json:"notes"`
}

// GradeService handles grade use-cases. Recording a grade on an ACTIVE
// enrollment whose course has already ended completes the enrollment.
type GradeService struct {
	repo        gradeRepository
	enrollments gradeEnrollmentRepository
	courses     gradeCourseFinder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService constructs the grade service and registers the grade_value
// validation: 0 to 10 inclusive with at most two decimal places.
func NewGradeService(repo gradeRepository, enrollments gradeEnrollmentRepository, courses gradeCourseFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("grade_value", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		if v < 0 || v > 10 {
			return false
		}
		scaled := v * 100
		return math.Abs(scaled-math.Round(scaled)) < 1e-9
	})
	return &GradeService{
		repo:        repo,
		enrollments: enrollments,
		courses:     courses,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns grade detail rows and pagination metadata.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
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
	return rows, pagination, nil
}

// Get returns a grade with student and course info.
func (s *GradeService) Get(ctx context.Context, id string) (*models.GradeDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return detail, nil
}

// Record inserts or replaces the grade for an enrollment. The returned flag
// is true when the grade was newly created. When the course has ended, an
// ACTIVE enrollment is completed as part of the call.
func (s *GradeService) Record(ctx context.Context, req RecordGradeRequest) (*models.Grade, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusWithdrawn {
		return nil, false, appErrors.Clone(appErrors.ErrConflict, "cannot grade a withdrawn enrollment")
	}

	grade := &models.Grade{EnrollmentID: req.EnrollmentID, Value: *req.Value, Notes: req.Notes}
	created, err := s.repo.Upsert(ctx, grade)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	if enrollment.Status == models.EnrollmentStatusActive {
		course, err := s.courses.FindByID(ctx, enrollment.CourseID)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		today := s.now().UTC().Truncate(24 * time.Hour)
		if !course.EndDate.After(today) {
			if err := s.enrollments.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusCompleted); err != nil {
				return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete enrollment")
			}
			s.logger.Info("enrollment completed",
				zap.String("enrollment_id", enrollment.ID),
				zap.String("course_id", enrollment.CourseID))
		}
	}

	s.invalidateViews(ctx, enrollment.StudentID, enrollment.CourseID)
	return grade, created, nil
}

// Update replaces the value and notes of an existing grade.
func (s *GradeService) Update(ctx context.Context, id string, req UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	grade.Value = *req.Value
	grade.Notes = req.Notes
	if _, err := s.repo.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	if enrollment, err := s.enrollments.FindByID(ctx, grade.EnrollmentID); err == nil {
		s.invalidateViews(ctx, enrollment.StudentID, enrollment.CourseID)
	}
	return grade, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	if enrollment, err := s.enrollments.FindByID(ctx, grade.EnrollmentID); err == nil {
		s.invalidateViews(ctx, enrollment.StudentID, enrollment.CourseID)
	}
	return nil
}

func (s *GradeService) invalidateViews(ctx context.Context, studentID, courseID string) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:student:%s*", studentID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", courseID))
}
