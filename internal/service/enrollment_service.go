package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	"github.com/campusops/course-records-api/internal/repository"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsNonWithdrawn(ctx context.Context, studentID, courseID string) (bool, error)
	CreateWithCapacityCheck(ctx context.Context, enrollment *models.Enrollment, maxSeats int) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Delete(ctx context.Context, id string) error
}

type enrollmentStudentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentCourseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// EnrollRequest holds payload for enrolling a student into a course.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// UpdateEnrollmentRequest holds payload for setting an enrollment's status
// directly. Student, course and enrollment date are immutable.
type UpdateEnrollmentRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE WITHDRAWN COMPLETED"`
}

// EnrollmentService handles enrollment lifecycle use-cases.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentFinder
	courses   enrollmentCourseFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentFinder, courses enrollmentCourseFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, cache: cache, validator: validate, logger: logger}
}

// List returns enrollment detail rows and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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

// Get returns an enrollment with student, course and grade info.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Enroll registers a student into a course and returns the enrollment with
// its joined student, course and grade display data. The student and course
// must exist, the student must not already hold an ACTIVE or COMPLETED
// enrollment in the course, and a seat must be free. The checks run in that
// order so the caller always gets the most specific failure.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.repo.ExistsNonWithdrawn(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this course")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID}
	if err := s.repo.CreateWithCapacityCheck(ctx, enrollment, course.MaxSeats); err != nil {
		if errors.Is(err, repository.ErrCourseFull) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.invalidateViews(ctx, req.StudentID, req.CourseID)
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("course_id", req.CourseID))
	return s.detail(ctx, enrollment.ID)
}

// Withdraw transitions an ACTIVE enrollment to WITHDRAWN and returns the
// enrollment with its joined display data. Grades and attendance already
// recorded are kept.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is not active")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusWithdrawn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}

	s.invalidateViews(ctx, enrollment.StudentID, enrollment.CourseID)
	s.logger.Info("student withdrawn",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("course_id", enrollment.CourseID))
	return s.detail(ctx, id)
}

func (s *EnrollmentService) detail(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Update sets an enrollment's status. Unlike Withdraw it carries no
// transition rule; it is the administrative edit on the CRUD surface.
func (s *EnrollmentService) Update(ctx context.Context, id string, req UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatus(req.Status)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	s.invalidateViews(ctx, enrollment.StudentID, enrollment.CourseID)
	return s.detail(ctx, id)
}

// Delete removes an enrollment and cascades to its grade and attendance rows.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.invalidateViews(ctx, enrollment.StudentID, enrollment.CourseID)
	return nil
}

func (s *EnrollmentService) invalidateViews(ctx context.Context, studentID, courseID string) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:student:%s*", studentID))
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", courseID))
}
