package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/course-records-api/internal/models"
	appErrors "github.com/campusops/course-records-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByNumber(ctx context.Context, number string, excludeID string) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type studentViewRepository interface {
	ActiveCourseSummaries(ctx context.Context, studentID string) ([]models.CourseSummary, error)
	Schedule(ctx context.Context, studentID string) ([]models.ScheduleEntry, error)
	Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	EnrollmentNumber string    `json:"enrollment_number" validate:"required"`
	FirstName        string    `json:"first_name" validate:"required"`
	LastName         string    `json:"last_name" validate:"required"`
	Email            string    `json:"email" validate:"required,email"`
	Phone            string    `json:"phone"`
	BirthDate        time.Time `json:"birth_date" validate:"required"`
	AdmittedAt       time.Time `json:"admitted_at" validate:"required"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	EnrollmentNumber string    `json:"enrollment_number" validate:"required"`
	FirstName        string    `json:"first_name" validate:"required"`
	LastName         string    `json:"last_name" validate:"required"`
	Email            string    `json:"email" validate:"required,email"`
	Phone            string    `json:"phone"`
	BirthDate        time.Time `json:"birth_date" validate:"required"`
	AdmittedAt       time.Time `json:"admitted_at" validate:"required"`
	Active           bool      `json:"active"`
}

// StudentService handles student use-cases including the schedule and
// transcript views.
type StudentService struct {
	repo      studentRepository
	views     studentViewRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, views studentViewRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, views: views, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns a student with the courses they are actively enrolled in.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	courses, err := s.views.ActiveCourseSummaries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student courses")
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return &models.StudentDetail{Student: *student, Courses: courses}, nil
}

// Courses returns the course summaries for a student's ACTIVE enrollments.
func (s *StudentService) Courses(ctx context.Context, id string) ([]models.CourseSummary, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	courses, err := s.views.ActiveCourseSummaries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student courses")
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return courses, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByNumber(ctx, req.EnrollmentNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment number already used")
	}
	exists, err = s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	student := &models.Student{
		EnrollmentNumber: req.EnrollmentNumber,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		BirthDate:        req.BirthDate,
		AdmittedAt:       req.AdmittedAt,
		Active:           true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByNumber(ctx, req.EnrollmentNumber, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment number already used")
	}
	exists, err = s.repo.ExistsByEmail(ctx, req.Email, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	student.EnrollmentNumber = req.EnrollmentNumber
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Phone = req.Phone
	student.BirthDate = req.BirthDate
	student.AdmittedAt = req.AdmittedAt
	student.Active = req.Active
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate marks a student inactive. Enrollments and their history remain.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// Schedule returns the student's weekly schedule from ACTIVE enrollments.
func (s *StudentService) Schedule(ctx context.Context, id string) ([]models.ScheduleEntry, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	key := fmt.Sprintf("views:student:%s:schedule", id)
	var cached []models.ScheduleEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	entries, err := s.views.Schedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	_ = s.cache.Set(ctx, key, entries, 0)
	return entries, nil
}

// Transcript returns every enrollment, whatever its status, with the grade if
// one has been recorded.
func (s *StudentService) Transcript(ctx context.Context, id string) ([]models.TranscriptEntry, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	key := fmt.Sprintf("views:student:%s:transcript", id)
	var cached []models.TranscriptEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	entries, err := s.views.Transcript(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transcript")
	}
	if entries == nil {
		entries = []models.TranscriptEntry{}
	}
	_ = s.cache.Set(ctx, key, entries, 0)
	return entries, nil
}
