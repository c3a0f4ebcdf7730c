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

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseRow, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
}

type courseProfessorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
}

type courseRosterRepository interface {
	RosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, error)
}

// CreateCourseRequest holds payload for creating courses.
type CreateCourseRequest struct {
	Code        string    `json:"code" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Credits     int       `json:"credits" validate:"required,gt=0"`
	ProfessorID *string   `json:"professor_id"`
	MaxSeats    int       `json:"max_seats" validate:"required,gt=0"`
	Day         string    `json:"day" validate:"required"`
	StartTime   string    `json:"start_time" validate:"required"`
	EndTime     string    `json:"end_time" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
}

// UpdateCourseRequest holds payload for updating courses.
type UpdateCourseRequest struct {
	Code        string    `json:"code" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Credits     int       `json:"credits" validate:"required,gt=0"`
	ProfessorID *string   `json:"professor_id"`
	MaxSeats    int       `json:"max_seats" validate:"required,gt=0"`
	Day         string    `json:"day" validate:"required"`
	StartTime   string    `json:"start_time" validate:"required"`
	EndTime     string    `json:"end_time" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Active      bool      `json:"active"`
}

// CourseService handles course use-cases including the daily roster view.
type CourseService struct {
	repo       courseRepository
	professors courseProfessorFinder
	roster     courseRosterRepository
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, professors courseProfessorFinder, roster courseRosterRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, professors: professors, roster: roster, cache: cache, validator: validate, logger: logger}
}

// List returns course rows and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseRow, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
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
	return courses, pagination, nil
}

// ByProfessor returns the courses taught by one professor.
func (s *CourseService) ByProfessor(ctx context.Context, professorID string, filter models.CourseFilter) ([]models.CourseRow, *models.Pagination, error) {
	if _, err := s.professors.FindByID(ctx, professorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	filter.ProfessorID = professorID
	return s.List(ctx, filter)
}

// Get returns a course with professor name and seat usage.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return detail, nil
}

// Create registers a new course offering.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.validateScheduleFields(req.Day, req.StartTime, req.EndTime, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := s.checkProfessor(ctx, req.ProfessorID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	course := &models.Course{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Credits:     req.Credits,
		ProfessorID: req.ProfessorID,
		MaxSeats:    req.MaxSeats,
		Day:         models.DayOfWeek(req.Day),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Active:      true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies an existing course offering.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := s.validateScheduleFields(req.Day, req.StartTime, req.EndTime, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.checkProfessor(ctx, req.ProfessorID); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	course.Code = req.Code
	course.Name = req.Name
	course.Description = req.Description
	course.Credits = req.Credits
	course.ProfessorID = req.ProfessorID
	course.MaxSeats = req.MaxSeats
	course.Day = models.DayOfWeek(req.Day)
	course.StartTime = req.StartTime
	course.EndTime = req.EndTime
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate
	course.Active = req.Active
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", id))
	return course, nil
}

// Deactivate marks a course inactive. Existing enrollments are untouched.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", id))
	return nil
}

// Roster returns one row per ACTIVE enrollment with the recorded presence for
// the date. Students without a recorded row appear as absent.
func (s *CourseService) Roster(ctx context.Context, id string, date time.Time) ([]models.RosterEntry, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	key := fmt.Sprintf("views:course:%s:roster:%s", id, date.Format("2006-01-02"))
	var cached []models.RosterEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	roster, err := s.roster.RosterForDate(ctx, id, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	_ = s.cache.Set(ctx, key, roster, 0)
	return roster, nil
}

func (s *CourseService) validateScheduleFields(day, startTime, endTime string, startDate, endDate time.Time) error {
	if !models.DayOfWeek(day).Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "day must be one of MON..SUN")
	}
	start, err := time.Parse("15:04", startTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := time.Parse("15:04", endTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if !startDate.Before(endDate) {
		return appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	return nil
}

func (s *CourseService) checkProfessor(ctx context.Context, professorID *string) error {
	if professorID == nil || *professorID == "" {
		return nil
	}
	if _, err := s.professors.FindByID(ctx, *professorID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return nil
}
