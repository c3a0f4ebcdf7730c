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

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	FindDetailByID(ctx context.Context, id string) (*models.AttendanceDetail, error)
	EnsureForDate(ctx context.Context, courseID string, date time.Time) (int, error)
	RosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, error)
	Upsert(ctx context.Context, attendance *models.Attendance) error
	Delete(ctx context.Context, id string) error
}

type attendanceEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
}

type attendanceCourseFinder interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type attendanceStudentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// RecordAttendanceRequest holds payload for recording one attendance row.
type RecordAttendanceRequest struct {
	EnrollmentID string    `json:"enrollment_id" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Present      bool      `json:"present"`
	Excused      bool      `json:"excused"`
	Notes        string    `json:"notes"`
}

// UpdateAttendanceRequest holds payload for editing an existing attendance
// row. The enrollment and date stay fixed; only the mark changes.
type UpdateAttendanceRequest struct {
	Present bool   `json:"present"`
	Excused bool   `json:"excused"`
	Notes   string `json:"notes"`
}

// BatchAttendanceEntry is one student's mark inside a batch request.
type BatchAttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
	Excused   bool   `json:"excused"`
	Notes     string `json:"notes"`
}

// BatchAttendanceRequest holds payload for recording attendance for a whole
// course session in one call.
type BatchAttendanceRequest struct {
	CourseID string                 `json:"course_id" validate:"required"`
	Date     time.Time              `json:"date" validate:"required"`
	Entries  []BatchAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// BatchAttendanceResult reports how many rows a batch call wrote and the
// per-entry failures. A failed entry never aborts the rest of the batch.
type BatchAttendanceResult struct {
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// AttendanceService handles attendance use-cases.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments attendanceEnrollmentRepository
	courses     attendanceCourseFinder
	students    attendanceStudentFinder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, enrollments attendanceEnrollmentRepository, courses attendanceCourseFinder, students attendanceStudentFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, courses: courses, students: students, cache: cache, validator: validate, logger: logger}
}

// List returns attendance detail rows and pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
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

// Get returns an attendance row with student and course info.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	return detail, nil
}

// EnsureRosterForDate creates an absent-by-default attendance row for every
// ACTIVE enrollment in the course that lacks one for the date, then returns
// the roster. Calling it again for the same date changes nothing.
func (s *AttendanceService) EnsureRosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, int, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	created, err := s.repo.EnsureForDate(ctx, courseID, date)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare roster")
	}
	roster, err := s.repo.RosterForDate(ctx, courseID, date)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	if created > 0 {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", courseID))
	}
	return roster, created, nil
}

// Record inserts or replaces the attendance row for an enrollment and date.
// The enrollment must be ACTIVE.
func (s *AttendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment is not active")
	}

	attendance := &models.Attendance{
		EnrollmentID: req.EnrollmentID,
		Date:         req.Date,
		Present:      req.Present,
		Excused:      req.Excused,
		Notes:        req.Notes,
	}
	if err := s.repo.Upsert(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", enrollment.CourseID))
	return attendance, nil
}

// Update edits the mark on an existing attendance row.
func (s *AttendanceService) Update(ctx context.Context, id string, req UpdateAttendanceRequest) (*models.Attendance, error) {
	attendance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	attendance.Present = req.Present
	attendance.Excused = req.Excused
	attendance.Notes = req.Notes
	if err := s.repo.Upsert(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance record")
	}
	if enrollment, err := s.enrollments.FindByID(ctx, attendance.EnrollmentID); err == nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", enrollment.CourseID))
	}
	return attendance, nil
}

// RecordBatch writes attendance for a whole course session. Each entry is
// resolved and written independently; failures are collected per student and
// reported next to the count of successful writes.
func (s *AttendanceService) RecordBatch(ctx context.Context, req BatchAttendanceRequest) (*BatchAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance batch payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	result := &BatchAttendanceResult{Errors: []string{}}
	for _, entry := range req.Entries {
		enrollment, err := s.enrollments.FindActiveByStudentAndCourse(ctx, entry.StudentID, req.CourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Errors = append(result.Errors, fmt.Sprintf("student %s has no active enrollment in this course", entry.StudentID))
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("student %s: failed to resolve enrollment", entry.StudentID))
			continue
		}
		attendance := &models.Attendance{
			EnrollmentID: enrollment.ID,
			Date:         req.Date,
			Present:      entry.Present,
			Excused:      entry.Excused,
			Notes:        entry.Notes,
		}
		if err := s.repo.Upsert(ctx, attendance); err != nil {
			s.logger.Warn("attendance upsert failed",
				zap.String("student_id", entry.StudentID),
				zap.String("course_id", req.CourseID),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("student %s: failed to record attendance", entry.StudentID))
			continue
		}
		result.Updated++
	}

	if result.Updated > 0 {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("views:course:%s*", req.CourseID))
	}
	return result, nil
}

// ByCourse returns attendance rows for a course, optionally limited to a
// date range.
func (s *AttendanceService) ByCourse(ctx context.Context, courseID string, from, to *time.Time, page, pageSize int) ([]models.AttendanceDetail, *models.Pagination, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return s.List(ctx, models.AttendanceFilter{
		CourseID: courseID,
		DateFrom: from,
		DateTo:   to,
		Page:     page,
		PageSize: pageSize,
		SortBy:   "date",
	})
}

// ByStudent returns a student's attendance rows, optionally limited to one
// course.
func (s *AttendanceService) ByStudent(ctx context.Context, studentID, courseID string, page, pageSize int) ([]models.AttendanceDetail, *models.Pagination, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return s.List(ctx, models.AttendanceFilter{
		StudentID: studentID,
		CourseID:  courseID,
		Page:      page,
		PageSize:  pageSize,
		SortBy:    "date",
	})
}

// Delete removes an attendance row.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance record")
	}
	return nil
}
