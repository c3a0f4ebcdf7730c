package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/course-records-api/internal/models"
)

// ErrCourseFull signals that the course has no remaining seats. The capacity
// check runs inside the enrollment transaction so concurrent enrollments
// cannot oversubscribe a course.
var ErrCourseFull = errors.New("course is full")

// EnrollmentRepository manages persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.student_id, e.course_id, e.enrolled_at, e.status,
        TRIM(CONCAT(s.first_name, ' ', s.last_name)) AS student_name, s.enrollment_number AS student_number,
        c.code AS course_code, c.name AS course_name, g.value AS grade_value`

const enrollmentDetailJoins = `FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN grades g ON g.enrollment_id = e.id`

// List returns enrollment detail rows matching the provided filters.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.enrollment_number) LIKE $%d OR LOWER(c.code) LIKE $%d OR LOWER(c.name) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := fmt.Sprintf("%s WHERE %s", enrollmentDetailJoins, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"status":       "e.status",
		"student_name": "s.last_name",
		"course_code":  "c.code",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, base, column, order, size, offset)

	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at, status FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID fetches an enrollment with student, course and grade info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE e.id = $1`, enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsNonWithdrawn reports whether the student already holds an ACTIVE or
// COMPLETED enrollment in the course. Withdrawn enrollments do not block
// re-enrollment.
func (r *EnrollmentRepository) ExistsNonWithdrawn(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentStatusWithdrawn); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check existing enrollment: %w", err)
	}
	return true, nil
}

// CountActiveByCourse returns the number of ACTIVE enrollments for a course.
func (r *EnrollmentRepository) CountActiveByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// CreateWithCapacityCheck inserts the enrollment after verifying the seat
// count inside a transaction. The course row is locked with FOR UPDATE so the
// count cannot change between check and insert. Returns ErrCourseFull when
// every seat is taken.
func (r *EnrollmentRepository) CreateWithCapacityCheck(ctx context.Context, enrollment *models.Enrollment, maxSeats int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM courses WHERE id = $1 FOR UPDATE`, enrollment.CourseID); err != nil {
		return fmt.Errorf("lock course row: %w", err)
	}

	var active int
	if err := tx.GetContext(ctx, &active,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`,
		enrollment.CourseID, models.EnrollmentStatusActive); err != nil {
		return fmt.Errorf("count seats: %w", err)
	}
	if active >= maxSeats {
		return ErrCourseFull
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusActive

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO enrollments (id, student_id, course_id, enrolled_at, status)
        VALUES (:id, :student_id, :course_id, :enrolled_at, :status)`, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// UpdateStatus transitions an enrollment to a new status.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// Delete removes an enrollment and, via cascade, its grade and attendance rows.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollments WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// Schedule returns the weekly schedule built from a student's ACTIVE enrollments,
// ordered by meeting day then start time.
func (r *EnrollmentRepository) Schedule(ctx context.Context, studentID string) ([]models.ScheduleEntry, error) {
	const query = `SELECT c.day, c.start_time, c.end_time, c.code AS course_code, c.name AS course_name,
        TRIM(CONCAT(p.first_name, ' ', p.last_name)) AS professor_name
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN professors p ON p.id = c.professor_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY CASE c.day
            WHEN 'MON' THEN 1 WHEN 'TUE' THEN 2 WHEN 'WED' THEN 3 WHEN 'THU' THEN 4
            WHEN 'FRI' THEN 5 WHEN 'SAT' THEN 6 ELSE 7 END, c.start_time`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return entries, nil
}

// Transcript returns every enrollment of a student, whatever its status, with
// the grade if one has been recorded. Withdrawn enrollments appear with their
// status and a null grade.
func (r *EnrollmentRepository) Transcript(ctx context.Context, studentID string) ([]models.TranscriptEntry, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name,
        e.status, e.enrolled_at, g.value AS grade_value
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN grades g ON g.enrollment_id = e.id
        WHERE e.student_id = $1
        ORDER BY e.enrolled_at`
	var entries []models.TranscriptEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return entries, nil
}

// ActiveCourseSummaries returns the compact course list for a student's detail view.
func (r *EnrollmentRepository) ActiveCourseSummaries(ctx context.Context, studentID string) ([]models.CourseSummary, error) {
	const query = `SELECT c.id, c.code, c.name, TRIM(CONCAT(p.first_name, ' ', p.last_name)) AS professor_name
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN professors p ON p.id = c.professor_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY c.code`
	var summaries []models.CourseSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("load active courses: %w", err)
	}
	return summaries, nil
}

// FindActiveByStudentAndCourse fetches the ACTIVE enrollment linking a
// student to a course.
func (r *EnrollmentRepository) FindActiveByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at, status
        FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveByCourse returns the ACTIVE enrollments of a course.
func (r *EnrollmentRepository) ListActiveByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrolled_at, status
        FROM enrollments WHERE course_id = $1 AND status = $2`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active enrollments: %w", err)
	}
	return enrollments, nil
}
