package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/course-records-api/internal/models"
)

// AttendanceRepository manages persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceDetailColumns = `a.id, a.enrollment_id, a.date, a.present, a.excused, a.notes, a.created_at, a.updated_at,
        TRIM(CONCAT(s.first_name, ' ', s.last_name)) AS student_name,
        c.code AS course_code, c.name AS course_name`

const attendanceDetailJoins = `FROM attendance a
        JOIN enrollments e ON e.id = a.enrollment_id
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id`

// List returns attendance detail rows matching the provided filters.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(c.code) LIKE $%d OR LOWER(c.name) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := fmt.Sprintf("%s WHERE %s", attendanceDetailJoins, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"date":         "a.date",
		"student_name": "s.last_name",
		"course_code":  "c.code",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "a.date"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s, s.last_name ASC LIMIT %d OFFSET %d`,
		attendanceDetailColumns, base, column, order, size, offset)

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches an attendance row by ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	const query = `SELECT id, enrollment_id, date, present, excused, notes, created_at, updated_at
        FROM attendance WHERE id = $1`
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, id); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// FindDetailByID fetches an attendance row with student and course info.
func (r *AttendanceRepository) FindDetailByID(ctx context.Context, id string) (*models.AttendanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.id = $1`, attendanceDetailColumns, attendanceDetailJoins)
	var detail models.AttendanceDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// EnsureForDate inserts an attendance row, defaulting to absent, for every
// ACTIVE enrollment in the course that has no row for the date yet. Existing
// rows are left untouched, so the call is idempotent. Returns the number of
// rows created.
func (r *AttendanceRepository) EnsureForDate(ctx context.Context, courseID string, date time.Time) (int, error) {
	const query = `INSERT INTO attendance (id, enrollment_id, date, present, excused, notes, created_at, updated_at)
        SELECT gen_random_uuid(), e.id, $2, false, false, '', $3, $3
        FROM enrollments e
        WHERE e.course_id = $1 AND e.status = $4
        ON CONFLICT (enrollment_id, date) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, courseID, date, time.Now().UTC(), models.EnrollmentStatusActive)
	if err != nil {
		return 0, fmt.Errorf("ensure attendance rows: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ensure attendance rows: %w", err)
	}
	return int(created), nil
}

// RosterForDate returns one row per ACTIVE enrollment in the course with the
// recorded presence for the date, absent when no row exists.
func (r *AttendanceRepository) RosterForDate(ctx context.Context, courseID string, date time.Time) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.enrollment_number,
        TRIM(CONCAT(s.first_name, ' ', s.last_name)) AS student_name,
        COALESCE(a.present, false) AS present
        FROM enrollments e
        JOIN students s ON s.id = e.student_id
        LEFT JOIN attendance a ON a.enrollment_id = e.id AND a.date = $2
        WHERE e.course_id = $1 AND e.status = $3
        ORDER BY s.last_name, s.first_name`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID, date, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return roster, nil
}

// Upsert inserts or replaces the attendance row for an enrollment and date.
func (r *AttendanceRepository) Upsert(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attendance.CreatedAt.IsZero() {
		attendance.CreatedAt = now
	}
	attendance.UpdatedAt = now

	const query = `INSERT INTO attendance (id, enrollment_id, date, present, excused, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (enrollment_id, date) DO UPDATE SET present = EXCLUDED.present, excused = EXCLUDED.excused,
            notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	var row struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := r.db.GetContext(ctx, &row, query,
		attendance.ID, attendance.EnrollmentID, attendance.Date, attendance.Present,
		attendance.Excused, attendance.Notes, attendance.CreatedAt, attendance.UpdatedAt); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	attendance.ID = row.ID
	attendance.CreatedAt = row.CreatedAt
	return nil
}

// Delete removes an attendance row.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attendance WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}
