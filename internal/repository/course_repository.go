package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/course-records-api/internal/models"
)

// CourseRepository manages persistence for course records.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `c.id, c.code, c.name, c.description, c.credits, c.professor_id, c.max_seats, c.day,
        c.start_time, c.end_time, c.start_date, c.end_date, c.active, c.created_at, c.updated_at`

// List returns courses matching the provided filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseRow, int, error) {
	base := "FROM courses c LEFT JOIN professors p ON p.id = c.professor_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("c.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(c.name) LIKE $%d OR LOWER(c.description) LIKE $%d OR LOWER(p.first_name) LIKE $%d OR LOWER(p.last_name) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"code":       "c.code",
		"name":       "c.name",
		"credits":    "c.credits",
		"start_date": "c.start_date",
		"end_date":   "c.end_date",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "c.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s, TRIM(CONCAT(p.first_name, ' ', p.last_name)) AS professor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, courseColumns, base, column, order, size, offset)

	var courses []models.CourseRow
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, name, description, credits, professor_id, max_seats, day,
        start_time, end_time, start_date, end_date, active, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID fetches a course with professor name and ACTIVE enrollment count.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s, TRIM(CONCAT(p.first_name, ' ', p.last_name)) AS professor_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id AND e.status = $2) AS enrolled_count
        FROM courses c LEFT JOIN professors p ON p.id = c.professor_id
        WHERE c.id = $1`, courseColumns)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks if a course with given code exists optionally excluding an ID.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1)"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, code, name, description, credits, professor_id, max_seats, day, start_time, end_time, start_date, end_date, active, created_at, updated_at)
        VALUES (:id, :code, :name, :description, :credits, :professor_id, :max_seats, :day, :start_time, :end_time, :start_date, :end_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an existing course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, description = :description, credits = :credits,
        professor_id = :professor_id, max_seats = :max_seats, day = :day, start_time = :start_time, end_time = :end_time,
        start_date = :start_date, end_date = :end_date, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Deactivate marks a course as inactive.
func (r *CourseRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE courses SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	return nil
}
