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

// GradeRepository manages persistence for grades. Each enrollment carries at
// most one grade; writes go through Upsert.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeDetailColumns = `g.id, g.enrollment_id, g.value, g.notes, g.recorded_at, g.updated_at,
        TRIM(CONCAT(s.first_name, ' ', s.last_name)) AS student_name,
        c.code AS course_code, c.name AS course_name`

const gradeDetailJoins = `FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id`

// List returns grade detail rows matching the provided filters.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("g.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(c.code) LIKE $%d OR LOWER(c.name) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := fmt.Sprintf("%s WHERE %s", gradeDetailJoins, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"recorded_at": "g.recorded_at",
		"value":       "g.value",
		"course_code": "c.code",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "g.recorded_at"
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
		gradeDetailColumns, base, column, order, size, offset)

	var rows []models.GradeDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches a grade by ID.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	const query = `SELECT id, enrollment_id, value, notes, recorded_at, updated_at FROM grades WHERE id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// FindDetailByID fetches a grade with student and course info.
func (r *GradeRepository) FindDetailByID(ctx context.Context, id string) (*models.GradeDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE g.id = $1`, gradeDetailColumns, gradeDetailJoins)
	var detail models.GradeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByEnrollment fetches the grade for an enrollment, if recorded.
func (r *GradeRepository) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	const query = `SELECT id, enrollment_id, value, notes, recorded_at, updated_at FROM grades WHERE enrollment_id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, enrollmentID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Upsert inserts or replaces the grade for an enrollment. The returned flag is
// true when a new row was inserted. Postgres exposes this through xmax, which
// is zero only for rows never touched by an update.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) (bool, error) {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.RecordedAt.IsZero() {
		grade.RecordedAt = now
	}
	grade.UpdatedAt = now

	const query = `INSERT INTO grades (id, enrollment_id, value, notes, recorded_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (enrollment_id) DO UPDATE SET value = EXCLUDED.value, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
        RETURNING id, recorded_at, (xmax = 0) AS inserted`

	var row struct {
		ID         string    `db:"id"`
		RecordedAt time.Time `db:"recorded_at"`
		Inserted   bool      `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &row, query,
		grade.ID, grade.EnrollmentID, grade.Value, grade.Notes, grade.RecordedAt, grade.UpdatedAt); err != nil {
		return false, fmt.Errorf("upsert grade: %w", err)
	}
	grade.ID = row.ID
	grade.RecordedAt = row.RecordedAt
	return row.Inserted, nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grades WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
