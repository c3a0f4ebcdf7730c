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

// ProfessorRepository manages persistence for professor records.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs a ProfessorRepository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// List returns professors matching the provided filters.
func (r *ProfessorRepository) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	base := "FROM professors p"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("p.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.first_name) LIKE $%d OR LOWER(p.last_name) LIKE $%d OR LOWER(p.email) LIKE $%d OR LOWER(p.specialty) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":  "p.last_name",
		"first_name": "p.first_name",
		"hired_at":   "p.hired_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.last_name"
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

	query := fmt.Sprintf(`SELECT p.id, p.first_name, p.last_name, p.email, p.phone, p.specialty, p.hired_at, p.active, p.created_at, p.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count professors: %w", err)
	}
	return professors, total, nil
}

// FindByID fetches a professor by ID.
func (r *ProfessorRepository) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	const query = `SELECT id, first_name, last_name, email, phone, specialty, hired_at, active, created_at, updated_at
        FROM professors WHERE id = $1`
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, query, id); err != nil {
		return nil, err
	}
	return &professor, nil
}

// ExistsByEmail checks if a professor with given email exists optionally excluding an ID.
func (r *ProfessorRepository) ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM professors WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check professor email: %w", err)
	}
	return true, nil
}

// Create inserts a new professor record.
func (r *ProfessorRepository) Create(ctx context.Context, professor *models.Professor) error {
	if professor.ID == "" {
		professor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if professor.CreatedAt.IsZero() {
		professor.CreatedAt = now
	}
	professor.UpdatedAt = now
	const query = `INSERT INTO professors (id, first_name, last_name, email, phone, specialty, hired_at, active, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :email, :phone, :specialty, :hired_at, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, professor); err != nil {
		return fmt.Errorf("create professor: %w", err)
	}
	return nil
}

// Update modifies an existing professor.
func (r *ProfessorRepository) Update(ctx context.Context, professor *models.Professor) error {
	professor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE professors SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone,
        specialty = :specialty, hired_at = :hired_at, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, professor); err != nil {
		return fmt.Errorf("update professor: %w", err)
	}
	return nil
}

// Deactivate marks a professor as inactive.
func (r *ProfessorRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE professors SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate professor: %w", err)
	}
	return nil
}
