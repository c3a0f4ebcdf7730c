package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/course-records-api/internal/models"
)

func newGradeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGradeRepositoryUpsertInserts(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	recordedAt := time.Date(2026, 6, 30, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO grades").
		WithArgs(sqlmock.AnyArg(), "e1", 8.5, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recorded_at", "inserted"}).AddRow("g1", recordedAt, true))

	grade := &models.Grade{EnrollmentID: "e1", Value: 8.5}
	inserted, err := repo.Upsert(context.Background(), grade)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "g1", grade.ID)
	assert.Equal(t, recordedAt, grade.RecordedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsertUpdatesExisting(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	recordedAt := time.Date(2026, 6, 30, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO grades").
		WithArgs(sqlmock.AnyArg(), "e1", 9.25, "resit", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recorded_at", "inserted"}).AddRow("g1", recordedAt, false))

	grade := &models.Grade{EnrollmentID: "e1", Value: 9.25, Notes: "resit"}
	inserted, err := repo.Upsert(context.Background(), grade)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "g1", grade.ID)
	assert.Equal(t, recordedAt, grade.RecordedAt)
}

func TestGradeRepositoryFindByEnrollment(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "value", "notes", "recorded_at", "updated_at"}).
		AddRow("g1", "e1", 8.5, "", now, now)
	mock.ExpectQuery(`SELECT id, enrollment_id, value, notes, recorded_at, updated_at FROM grades WHERE enrollment_id = \$1`).
		WithArgs("e1").
		WillReturnRows(rows)

	grade, err := repo.FindByEnrollment(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "g1", grade.ID)
	assert.Equal(t, 8.5, grade.Value)
}

func TestGradeRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newGradeMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(`DELETE FROM grades WHERE id = \$1`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "g1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
