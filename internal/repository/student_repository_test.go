package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "date_of_birth", "gender", "class", "level", "academic_year", "admission_date",
		"status", "status_reason", "status_date", "guardian_name", "guardian_phone", "address",
		"total_fees", "amount_paid", "amount_due", "payment_status", "created_at", "updated_at",
	}).AddRow("s1", "Jane", "Doe", now, "F", "BABY", "N1", "2025-2026", now,
		"active", nil, nil, "John Doe", "123", "Street",
		1000.0, 200.0, 800.0, "half_paid", now, now)
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT id, first_name, .+ FROM students WHERE 1=1 AND class = \\$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0").
		WithArgs(models.ClassBaby).
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1 AND class = $1")).
		WithArgs(models.ClassBaby).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Class: models.ClassBaby})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	// An unexpected sort column falls back to created_at.
	mock.ExpectQuery("FROM students WHERE 1=1 ORDER BY created_at DESC").
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.StudentFilter{SortBy: "total_fees; DROP TABLE students"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{FirstName: "Jane", LastName: "Doe", Class: models.ClassBaby, AcademicYear: "2025-2026"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryPromoteGuardsOnActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET class = $2, academic_year = $3, updated_at = $4 WHERE id = $1 AND status = $5")).
		WithArgs("s1", models.ClassTop, "2026-2027", sqlmock.AnyArg(), models.StudentStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.Promote(context.Background(), "s1", models.ClassTop, "2026-2027")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryPromoteAlreadyMoved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET class = ").
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.Promote(context.Background(), "s1", models.ClassTop, "2026-2027")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryGraduate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status = $2, status_reason = $3, status_date = $4, updated_at = $5 WHERE id = $1 AND status = $6")).
		WithArgs("s1", models.StudentStatusGraduated, "end of program", at, sqlmock.AnyArg(), models.StudentStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.Graduate(context.Background(), "s1", "end of program", at)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
