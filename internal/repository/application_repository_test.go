package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

func TestApplicationRepositoryConvertToStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET imported_as_student_id = $2, updated_at = $3 WHERE id = $1 AND imported_as_student_id IS NULL")).
		WithArgs("a1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.Student{FirstName: "Jane", LastName: "Doe", Class: models.ClassBaby, AcademicYear: "2025-2026", Status: models.StudentStatusActive}
	converted, err := repo.ConvertToStudent(context.Background(), "a1", student)
	require.NoError(t, err)
	assert.True(t, converted)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryConvertToStudentAlreadyImported(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	// The IS NULL guard matches zero rows, so no student insert happens.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications SET imported_as_student_id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	converted, err := repo.ConvertToStudent(context.Background(), "a1", &models.Student{})
	require.NoError(t, err)
	assert.False(t, converted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListApprovedUnimported(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "date_of_birth", "gender", "guardian_name", "guardian_phone", "address",
		"academic_year", "class", "level", "status", "imported_as_student_id", "created_at", "updated_at"}).
		AddRow("a1", "Jane", "Doe", now, "F", "John Doe", "123", "Street",
			"2025-2026", "BABY", "N1", "approved", nil, now, now)
	mock.ExpectQuery("FROM applications WHERE status = \\$1 AND imported_as_student_id IS NULL").
		WithArgs(models.ApplicationStatusApproved).
		WillReturnRows(rows)

	applications, err := repo.ListApprovedUnimported(context.Background())
	require.NoError(t, err)
	require.Len(t, applications, 1)
	assert.Nil(t, applications[0].ImportedAsStudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCountByYearAndStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 4).
		AddRow("approved", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM applications WHERE academic_year = $1 GROUP BY status")).
		WithArgs("2025-2026").
		WillReturnRows(rows)

	counts, err := repo.CountByYearAndStatus(context.Background(), "2025-2026")
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.ApplicationStatusPending])
	assert.Equal(t, 2, counts[models.ApplicationStatusApproved])
	assert.NoError(t, mock.ExpectationsWereMet())
}
