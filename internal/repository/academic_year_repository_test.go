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

func academicYearRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "year", "start_date", "end_date", "is_active", "is_default", "created_at", "updated_at"}).
		AddRow("y1", "2025-2026", now, now.AddDate(1, 0, 0), true, false, now, now)
}

func TestAcademicYearRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectQuery("SELECT id, year, .+ FROM academic_years ORDER BY start_date DESC").
		WillReturnRows(academicYearRows())

	years, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, years, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetActiveSwapsInOneTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = FALSE, updated_at = $1 WHERE is_active = TRUE AND id <> $2")).
		WithArgs(sqlmock.AnyArg(), "y2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_active = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("y2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetActive(context.Background(), "y2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySetActiveRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE academic_years SET is_active = FALSE").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	require.Error(t, repo.SetActive(context.Background(), "y2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryExistsByYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectQuery("SELECT 1 FROM academic_years WHERE year = \\$1 LIMIT 1").
		WithArgs("2025-2026").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByYear(context.Background(), "2025-2026", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM academic_years WHERE year = \\$1 LIMIT 1").
		WithArgs("2030-2031").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByYear(context.Background(), "2030-2031", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectExec("INSERT INTO academic_years").
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.AcademicYear{Year: "2025-2026", StartDate: time.Now(), EndDate: time.Now().AddDate(1, 0, 0)}
	require.NoError(t, repo.Create(context.Background(), year))
	assert.NotEmpty(t, year.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
