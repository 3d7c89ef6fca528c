package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

func TestPaymentRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(600.0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET amount_paid = $2, amount_due = $3, payment_status = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("s1", 600.0, 400.0, models.PaymentStatusHalfPaid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var derivedFrom float64
	total, err := repo.Append(context.Background(), &models.Payment{StudentID: "s1", Amount: 400}, func(amountPaid float64) (float64, models.PaymentStatus) {
		derivedFrom = amountPaid
		return 400, models.PaymentStatusHalfPaid
	})
	require.NoError(t, err)

	// The derived fields come from the ledger sum, not from an increment.
	assert.Equal(t, 600.0, total)
	assert.Equal(t, 600.0, derivedFrom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryAppendRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1")).
		WithArgs("s1").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), &models.Payment{StudentID: "s1", Amount: 400}, func(amountPaid float64) (float64, models.PaymentStatus) {
		return 0, models.PaymentStatusNotPaid
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	payments := sqlmock.NewRows([]string{"id", "student_id", "amount", "method", "reference", "description", "academic_term"}).
		AddRow("p1", "s1", 200.0, "cash", "", "", "").
		AddRow("p2", "s1", 300.0, "transfer", "ref-2", "", "")
	mock.ExpectQuery("SELECT id, student_id, amount, .+ FROM payments WHERE student_id = \\$1 ORDER BY payment_date ASC").
		WithArgs("s1").
		WillReturnRows(payments)

	out, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
