package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

// DeriveFunc computes the derived financial fields for the new ledger total.
// Kept as a callback so the derivation stays a pure function in the service
// while the write stays atomic here.
type DeriveFunc func(amountPaid float64) (amountDue float64, status models.PaymentStatus)

// PaymentRepository manages the append-only payment ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Append inserts a ledger entry and refreshes the student's derived financial
// fields in one transaction. The new amount_paid is recomputed from the
// ledger sum, never incremented, so the invariant amount_paid == SUM(ledger)
// holds even if earlier writes drifted.
func (r *PaymentRepository) Append(ctx context.Context, payment *models.Payment, derive DeriveFunc) (float64, error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append payment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO payments (id, student_id, amount, method, reference, description, academic_term, payment_date, created_at)
        VALUES (:id, :student_id, :amount, :method, :reference, :description, :academic_term, :payment_date, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, payment); err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}

	var amountPaid float64
	if err = tx.GetContext(ctx, &amountPaid, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1`, payment.StudentID); err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}

	amountDue, status := derive(amountPaid)
	if _, err = tx.ExecContext(ctx,
		`UPDATE students SET amount_paid = $2, amount_due = $3, payment_status = $4, updated_at = $5 WHERE id = $1`,
		payment.StudentID, amountPaid, amountDue, status, now,
	); err != nil {
		return 0, fmt.Errorf("refresh student financials: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append payment tx: %w", err)
	}
	return amountPaid, nil
}

// ListByStudent returns the full ledger for one student, oldest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	const query = `SELECT id, student_id, amount, method, reference, description, academic_term, payment_date, created_at
        FROM payments WHERE student_id = $1 ORDER BY payment_date ASC, created_at ASC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// SumByStudent returns the current ledger total for one student.
func (r *PaymentRepository) SumByStudent(ctx context.Context, studentID string) (float64, error) {
	var sum float64
	if err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE student_id = $1`, studentID); err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
