package models

import "time"

// ManualAdjustmentDescription marks synthetic ledger entries recorded when an
// administrator edits amount_paid directly instead of posting a payment.
const ManualAdjustmentDescription = "manual adjustment"

// Payment is one immutable ledger entry. The ledger is append-only; the
// student's amount_paid is always the sum of its entries.
type Payment struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Amount       float64   `db:"amount" json:"amount"`
	Method       string    `db:"method" json:"method"`
	Reference    string    `db:"reference" json:"reference"`
	Description  string    `db:"description" json:"description"`
	AcademicTerm string    `db:"academic_term" json:"academic_term"`
	PaymentDate  time.Time `db:"payment_date" json:"payment_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FinancialSummary is the payment-side view of a student returned after a
// ledger mutation.
type FinancialSummary struct {
	StudentID     string        `json:"student_id"`
	TotalFees     float64       `json:"total_fees"`
	AmountPaid    float64       `json:"amount_paid"`
	AmountDue     float64       `json:"amount_due"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Payment       *Payment      `json:"payment,omitempty"`
}
