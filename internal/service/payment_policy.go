package service

import (
	"time"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

// PaymentPolicy derives a student's payment status from the ledger total and
// elapsed time since admission. The grace/ratio thresholds are deliberately a
// policy value rather than constants; the historical rule is 3 months and 50%.
type PaymentPolicy struct {
	GraceMonths int
	MinRatio    float64
}

// DefaultPaymentPolicy mirrors the long-standing overdue heuristic.
func DefaultPaymentPolicy() PaymentPolicy {
	return PaymentPolicy{GraceMonths: 3, MinRatio: 0.5}
}

// Derive computes the payment status. Zero total fees with nothing owed is
// treated as fully paid.
func (p PaymentPolicy) Derive(totalFees, amountPaid float64, admissionDate, now time.Time) models.PaymentStatus {
	if amountPaid >= totalFees {
		return models.PaymentStatusPaid
	}
	if amountPaid == 0 {
		return models.PaymentStatusNotPaid
	}
	if monthsBetween(admissionDate, now) > p.GraceMonths && amountPaid/totalFees < p.MinRatio {
		return models.PaymentStatusOverdue
	}
	return models.PaymentStatusHalfPaid
}

// AmountDue clamps the outstanding balance at zero.
func AmountDue(totalFees, amountPaid float64) float64 {
	due := totalFees - amountPaid
	if due < 0 {
		return 0
	}
	return due
}

// monthsBetween counts whole calendar months elapsed from a to b.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
