package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

func TestPaymentPolicyDerive(t *testing.T) {
	policy := DefaultPaymentPolicy()
	admission := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		totalFees  float64
		amountPaid float64
		now        time.Time
		want       models.PaymentStatus
	}{
		{
			name:       "nothing paid",
			totalFees:  1000,
			amountPaid: 0,
			now:        admission.AddDate(0, 1, 0),
			want:       models.PaymentStatusNotPaid,
		},
		{
			name:       "fully paid",
			totalFees:  1000,
			amountPaid: 1000,
			now:        admission.AddDate(0, 1, 0),
			want:       models.PaymentStatusPaid,
		},
		{
			name:       "overpaid still paid",
			totalFees:  1000,
			amountPaid: 1200,
			now:        admission.AddDate(0, 1, 0),
			want:       models.PaymentStatusPaid,
		},
		{
			name:       "zero fees is paid",
			totalFees:  0,
			amountPaid: 0,
			now:        admission.AddDate(0, 6, 0),
			want:       models.PaymentStatusPaid,
		},
		{
			name:       "partial inside grace",
			totalFees:  1000,
			amountPaid: 300,
			now:        admission.AddDate(0, 2, 0),
			want:       models.PaymentStatusHalfPaid,
		},
		{
			name:       "partial exactly at grace boundary",
			totalFees:  1000,
			amountPaid: 300,
			now:        admission.AddDate(0, 3, 0),
			want:       models.PaymentStatusHalfPaid,
		},
		{
			name:       "low ratio past grace",
			totalFees:  1000,
			amountPaid: 300,
			now:        admission.AddDate(0, 4, 0),
			want:       models.PaymentStatusOverdue,
		},
		{
			name:       "healthy ratio past grace",
			totalFees:  1000,
			amountPaid: 600,
			now:        admission.AddDate(0, 4, 0),
			want:       models.PaymentStatusHalfPaid,
		},
		{
			name:       "exactly half past grace",
			totalFees:  1000,
			amountPaid: 500,
			now:        admission.AddDate(0, 4, 0),
			want:       models.PaymentStatusHalfPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Derive(tt.totalFees, tt.amountPaid, admission, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountDueClampsAtZero(t *testing.T) {
	assert.Equal(t, 400.0, AmountDue(1000, 600))
	assert.Equal(t, 0.0, AmountDue(1000, 1200))
	assert.Equal(t, 0.0, AmountDue(0, 0))
}

func TestMonthsBetween(t *testing.T) {
	a := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, monthsBetween(a, a))
	assert.Equal(t, 0, monthsBetween(a, a.AddDate(0, 0, 20)))
	assert.Equal(t, 1, monthsBetween(a, a.AddDate(0, 1, 0)))
	assert.Equal(t, 3, monthsBetween(a, a.AddDate(0, 3, 0)))
	// Day-of-month not yet reached does not count as a whole month.
	assert.Equal(t, 2, monthsBetween(a, time.Date(2025, time.December, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, monthsBetween(a, a.AddDate(0, -1, 0)))
}
