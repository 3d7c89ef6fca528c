package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/repository"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/export"
)

type mockPaymentRepo struct {
	ledger   map[string]float64
	appended []*models.Payment
}

func (m *mockPaymentRepo) Append(ctx context.Context, payment *models.Payment, derive repository.DeriveFunc) (float64, error) {
	if m.ledger == nil {
		m.ledger = make(map[string]float64)
	}
	m.ledger[payment.StudentID] += payment.Amount
	m.appended = append(m.appended, payment)
	total := m.ledger[payment.StudentID]
	derive(total)
	return total, nil
}

func (m *mockPaymentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	out := make([]models.Payment, 0, len(m.appended))
	for _, p := range m.appended {
		if p.StudentID == studentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockStudentLookup struct {
	students map[string]*models.Student
}

func (m *mockStudentLookup) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := m.students[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type recordingNotifier struct {
	events []NotificationEvent
}

func (r *recordingNotifier) Dispatch(event NotificationEvent) {
	r.events = append(r.events, event)
}

func activeStudent(id string, totalFees, amountPaid float64) *models.Student {
	return &models.Student{
		ID:            id,
		FirstName:     "Jane",
		LastName:      "Doe",
		DateOfBirth:   time.Date(2021, time.March, 15, 0, 0, 0, 0, time.UTC),
		Class:         models.ClassMiddle,
		AcademicYear:  "2025-2026",
		AdmissionDate: time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC),
		Status:        models.StudentStatusActive,
		TotalFees:     totalFees,
		AmountPaid:    amountPaid,
		AmountDue:     totalFees - amountPaid,
		PaymentStatus: models.PaymentStatusNotPaid,
	}
}

func TestAddPayment(t *testing.T) {
	repo := &mockPaymentRepo{}
	lookup := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1", 1000, 0)}}
	notifier := &recordingNotifier{}
	svc := NewPaymentService(repo, lookup, DefaultPaymentPolicy(), notifier, nil, zap.NewNop(),
		WithPaymentClock(func() time.Time {
			return time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
		}),
	)

	summary, err := svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: 400, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, 400.0, summary.AmountPaid)
	assert.Equal(t, 600.0, summary.AmountDue)
	assert.Equal(t, models.PaymentStatusHalfPaid, summary.PaymentStatus)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventPaymentReceived, notifier.events[0].Type)
	assert.Empty(t, notifier.events[0].PriorityOverride)
}

func TestAddPaymentSettlingRaisesPriority(t *testing.T) {
	repo := &mockPaymentRepo{ledger: map[string]float64{"s1": 800}}
	lookup := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1", 1000, 800)}}
	notifier := &recordingNotifier{}
	svc := NewPaymentService(repo, lookup, DefaultPaymentPolicy(), notifier, nil, zap.NewNop())

	summary, err := svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: 200, Method: "transfer"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, summary.PaymentStatus)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.NotificationPriorityHigh, notifier.events[0].PriorityOverride)
}

func TestAddPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockStudentLookup{}, DefaultPaymentPolicy(), nil, nil, zap.NewNop())

	_, err := svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: -50})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: 0})
	require.Error(t, err)
}

func TestAddPaymentUnknownStudent(t *testing.T) {
	svc := NewPaymentService(&mockPaymentRepo{}, &mockStudentLookup{}, DefaultPaymentPolicy(), nil, nil, zap.NewNop())

	_, err := svc.AddPayment(context.Background(), "ghost", AddPaymentRequest{Amount: 100})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAddPaymentRejectsClosedLedger(t *testing.T) {
	graduated := activeStudent("s1", 1000, 1000)
	graduated.Status = models.StudentStatusGraduated
	lookup := &mockStudentLookup{students: map[string]*models.Student{"s1": graduated}}
	svc := NewPaymentService(&mockPaymentRepo{}, lookup, DefaultPaymentPolicy(), nil, nil, zap.NewNop())

	_, err := svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: 100})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidStateTransition))
}

func TestListPayments(t *testing.T) {
	repo := &mockPaymentRepo{}
	lookup := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1", 1000, 0)}}
	svc := NewPaymentService(repo, lookup, DefaultPaymentPolicy(), nil, nil, zap.NewNop())

	_, err := svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: 100})
	require.NoError(t, err)
	_, err = svc.AddPayment(context.Background(), "s1", AddPaymentRequest{Amount: 250})
	require.NoError(t, err)

	payments, err := svc.ListPayments(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

type slowRenderer struct {
	delay time.Duration
}

func (s *slowRenderer) Render(st export.Statement) ([]byte, error) {
	time.Sleep(s.delay)
	return []byte("%PDF"), nil
}

func TestExportStatementTimesOut(t *testing.T) {
	lookup := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1", 1000, 0)}}
	svc := NewPaymentService(&mockPaymentRepo{}, lookup, DefaultPaymentPolicy(), nil, nil, zap.NewNop(),
		WithStatementRenderer(&slowRenderer{delay: 200 * time.Millisecond}, 20*time.Millisecond),
	)

	_, err := svc.ExportStatement(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTimeout))
}

func TestExportStatementRenders(t *testing.T) {
	lookup := &mockStudentLookup{students: map[string]*models.Student{"s1": activeStudent("s1", 1000, 0)}}
	svc := NewPaymentService(&mockPaymentRepo{}, lookup, DefaultPaymentPolicy(), nil, nil, zap.NewNop(),
		WithStatementRenderer(export.NewStatementRenderer(), time.Second),
	)

	data, err := svc.ExportStatement(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
