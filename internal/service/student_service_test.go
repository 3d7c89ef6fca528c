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
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
)

type mockStudentRepo struct {
	items      map[string]*models.Student
	listResult []models.Student
	listTotal  int
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := m.items[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.items == nil {
		m.items = make(map[string]*models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) SetStatus(ctx context.Context, id string, status models.StudentStatus, reason string, at time.Time) error {
	if st, ok := m.items[id]; ok {
		st.Status = status
		st.StatusReason = &reason
		st.StatusDate = &at
	}
	return nil
}

type mockYearLookup struct {
	known map[string]bool
}

func (m *mockYearLookup) ExistsByYear(ctx context.Context, yearLabel string, excludeID string) (bool, error) {
	return m.known[yearLabel], nil
}

type mockLedger struct {
	appended []AddPaymentRequest
	summary  *models.FinancialSummary
}

func (m *mockLedger) AddPayment(ctx context.Context, studentID string, req AddPaymentRequest) (*models.FinancialSummary, error) {
	m.appended = append(m.appended, req)
	if m.summary != nil {
		return m.summary, nil
	}
	return &models.FinancialSummary{StudentID: studentID, AmountPaid: req.Amount}, nil
}

func newStudentServiceForTest(repo *mockStudentRepo, ledger *mockLedger, notifier Notifier) *StudentService {
	years := &mockYearLookup{known: map[string]bool{"2025-2026": true}}
	return NewStudentService(repo, years, ledger, DefaultPaymentPolicy(), notifier, nil, zap.NewNop())
}

func TestStudentCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentServiceForTest(repo, &mockLedger{}, nil)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:    "Jane",
		LastName:     "Doe",
		DateOfBirth:  time.Date(2022, time.May, 10, 0, 0, 0, 0, time.UTC),
		Class:        models.ClassBaby,
		AcademicYear: "2025-2026",
		TotalFees:    1000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Equal(t, models.PaymentStatusNotPaid, student.PaymentStatus)
	assert.Equal(t, 0.0, student.AmountPaid)
	assert.Equal(t, 1000.0, student.AmountDue)
	assert.Len(t, repo.items, 1)
}

func TestStudentCreateUnknownYear(t *testing.T) {
	svc := newStudentServiceForTest(&mockStudentRepo{}, &mockLedger{}, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:    "Jane",
		LastName:     "Doe",
		DateOfBirth:  time.Date(2022, time.May, 10, 0, 0, 0, 0, time.UTC),
		Class:        models.ClassBaby,
		AcademicYear: "1999-2000",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStudentCreateUnknownClass(t *testing.T) {
	svc := newStudentServiceForTest(&mockStudentRepo{}, &mockLedger{}, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:    "Jane",
		LastName:     "Doe",
		DateOfBirth:  time.Date(2022, time.May, 10, 0, 0, 0, 0, time.UTC),
		Class:        "KINDERGARTEN",
		AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStudentUpdateRoutesManualPaymentThroughLedger(t *testing.T) {
	existing := activeStudent("s1", 1000, 200)
	repo := &mockStudentRepo{items: map[string]*models.Student{"s1": existing}}
	ledger := &mockLedger{summary: &models.FinancialSummary{
		StudentID:     "s1",
		TotalFees:     1000,
		AmountPaid:    500,
		AmountDue:     500,
		PaymentStatus: models.PaymentStatusHalfPaid,
	}}
	svc := newStudentServiceForTest(repo, ledger, nil)

	paid := 500.0
	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		FirstName:    existing.FirstName,
		LastName:     existing.LastName,
		DateOfBirth:  existing.DateOfBirth,
		Class:        existing.Class,
		AcademicYear: existing.AcademicYear,
		AmountPaid:   &paid,
	})
	require.NoError(t, err)

	// The edit became a ledger entry for the delta, not a direct write.
	require.Len(t, ledger.appended, 1)
	assert.Equal(t, 300.0, ledger.appended[0].Amount)
	assert.Equal(t, models.ManualAdjustmentDescription, ledger.appended[0].Description)
	assert.Equal(t, 500.0, updated.AmountPaid)
	assert.Equal(t, models.PaymentStatusHalfPaid, updated.PaymentStatus)
}

func TestStudentUpdateRejectsDecreasingAmountPaid(t *testing.T) {
	existing := activeStudent("s1", 1000, 500)
	repo := &mockStudentRepo{items: map[string]*models.Student{"s1": existing}}
	ledger := &mockLedger{}
	svc := newStudentServiceForTest(repo, ledger, nil)

	paid := 100.0
	_, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		FirstName:    existing.FirstName,
		LastName:     existing.LastName,
		DateOfBirth:  existing.DateOfBirth,
		Class:        existing.Class,
		AcademicYear: existing.AcademicYear,
		AmountPaid:   &paid,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "cannot decrease")
	assert.Empty(t, ledger.appended)
}

func TestStudentSetStatus(t *testing.T) {
	repo := &mockStudentRepo{items: map[string]*models.Student{"s1": activeStudent("s1", 1000, 0)}}
	notifier := &recordingNotifier{}
	svc := newStudentServiceForTest(repo, &mockLedger{}, notifier)

	student, err := svc.SetStatus(context.Background(), "s1", SetStudentStatusRequest{
		Status: models.StudentStatusSuspended,
		Reason: "unpaid fees",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusSuspended, student.Status)
	require.NotNil(t, student.StatusReason)
	assert.Equal(t, "unpaid fees", *student.StatusReason)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, EventStudentStatusChanged, notifier.events[0].Type)
}

func TestStudentSetStatusTerminalIsFinal(t *testing.T) {
	graduated := activeStudent("s1", 1000, 1000)
	graduated.Status = models.StudentStatusGraduated
	repo := &mockStudentRepo{items: map[string]*models.Student{"s1": graduated}}
	svc := newStudentServiceForTest(repo, &mockLedger{}, nil)

	_, err := svc.SetStatus(context.Background(), "s1", SetStudentStatusRequest{Status: models.StudentStatusActive})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidStateTransition))
}

func TestStudentListComputesAge(t *testing.T) {
	repo := &mockStudentRepo{
		listResult: []models.Student{
			{ID: "s1", DateOfBirth: time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)},
		},
		listTotal: 1,
	}
	years := &mockYearLookup{known: map[string]bool{}}
	svc := NewStudentService(repo, years, &mockLedger{}, DefaultPaymentPolicy(), nil, nil, zap.NewNop(),
		WithStudentClock(func() time.Time {
			return time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
		}),
	)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 4, students[0].ChildAge)
	assert.Equal(t, 1, pagination.TotalCount)
}
