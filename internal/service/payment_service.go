package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/repository"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/export"
)

type paymentRepository interface {
	Append(ctx context.Context, payment *models.Payment, derive repository.DeriveFunc) (float64, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type statementRenderer interface {
	Render(st export.Statement) ([]byte, error)
}

type paymentMetrics interface {
	ObservePayment(amount float64)
}

// AddPaymentRequest is one incoming ledger entry.
type AddPaymentRequest struct {
	Amount       float64 `json:"amount" validate:"required"`
	Method       string  `json:"payment_method"`
	Reference    string  `json:"reference"`
	Description  string  `json:"description"`
	AcademicTerm string  `json:"academic_term"`
}

// PaymentService guards the append-only ledger and keeps the derived
// financial fields consistent with it.
type PaymentService struct {
	payments  paymentRepository
	students  studentLookup
	policy    PaymentPolicy
	notifier  Notifier
	renderer  statementRenderer
	renderTTL time.Duration
	metrics   paymentMetrics
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// PaymentServiceOption configures the service.
type PaymentServiceOption func(*PaymentService)

// WithPaymentClock overrides the clock, for tests.
func WithPaymentClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStatementRenderer wires PDF statement rendering with a time budget.
func WithStatementRenderer(renderer statementRenderer, timeout time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		s.renderer = renderer
		if timeout > 0 {
			s.renderTTL = timeout
		}
	}
}

// WithPaymentMetrics wires ledger counters.
func WithPaymentMetrics(metrics paymentMetrics) PaymentServiceOption {
	return func(s *PaymentService) {
		s.metrics = metrics
	}
}

// NewPaymentService constructs the payment service.
func NewPaymentService(payments paymentRepository, students studentLookup, policy PaymentPolicy, notifier Notifier, validate *validator.Validate, logger *zap.Logger, opts ...PaymentServiceOption) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	svc := &PaymentService{
		payments:  payments,
		students:  students,
		policy:    policy,
		notifier:  notifier,
		renderTTL: 10 * time.Second,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// AddPayment appends one ledger entry and refreshes the derived fields.
// A payment-received notification is emitted on every successful addition;
// the one that crosses the student into paid is raised to high priority.
func (s *PaymentService) AddPayment(ctx context.Context, studentID string, req AddPaymentRequest) (*models.FinancialSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment amount must be positive")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("student is %s: the ledger is closed", student.Status))
	}

	now := s.now()
	payment := &models.Payment{
		StudentID:    studentID,
		Amount:       req.Amount,
		Method:       req.Method,
		Reference:    req.Reference,
		Description:  req.Description,
		AcademicTerm: req.AcademicTerm,
		PaymentDate:  now.UTC(),
	}

	var newStatus models.PaymentStatus
	amountPaid, err := s.payments.Append(ctx, payment, func(total float64) (float64, models.PaymentStatus) {
		newStatus = s.policy.Derive(student.TotalFees, total, student.AdmissionDate, now)
		return AmountDue(student.TotalFees, total), newStatus
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if s.metrics != nil {
		s.metrics.ObservePayment(req.Amount)
	}

	summary := &models.FinancialSummary{
		StudentID:     studentID,
		TotalFees:     student.TotalFees,
		AmountPaid:    amountPaid,
		AmountDue:     AmountDue(student.TotalFees, amountPaid),
		PaymentStatus: newStatus,
		Payment:       payment,
	}

	event := NotificationEvent{
		Type:      EventPaymentReceived,
		Category:  models.NotificationCategoryPayments,
		Title:     "Payment received",
		Message:   fmt.Sprintf("%s paid %.2f (%s)", student.FullName(), req.Amount, req.Method),
		RelatedID: studentID,
		Metadata:  map[string]interface{}{"amount": req.Amount, "payment_status": newStatus},
	}
	if newStatus == models.PaymentStatusPaid && student.PaymentStatus != models.PaymentStatusPaid {
		event.PriorityOverride = models.NotificationPriorityHigh
		event.Title = "Fees settled"
	}
	s.notifier.Dispatch(event)

	return summary, nil
}

// ListPayments returns the ledger for one student.
func (s *PaymentService) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// ExportStatement renders the student's fee statement as PDF bytes. The
// rendering runs under a budget; an overrun surfaces as a timeout error.
func (s *PaymentService) ExportStatement(ctx context.Context, studentID string) ([]byte, error) {
	if s.renderer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "statement rendering is not configured")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	lines := make([]export.StatementLine, 0, len(payments))
	for _, p := range payments {
		lines = append(lines, export.StatementLine{
			Date:        p.PaymentDate,
			Amount:      p.Amount,
			Method:      p.Method,
			Reference:   p.Reference,
			Description: p.Description,
		})
	}
	statement := export.Statement{
		StudentName:   student.FullName(),
		Class:         string(student.Class),
		AcademicYear:  student.AcademicYear,
		TotalFees:     student.TotalFees,
		AmountPaid:    student.AmountPaid,
		AmountDue:     student.AmountDue,
		PaymentStatus: string(student.PaymentStatus),
		GeneratedAt:   s.now(),
		Lines:         lines,
	}

	ctx, cancel := context.WithTimeout(ctx, s.renderTTL)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.renderer.Render(statement)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "statement rendering timed out")
	case res := <-done:
		if res.err != nil {
			return nil, appErrors.Wrap(res.err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
		}
		return res.data, nil
	}
}
