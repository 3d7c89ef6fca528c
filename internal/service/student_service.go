package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetStatus(ctx context.Context, id string, status models.StudentStatus, reason string, at time.Time) error
}

type yearLookup interface {
	ExistsByYear(ctx context.Context, yearLabel string, excludeID string) (bool, error)
}

type ledgerAppender interface {
	AddPayment(ctx context.Context, studentID string, req AddPaymentRequest) (*models.FinancialSummary, error)
}

// CreateStudentRequest holds payload for enrolling a student.
type CreateStudentRequest struct {
	FirstName     string       `json:"first_name" validate:"required"`
	LastName      string       `json:"last_name" validate:"required"`
	DateOfBirth   time.Time    `json:"date_of_birth" validate:"required"`
	Gender        string       `json:"gender"`
	Class         models.Class `json:"class" validate:"required"`
	Level         string       `json:"level"`
	AcademicYear  string       `json:"academic_year" validate:"required"`
	AdmissionDate time.Time    `json:"admission_date"`
	GuardianName  string       `json:"guardian_name"`
	GuardianPhone string       `json:"guardian_phone"`
	Address       string       `json:"address"`
	TotalFees     float64      `json:"total_fees" validate:"gte=0"`
}

// UpdateStudentRequest patches an existing student. Derived financial fields
// are not accepted: AmountPaid here is a manual ledger correction and goes
// through the ledger as a synthetic adjustment entry.
type UpdateStudentRequest struct {
	FirstName     string       `json:"first_name" validate:"required"`
	LastName      string       `json:"last_name" validate:"required"`
	DateOfBirth   time.Time    `json:"date_of_birth" validate:"required"`
	Gender        string       `json:"gender"`
	Class         models.Class `json:"class" validate:"required"`
	Level         string       `json:"level"`
	AcademicYear  string       `json:"academic_year" validate:"required"`
	GuardianName  string       `json:"guardian_name"`
	GuardianPhone string       `json:"guardian_phone"`
	Address       string       `json:"address"`
	TotalFees     *float64     `json:"total_fees" validate:"omitempty,gte=0"`
	AmountPaid    *float64     `json:"amount_paid" validate:"omitempty,gte=0"`
}

// SetStudentStatusRequest records a lifecycle transition.
type SetStudentStatusRequest struct {
	Status models.StudentStatus `json:"status" validate:"required"`
	Reason string               `json:"reason"`
}

// StudentView decorates a student with the computed age.
type StudentView struct {
	models.Student
	ChildAge int `json:"child_age"`
}

// StudentService handles the student record store use-cases.
type StudentService struct {
	repo      studentRepository
	years     yearLookup
	ledger    ledgerAppender
	policy    PaymentPolicy
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// StudentServiceOption configures the service.
type StudentServiceOption func(*StudentService)

// WithStudentClock overrides the clock, for tests.
func WithStudentClock(now func() time.Time) StudentServiceOption {
	return func(s *StudentService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, years yearLookup, ledger ledgerAppender, policy PaymentPolicy, notifier Notifier, validate *validator.Validate, logger *zap.Logger, opts ...StudentServiceOption) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	svc := &StudentService{
		repo:      repo,
		years:     years,
		ledger:    ledger,
		policy:    policy,
		notifier:  notifier,
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

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]StudentView, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	now := s.now()
	views := make([]StudentView, 0, len(students))
	for _, st := range students {
		views = append(views, StudentView{Student: st, ChildAge: st.ChildAge(now)})
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return views, pagination, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentView, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return &StudentView{Student: *student, ChildAge: student.ChildAge(s.now())}, nil
}

// Create enrolls a new student with a zeroed ledger.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidClass(req.Class) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown class %q", req.Class))
	}
	exists, err := s.years.ExistsByYear(ctx, req.AcademicYear, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate academic year")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("academic year %q does not exist", req.AcademicYear))
	}

	now := s.now().UTC()
	admission := req.AdmissionDate
	if admission.IsZero() {
		admission = now
	}
	student := &models.Student{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DateOfBirth:   req.DateOfBirth,
		Gender:        req.Gender,
		Class:         req.Class,
		Level:         req.Level,
		AcademicYear:  req.AcademicYear,
		AdmissionDate: admission,
		Status:        models.StudentStatusActive,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		Address:       req.Address,
		TotalFees:     req.TotalFees,
		AmountPaid:    0,
		AmountDue:     req.TotalFees,
		PaymentStatus: models.PaymentStatusNotPaid,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return &StudentView{Student: *student, ChildAge: student.ChildAge(now)}, nil
}

// Update patches an existing student. Payment status and amount due are
// always recomputed; a changed AmountPaid is routed through the ledger.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidClass(req.Class) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown class %q", req.Class))
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.years.ExistsByYear(ctx, req.AcademicYear, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate academic year")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("academic year %q does not exist", req.AcademicYear))
	}

	if req.AmountPaid != nil && *req.AmountPaid < student.AmountPaid {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount_paid cannot decrease: the ledger is append-only")
	}

	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.DateOfBirth = req.DateOfBirth
	student.Gender = req.Gender
	student.Class = req.Class
	student.Level = req.Level
	student.AcademicYear = req.AcademicYear
	student.GuardianName = req.GuardianName
	student.GuardianPhone = req.GuardianPhone
	student.Address = req.Address
	if req.TotalFees != nil {
		student.TotalFees = *req.TotalFees
	}

	// Derived fields follow the ledger and the (possibly new) total fees.
	student.AmountDue = AmountDue(student.TotalFees, student.AmountPaid)
	student.PaymentStatus = s.policy.Derive(student.TotalFees, student.AmountPaid, student.AdmissionDate, s.now())

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	// A manual amount_paid edit is a ledger correction, never a silent
	// divergence: the delta is appended as a synthetic adjustment entry and
	// the derived fields are refreshed from the ledger sum.
	if req.AmountPaid != nil && *req.AmountPaid != student.AmountPaid {
		delta := *req.AmountPaid - student.AmountPaid
		summary, err := s.ledger.AddPayment(ctx, id, AddPaymentRequest{
			Amount:      delta,
			Method:      "adjustment",
			Description: models.ManualAdjustmentDescription,
		})
		if err != nil {
			return nil, err
		}
		student.AmountPaid = summary.AmountPaid
		student.AmountDue = summary.AmountDue
		student.PaymentStatus = summary.PaymentStatus
	}

	return &StudentView{Student: *student, ChildAge: student.ChildAge(s.now())}, nil
}

// SetStatus records a lifecycle transition. Terminal states are final.
func (s *StudentService) SetStatus(ctx context.Context, id string, req SetStudentStatusRequest) (*StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !models.ValidStudentStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, fmt.Sprintf("student is %s", student.Status))
	}

	now := s.now().UTC()
	if err := s.repo.SetStatus(ctx, id, req.Status, req.Reason, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set student status")
	}
	student.Status = req.Status
	student.StatusReason = &req.Reason
	student.StatusDate = &now

	s.notifier.Dispatch(NotificationEvent{
		Type:      EventStudentStatusChanged,
		Category:  models.NotificationCategorySystem,
		Title:     "Student status changed",
		Message:   fmt.Sprintf("%s is now %s", student.FullName(), req.Status),
		RelatedID: student.ID,
		Metadata:  map[string]interface{}{"status": req.Status, "reason": req.Reason},
	})

	return &StudentView{Student: *student, ChildAge: student.ChildAge(now)}, nil
}
