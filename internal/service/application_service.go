package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	SetStatus(ctx context.Context, id string, status models.ApplicationStatus) error
	ListApprovedUnimported(ctx context.Context) ([]models.Application, error)
	ConvertToStudent(ctx context.Context, applicationID string, student *models.Student) (bool, error)
}

// ImportSkip records one approved application the import left behind.
type ImportSkip struct {
	ApplicationID string `json:"application_id"`
	Name          string `json:"name"`
	Reason        string `json:"reason"`
}

// ImportResult summarizes one import run.
type ImportResult struct {
	ImportedCount int          `json:"imported_count"`
	Skipped       []ImportSkip `json:"skipped"`
}

// ApplicationService bridges the public admission intake into the student
// roster. Applications are reviewed, approved, and then imported in bulk;
// the conversion is idempotent so a retried import never duplicates a child.
type ApplicationService struct {
	repo        applicationRepository
	defaultFees float64
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// ApplicationServiceOption configures the service.
type ApplicationServiceOption func(*ApplicationService)

// WithApplicationClock overrides the clock, for tests.
func WithApplicationClock(now func() time.Time) ApplicationServiceOption {
	return func(s *ApplicationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewApplicationService constructs the application service. defaultFees seeds
// total_fees on imported students until the office adjusts it per child.
func NewApplicationService(repo applicationRepository, defaultFees float64, notifier Notifier, logger *zap.Logger, opts ...ApplicationServiceOption) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	svc := &ApplicationService{
		repo:        repo,
		defaultFees: defaultFees,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// List returns applications matching the filter.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return applications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one application.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	return s.find(ctx, id)
}

func (s *ApplicationService) find(ctx context.Context, id string) (*models.Application, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return application, nil
}

// SetStatus moves an application through the review flow. Already-imported
// applications are frozen.
func (s *ApplicationService) SetStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error) {
	if !models.ValidApplicationStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown application status %q", status))
	}
	application, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.ImportedAsStudentID != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "application was already imported as a student")
	}
	if application.Status == status {
		return application, nil
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application status")
	}
	application.Status = status

	if status == models.ApplicationStatusApproved {
		s.notifier.Dispatch(NotificationEvent{
			Type:      EventApplicationApproved,
			Category:  models.NotificationCategoryAdmissions,
			Title:     "Application approved",
			Message:   fmt.Sprintf("Application for %s %s was approved", application.FirstName, application.LastName),
			RelatedID: application.ID,
		})
	}
	return application, nil
}

// RecordIntake registers a freshly received application event. The public
// site writes the row; the back office only raises the inbox notice.
func (s *ApplicationService) RecordIntake(ctx context.Context, id string) error {
	application, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	s.notifier.Dispatch(NotificationEvent{
		Type:      EventNewApplication,
		Category:  models.NotificationCategoryAdmissions,
		Title:     "New application",
		Message:   fmt.Sprintf("%s %s applied for %s (%s)", application.FirstName, application.LastName, application.Class, application.AcademicYear),
		RelatedID: application.ID,
	})
	return nil
}

// ImportApproved converts every approved, not-yet-imported application into
// a student. Individual conversions that fail are skipped and reported; the
// run itself always completes. A concurrent or repeated run converts nothing
// twice thanks to the repository's guarded transaction.
func (s *ApplicationService) ImportApproved(ctx context.Context) (*ImportResult, error) {
	pending, err := s.repo.ListApprovedUnimported(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved applications")
	}

	now := s.now().UTC()
	result := &ImportResult{Skipped: []ImportSkip{}}
	for _, application := range pending {
		name := application.FirstName + " " + application.LastName
		if reason, ok := s.importable(application); !ok {
			result.Skipped = append(result.Skipped, ImportSkip{ApplicationID: application.ID, Name: name, Reason: reason})
			continue
		}

		student := s.studentFrom(application, now)
		converted, err := s.repo.ConvertToStudent(ctx, application.ID, student)
		if err != nil {
			s.logger.Error("application import failed", zap.String("application_id", application.ID), zap.Error(err))
			result.Skipped = append(result.Skipped, ImportSkip{ApplicationID: application.ID, Name: name, Reason: err.Error()})
			continue
		}
		if !converted {
			// Another run claimed it between the list and the convert.
			result.Skipped = append(result.Skipped, ImportSkip{ApplicationID: application.ID, Name: name, Reason: "already imported"})
			continue
		}
		result.ImportedCount++
	}

	if result.ImportedCount > 0 {
		s.notifier.Dispatch(NotificationEvent{
			Type:     EventApplicationsImported,
			Category: models.NotificationCategoryAdmissions,
			Title:    "Applications imported",
			Message:  fmt.Sprintf("%d approved applications became students", result.ImportedCount),
			Metadata: map[string]interface{}{
				"imported_count": result.ImportedCount,
				"skipped_count":  len(result.Skipped),
			},
		})
	}
	return result, nil
}

// importable validates the fields the roster requires but the public form
// does not enforce.
func (s *ApplicationService) importable(application models.Application) (string, bool) {
	if application.FirstName == "" || application.LastName == "" {
		return "missing child name", false
	}
	if !models.ValidClass(application.Class) {
		return fmt.Sprintf("unknown class %q", application.Class), false
	}
	if application.AcademicYear == "" {
		return "missing academic year", false
	}
	if application.DateOfBirth.IsZero() {
		return "missing date of birth", false
	}
	return "", true
}

func (s *ApplicationService) studentFrom(application models.Application, now time.Time) *models.Student {
	return &models.Student{
		FirstName:     application.FirstName,
		LastName:      application.LastName,
		DateOfBirth:   application.DateOfBirth,
		Gender:        application.Gender,
		Class:         application.Class,
		Level:         application.Level,
		AcademicYear:  application.AcademicYear,
		AdmissionDate: now,
		Status:        models.StudentStatusActive,
		GuardianName:  application.GuardianName,
		GuardianPhone: application.GuardianPhone,
		Address:       application.Address,
		TotalFees:     s.defaultFees,
		AmountPaid:    0,
		AmountDue:     s.defaultFees,
		PaymentStatus: models.PaymentStatusNotPaid,
	}
}
