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

// GraduationReason is recorded on students leaving the final class.
const GraduationReason = "end of program"

type promotionStudentStore interface {
	ListActiveByYear(ctx context.Context, yearLabel string) ([]models.Student, error)
	Promote(ctx context.Context, id string, nextClass models.Class, targetYear string) (bool, error)
	Graduate(ctx context.Context, id string, reason string, at time.Time) (bool, error)
	CountByYear(ctx context.Context, yearLabel string) (int, error)
}

type promotionYearStore interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindActive(ctx context.Context) (*models.AcademicYear, error)
}

type promotionLocker interface {
	TryAcquire(ctx context.Context, yearID string) (release func(), ok bool, err error)
}

type promotionMetrics interface {
	ObservePromotionRun(promoted, graduated, failed int)
}

// PromotionFailure records one student the batch could not transition.
type PromotionFailure struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// PromotionResult summarizes one promotion run.
type PromotionResult struct {
	PromotedCount  int                `json:"promoted_count"`
	GraduatedCount int                `json:"graduated_count"`
	Failures       []PromotionFailure `json:"failures"`
}

// PromotionService bulk-transitions a cohort when its academic year ends.
// The batch is deliberately best-effort: one malformed record must not block
// the rest of the cohort, so failures are collected and returned instead of
// aborting.
type PromotionService struct {
	students promotionStudentStore
	years    promotionYearStore
	locker   promotionLocker
	notifier Notifier
	metrics  promotionMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// PromotionServiceOption configures the service.
type PromotionServiceOption func(*PromotionService)

// WithPromotionClock overrides the clock, for tests.
func WithPromotionClock(now func() time.Time) PromotionServiceOption {
	return func(s *PromotionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPromotionMetrics wires run counters.
func WithPromotionMetrics(metrics promotionMetrics) PromotionServiceOption {
	return func(s *PromotionService) {
		s.metrics = metrics
	}
}

// NewPromotionService constructs the promotion service.
func NewPromotionService(students promotionStudentStore, years promotionYearStore, locker promotionLocker, notifier Notifier, logger *zap.Logger, opts ...PromotionServiceOption) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	svc := &PromotionService{
		students: students,
		years:    years,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Promote transitions every active student of the source year: final-class
// students graduate in place, everyone else advances one class into the
// currently active year. Re-running after completion finds no active
// students and returns zero counts.
func (s *PromotionService) Promote(ctx context.Context, sourceYearID string) (*PromotionResult, error) {
	sourceYear, err := s.years.FindByID(ctx, sourceYearID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}

	now := s.now()
	if sourceYear.StatusAt(now) != models.YearStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("academic year %s has not completed yet", sourceYear.Year))
	}

	studentCount, err := s.students.CountByYear(ctx, sourceYear.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count cohort")
	}
	if studentCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("academic year %s has no students", sourceYear.Year))
	}

	// All-or-nothing pre-check: without an active target year nothing may
	// move, so fail before touching any student.
	activeYear, err := s.years.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active academic year to promote into")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active academic year")
	}

	release, ok, err := s.locker.TryAcquire(ctx, sourceYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize promotion")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a promotion for this year is already running")
	}
	defer release()

	cohort, err := s.students.ListActiveByYear(ctx, sourceYear.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	result := &PromotionResult{Failures: []PromotionFailure{}}
	for _, student := range cohort {
		if student.Class == models.ClassTop {
			moved, err := s.students.Graduate(ctx, student.ID, GraduationReason, now.UTC())
			if err != nil {
				result.Failures = append(result.Failures, PromotionFailure{StudentID: student.ID, Name: student.FullName(), Reason: err.Error()})
				continue
			}
			if moved {
				result.GraduatedCount++
			}
			continue
		}

		nextClass, ok := models.NextClass(student.Class)
		if !ok {
			result.Failures = append(result.Failures, PromotionFailure{StudentID: student.ID, Name: student.FullName(), Reason: fmt.Sprintf("no class follows %q", student.Class)})
			continue
		}
		moved, err := s.students.Promote(ctx, student.ID, nextClass, activeYear.Year)
		if err != nil {
			result.Failures = append(result.Failures, PromotionFailure{StudentID: student.ID, Name: student.FullName(), Reason: err.Error()})
			continue
		}
		if moved {
			result.PromotedCount++
		}
	}

	if s.metrics != nil {
		s.metrics.ObservePromotionRun(result.PromotedCount, result.GraduatedCount, len(result.Failures))
	}
	s.logger.Info("promotion run finished",
		zap.String("source_year", sourceYear.Year),
		zap.String("target_year", activeYear.Year),
		zap.Int("promoted", result.PromotedCount),
		zap.Int("graduated", result.GraduatedCount),
		zap.Int("failed", len(result.Failures)),
	)

	if result.PromotedCount > 0 || result.GraduatedCount > 0 {
		s.notifier.Dispatch(NotificationEvent{
			Type:      EventStudentsPromoted,
			Category:  models.NotificationCategoryAdmissions,
			Title:     "Cohort promotion completed",
			Message:   fmt.Sprintf("%s: %d promoted to %s, %d graduated", sourceYear.Year, result.PromotedCount, activeYear.Year, result.GraduatedCount),
			RelatedID: sourceYearID,
			Metadata: map[string]interface{}{
				"promoted_count":  result.PromotedCount,
				"graduated_count": result.GraduatedCount,
				"failure_count":   len(result.Failures),
			},
		})
	}

	return result, nil
}
