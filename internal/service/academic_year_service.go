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

type academicYearRepository interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindActive(ctx context.Context) (*models.AcademicYear, error)
	ExistsByYear(ctx context.Context, yearLabel string, excludeID string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetActive(ctx context.Context, id string) error
	SetDefault(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type studentCounter interface {
	CountByYear(ctx context.Context, yearLabel string) (int, error)
}

type applicantReader interface {
	CountByYear(ctx context.Context, yearLabel string) (int, error)
	CountByYearAndStatus(ctx context.Context, yearLabel string) (map[models.ApplicationStatus]int, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

type detailsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateAcademicYearRequest holds payload for creating a year.
type CreateAcademicYearRequest struct {
	Year      string    `json:"year" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  bool      `json:"is_active"`
	IsDefault bool      `json:"is_default"`
}

// UpdateAcademicYearRequest updates mutable fields on a year.
type UpdateAcademicYearRequest struct {
	Year      string    `json:"year" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	IsActive  *bool     `json:"is_active"`
	IsDefault *bool     `json:"is_default"`
}

// AcademicYearService orchestrates the year registry.
type AcademicYearService struct {
	repo       academicYearRepository
	students   studentCounter
	applicants applicantReader
	cache      detailsCache
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// AcademicYearServiceOption configures the service.
type AcademicYearServiceOption func(*AcademicYearService)

// WithYearClock overrides the clock, for tests.
func WithYearClock(now func() time.Time) AcademicYearServiceOption {
	return func(s *AcademicYearService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDetailsCache wires the redis-backed details cache.
func WithDetailsCache(cache detailsCache, ttl time.Duration) AcademicYearServiceOption {
	return func(s *AcademicYearService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewAcademicYearService creates a new academic year service instance.
func NewAcademicYearService(repo academicYearRepository, students studentCounter, applicants applicantReader, validate *validator.Validate, logger *zap.Logger, opts ...AcademicYearServiceOption) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AcademicYearService{
		repo:       repo,
		students:   students,
		applicants: applicants,
		cacheTTL:   5 * time.Minute,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// List returns all years with derived status and counts.
func (s *AcademicYearService) List(ctx context.Context) ([]models.AcademicYearSummary, error) {
	years, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	now := s.now()
	summaries := make([]models.AcademicYearSummary, 0, len(years))
	for _, year := range years {
		summary, err := s.summarize(ctx, year, now)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// Get returns one year with derived status and counts.
func (s *AcademicYearService) Get(ctx context.Context, id string) (*models.AcademicYearSummary, error) {
	year, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, *year, s.now())
}

func (s *AcademicYearService) find(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

func (s *AcademicYearService) summarize(ctx context.Context, year models.AcademicYear, now time.Time) (*models.AcademicYearSummary, error) {
	studentCount, err := s.students.CountByYear(ctx, year.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	applicantCount, err := s.applicants.CountByYear(ctx, year.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applicants")
	}
	return &models.AcademicYearSummary{
		AcademicYear:   year,
		Status:         year.StatusAt(now),
		StudentCount:   studentCount,
		ApplicantCount: applicantCount,
	}, nil
}

// SuggestRange proposes the next September-to-August school year based on
// the current date.
func (s *AcademicYearService) SuggestRange(ctx context.Context) models.YearRange {
	now := s.now()
	startYear := now.Year()
	// From September onward the suggestion rolls to the year starting now;
	// before September it targets the school year already in flight.
	if now.Month() < time.September {
		startYear--
	}
	start := time.Date(startYear, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(startYear+1, time.August, 31, 0, 0, 0, 0, time.UTC)
	return models.YearRange{
		Year:      fmt.Sprintf("%d-%d", startYear, startYear+1),
		StartDate: start,
		EndDate:   end,
	}
}

// Create adds a new year enforcing label uniqueness and date ordering.
func (s *AcademicYearService) Create(ctx context.Context, req CreateAcademicYearRequest) (*models.AcademicYearSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	exists, err := s.repo.ExistsByYear(ctx, req.Year, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check year uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("academic year %q already exists", req.Year))
	}

	year := &models.AcademicYear{
		Year:      req.Year,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}

	if req.IsActive {
		if err := s.repo.SetActive(ctx, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate academic year")
		}
		year.IsActive = true
	}
	if req.IsDefault {
		if err := s.repo.SetDefault(ctx, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default academic year")
		}
		year.IsDefault = true
	}

	s.invalidateDetails(ctx)
	return s.summarize(ctx, *year, s.now())
}

// Update modifies a year record.
func (s *AcademicYearService) Update(ctx context.Context, id string, req UpdateAcademicYearRequest) (*models.AcademicYearSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	year, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByYear(ctx, req.Year, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check year uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("academic year %q already exists", req.Year))
	}

	year.Year = req.Year
	year.StartDate = req.StartDate
	year.EndDate = req.EndDate
	if err := s.repo.Update(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic year")
	}

	if req.IsActive != nil && *req.IsActive {
		if err := s.repo.SetActive(ctx, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate academic year")
		}
		year.IsActive = true
	}
	if req.IsDefault != nil && *req.IsDefault {
		if err := s.repo.SetDefault(ctx, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default academic year")
		}
		year.IsDefault = true
	}

	s.invalidateDetails(ctx)
	return s.summarize(ctx, *year, s.now())
}

// SetActive designates a year as the default target for new admissions. The
// swap is a single transaction in the repository, so two concurrent calls
// can never leave zero or two active years.
func (s *AcademicYearService) SetActive(ctx context.Context, id string) (*models.AcademicYearSummary, error) {
	year, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, year.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate academic year")
	}
	year.IsActive = true
	s.invalidateDetails(ctx)
	return s.summarize(ctx, *year, s.now())
}

// Delete removes a year that has no students.
func (s *AcademicYearService) Delete(ctx context.Context, id string) error {
	year, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.students.CountByYear(ctx, year.Year)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("academic year has %d students", count))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete academic year")
	}
	s.invalidateDetails(ctx)
	return nil
}

// GetDetails returns the aggregate admin view for one year, cached for a
// short TTL because it fans out into several count queries.
func (s *AcademicYearService) GetDetails(ctx context.Context, id string) (*models.AcademicYearDetails, error) {
	cacheKey := "academic_year_details:" + id
	if s.cache != nil {
		var cached models.AcademicYearDetails
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("year details cache read failed", zap.Error(err))
		}
	}

	year, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarize(ctx, *year, s.now())
	if err != nil {
		return nil, err
	}
	byStatus, err := s.applicants.CountByYearAndStatus(ctx, year.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to group applicants")
	}
	applicants, _, err := s.applicants.List(ctx, models.ApplicationFilter{AcademicYear: year.Year, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applicants")
	}

	details := &models.AcademicYearDetails{
		AcademicYearSummary: *summary,
		ApplicantsByStatus:  byStatus,
		Applicants:          applicants,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, details, s.cacheTTL); err != nil {
			s.logger.Warn("year details cache write failed", zap.Error(err))
		}
	}
	return details, nil
}

// FindActiveYear returns the administratively active year, or a
// precondition error when none is flagged.
func (s *AcademicYearService) FindActiveYear(ctx context.Context) (*models.AcademicYear, error) {
	year, err := s.repo.FindActive(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active academic year is set")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active academic year")
	}
	return year, nil
}

func (s *AcademicYearService) invalidateDetails(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "academic_year_details:*"); err != nil {
		s.logger.Warn("year details cache invalidation failed", zap.Error(err))
	}
}
