package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

const academicYearColumns = `id, year, start_date, end_date, is_active, is_default, created_at, updated_at`

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates an academic year repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns all years ordered by start date, newest first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years ORDER BY start_date DESC", academicYearColumns)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID loads a year by identifier.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE id = $1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindActive returns the administratively active year.
func (r *AcademicYearRepository) FindActive(ctx context.Context) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE is_active = TRUE LIMIT 1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByYear checks whether a year label is already taken.
func (r *AcademicYearRepository) ExistsByYear(ctx context.Context, yearLabel string, excludeID string) (bool, error) {
	base := "SELECT 1 FROM academic_years WHERE year = $1"
	args := []interface{}{yearLabel}
	if excludeID != "" {
		base += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check year uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new academic year record.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, year, start_date, end_date, is_active, is_default, created_at, updated_at)
        VALUES (:id, :year, :start_date, :end_date, :is_active, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update modifies an existing year.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET year = :year, start_date = :start_date, end_date = :end_date,
        is_active = :is_active, is_default = :is_default, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// SetActive marks the provided year as active and clears the flag everywhere
// else inside one transaction, so concurrent calls can never leave zero or
// two active years.
func (r *AcademicYearRepository) SetActive(ctx context.Context, id string) error {
	return r.swapFlag(ctx, id, "is_active")
}

// SetDefault atomically moves the default designation to the provided year.
func (r *AcademicYearRepository) SetDefault(ctx context.Context, id string) error {
	return r.swapFlag(ctx, id, "is_default")
}

func (r *AcademicYearRepository) swapFlag(ctx context.Context, id string, column string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s swap tx: %w", column, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	clearQuery := fmt.Sprintf("UPDATE academic_years SET %s = FALSE, updated_at = $1 WHERE %s = TRUE AND id <> $2", column, column)
	if _, err = tx.ExecContext(ctx, clearQuery, now, id); err != nil {
		return fmt.Errorf("clear %s flags: %w", column, err)
	}

	setQuery := fmt.Sprintf("UPDATE academic_years SET %s = TRUE, updated_at = $2 WHERE id = $1", column)
	if _, err = tx.ExecContext(ctx, setQuery, id, now); err != nil {
		return fmt.Errorf("set %s flag: %w", column, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s swap tx: %w", column, err)
	}
	return nil
}

// Delete removes a year permanently. Callers must verify the year has no
// students first.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}
