package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
)

const applicationColumns = `id, first_name, last_name, date_of_birth, gender, guardian_name, guardian_phone, address,
        academic_year, class, level, status, imported_as_student_id, created_at, updated_at`

// ApplicationRepository handles persistence for admission applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns applications matching the provided filters.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	base := "FROM applications WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", applicationColumns, base, size, offset)

	var applications []models.Application
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID loads an application by identifier.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = $1", applicationColumns)
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// SetStatus updates the review status of an application.
func (r *ApplicationRepository) SetStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	const query = `UPDATE applications SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set application status: %w", err)
	}
	return nil
}

// ListApprovedUnimported returns approved applications that were never
// converted into students.
func (r *ApplicationRepository) ListApprovedUnimported(ctx context.Context) ([]models.Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE status = $1 AND imported_as_student_id IS NULL ORDER BY created_at ASC", applicationColumns)
	var applications []models.Application
	if err := r.db.SelectContext(ctx, &applications, query, models.ApplicationStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved unimported applications: %w", err)
	}
	return applications, nil
}

// ConvertToStudent creates the student record and writes the back-reference
// in one transaction. The IS NULL guard on the application row keeps a
// concurrent import run from converting the same application twice.
func (r *ApplicationRepository) ConvertToStudent(ctx context.Context, applicationID string, student *models.Student) (bool, error) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin convert tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE applications SET imported_as_student_id = $2, updated_at = $3 WHERE id = $1 AND imported_as_student_id IS NULL`,
		applicationID, student.ID, now,
	)
	if err != nil {
		return false, fmt.Errorf("mark application imported: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark application imported result: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}

	const insertQuery = `INSERT INTO students (id, first_name, last_name, date_of_birth, gender, class, level, academic_year, admission_date,
        status, status_reason, status_date, guardian_name, guardian_phone, address,
        total_fees, amount_paid, amount_due, payment_status, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :date_of_birth, :gender, :class, :level, :academic_year, :admission_date,
        :status, :status_reason, :status_date, :guardian_name, :guardian_phone, :address,
        :total_fees, :amount_paid, :amount_due, :payment_status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, student); err != nil {
		return false, fmt.Errorf("insert imported student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit convert tx: %w", err)
	}
	return true, nil
}

// CountByYear counts applicants referencing the given year label.
func (r *ApplicationRepository) CountByYear(ctx context.Context, yearLabel string) (int, error) {
	const query = `SELECT COUNT(*) FROM applications WHERE academic_year = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, yearLabel); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count applications by year: %w", err)
	}
	return count, nil
}

// CountByYearAndStatus groups applicant counts per review status for a year.
func (r *ApplicationRepository) CountByYearAndStatus(ctx context.Context, yearLabel string) (map[models.ApplicationStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS count FROM applications WHERE academic_year = $1 GROUP BY status`
	rows := []struct {
		Status models.ApplicationStatus `db:"status"`
		Count  int                      `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, yearLabel); err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	counts := make(map[models.ApplicationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
