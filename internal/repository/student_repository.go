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

const studentColumns = `id, first_name, last_name, date_of_birth, gender, class, level, academic_year, admission_date,
        status, status_reason, status_date, guardian_name, guardian_phone, address,
        total_fees, amount_paid, amount_due, payment_status, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Class != "" {
		conditions = append(conditions, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, filter.Class)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.PaymentStatus != "" {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)+1))
		args = append(args, filter.PaymentStatus)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"first_name":     true,
		"last_name":      true,
		"class":          true,
		"admission_date": true,
		"created_at":     true,
	}
	if sortBy == "" || !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, sortBy, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, first_name, last_name, date_of_birth, gender, class, level, academic_year, admission_date,
        status, status_reason, status_date, guardian_name, guardian_phone, address,
        total_fees, amount_paid, amount_due, payment_status, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :date_of_birth, :gender, :class, :level, :academic_year, :admission_date,
        :status, :status_reason, :status_date, :guardian_name, :guardian_phone, :address,
        :total_fees, :amount_paid, :amount_due, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. Derived financial fields are written
// as provided; callers recompute them before persisting.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth,
        gender = :gender, class = :class, level = :level, academic_year = :academic_year, admission_date = :admission_date,
        guardian_name = :guardian_name, guardian_phone = :guardian_phone, address = :address,
        total_fees = :total_fees, amount_paid = :amount_paid, amount_due = :amount_due, payment_status = :payment_status,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetStatus records a lifecycle transition with its reason and date.
func (r *StudentRepository) SetStatus(ctx context.Context, id string, status models.StudentStatus, reason string, at time.Time) error {
	const query = `UPDATE students SET status = $2, status_reason = $3, status_date = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reason, at, time.Now().UTC()); err != nil {
		return fmt.Errorf("set student status: %w", err)
	}
	return nil
}

// ListActiveByYear returns the active cohort tied to the given year label.
func (r *StudentRepository) ListActiveByYear(ctx context.Context, yearLabel string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE academic_year = $1 AND status = $2 ORDER BY last_name ASC, first_name ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, yearLabel, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students by year: %w", err)
	}
	return students, nil
}

// Promote advances one student to the next class and year in a single
// statement so the record can never end up half-updated. The status guard
// makes re-runs no-ops for already moved students.
func (r *StudentRepository) Promote(ctx context.Context, id string, nextClass models.Class, targetYear string) (bool, error) {
	const query = `UPDATE students SET class = $2, academic_year = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, nextClass, targetYear, time.Now().UTC(), models.StudentStatusActive)
	if err != nil {
		return false, fmt.Errorf("promote student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("promote student result: %w", err)
	}
	return affected == 1, nil
}

// Graduate marks one student graduated in a single statement. The academic
// year is intentionally left untouched to preserve the historical record.
func (r *StudentRepository) Graduate(ctx context.Context, id string, reason string, at time.Time) (bool, error) {
	const query = `UPDATE students SET status = $2, status_reason = $3, status_date = $4, updated_at = $5 WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.StudentStatusGraduated, reason, at, time.Now().UTC(), models.StudentStatusActive)
	if err != nil {
		return false, fmt.Errorf("graduate student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("graduate student result: %w", err)
	}
	return affected == 1, nil
}

// CountByYear counts students referencing the given year label.
func (r *StudentRepository) CountByYear(ctx context.Context, yearLabel string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE academic_year = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, yearLabel); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("count students by year: %w", err)
	}
	return count, nil
}
