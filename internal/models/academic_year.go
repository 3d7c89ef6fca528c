package models

import "time"

// YearStatus is computed from the clock against the year's date range. It is
// independent of the administrative IsActive flag and never stored.
type YearStatus string

const (
	YearStatusUpcoming  YearStatus = "upcoming"
	YearStatusActive    YearStatus = "active"
	YearStatusCompleted YearStatus = "completed"
)

// AcademicYear models one named school-year period.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Year      string    `db:"year" json:"year"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StatusAt derives the calendar status of the year at the given instant.
func (y *AcademicYear) StatusAt(now time.Time) YearStatus {
	if now.Before(y.StartDate) {
		return YearStatusUpcoming
	}
	if now.After(y.EndDate) {
		return YearStatusCompleted
	}
	return YearStatusActive
}

// AcademicYearSummary augments a year with derived aggregate counts.
type AcademicYearSummary struct {
	AcademicYear
	Status         YearStatus `json:"status"`
	StudentCount   int        `json:"student_count"`
	ApplicantCount int        `json:"applicant_count"`
}

// AcademicYearDetails is the aggregate admin view for one year.
type AcademicYearDetails struct {
	AcademicYearSummary
	ApplicantsByStatus map[ApplicationStatus]int `json:"applicants_by_status"`
	Applicants         []Application             `json:"applicants"`
}

// YearRange is a suggested start/end pair for a new academic year.
type YearRange struct {
	Year      string    `json:"year"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}
