package models

import "time"

// ApplicationStatus tracks the admission review flow.
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusApproved    ApplicationStatus = "approved"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
)

// ValidApplicationStatus reports whether s is a known review status.
func ValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusUnderReview, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// Application is an admission application received through the public site.
// ImportedAsStudentID back-references the student created from it, making the
// import step idempotent.
type Application struct {
	ID                  string            `db:"id" json:"id"`
	FirstName           string            `db:"first_name" json:"first_name"`
	LastName            string            `db:"last_name" json:"last_name"`
	DateOfBirth         time.Time         `db:"date_of_birth" json:"date_of_birth"`
	Gender              string            `db:"gender" json:"gender"`
	GuardianName        string            `db:"guardian_name" json:"guardian_name"`
	GuardianPhone       string            `db:"guardian_phone" json:"guardian_phone"`
	Address             string            `db:"address" json:"address"`
	AcademicYear        string            `db:"academic_year" json:"academic_year"`
	Class               Class             `db:"class" json:"class"`
	Level               string            `db:"level" json:"level"`
	Status              ApplicationStatus `db:"status" json:"status"`
	ImportedAsStudentID *string           `db:"imported_as_student_id" json:"imported_as_student_id,omitempty"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationFilter defines filters for listing applications.
type ApplicationFilter struct {
	Status       ApplicationStatus
	AcademicYear string
	Search       string
	Page         int
	PageSize     int
}
