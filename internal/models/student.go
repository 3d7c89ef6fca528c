package models

import "time"

// Class is the ordered cohort ladder a child moves through.
type Class string

const (
	ClassBaby   Class = "BABY"
	ClassMiddle Class = "MIDDLE"
	ClassTop    Class = "TOP"
)

// classLadder fixes promotion order. ClassTop is terminal.
var classLadder = []Class{ClassBaby, ClassMiddle, ClassTop}

// NextClass returns the class following c in the ladder. The second return
// is false when c is the final class or unknown.
func NextClass(c Class) (Class, bool) {
	for i, candidate := range classLadder {
		if candidate == c {
			if i+1 < len(classLadder) {
				return classLadder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// ValidClass reports whether c is a known class.
func ValidClass(c Class) bool {
	for _, candidate := range classLadder {
		if candidate == c {
			return true
		}
	}
	return false
}

// StudentStatus models the student lifecycle.
type StudentStatus string

const (
	StudentStatusActive      StudentStatus = "active"
	StudentStatusInactive    StudentStatus = "inactive"
	StudentStatusGraduated   StudentStatus = "graduated"
	StudentStatusTransferred StudentStatus = "transferred"
	StudentStatusSuspended   StudentStatus = "suspended"
)

// IsTerminal reports whether the status ends the student lifecycle. Terminal
// students keep their record but reject further financial mutation.
func (s StudentStatus) IsTerminal() bool {
	return s == StudentStatusGraduated || s == StudentStatusTransferred
}

// ValidStudentStatus reports whether s is a known lifecycle status.
func ValidStudentStatus(s StudentStatus) bool {
	switch s {
	case StudentStatusActive, StudentStatusInactive, StudentStatusGraduated, StudentStatusTransferred, StudentStatusSuspended:
		return true
	}
	return false
}

// PaymentStatus is derived from the ledger and elapsed time, never set directly.
type PaymentStatus string

const (
	PaymentStatusNotPaid  PaymentStatus = "not_paid"
	PaymentStatusHalfPaid PaymentStatus = "half_paid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusOverdue  PaymentStatus = "overdue"
)

// Student represents one enrolled child.
type Student struct {
	ID            string        `db:"id" json:"id"`
	FirstName     string        `db:"first_name" json:"first_name"`
	LastName      string        `db:"last_name" json:"last_name"`
	DateOfBirth   time.Time     `db:"date_of_birth" json:"date_of_birth"`
	Gender        string        `db:"gender" json:"gender"`
	Class         Class         `db:"class" json:"class"`
	Level         string        `db:"level" json:"level"`
	AcademicYear  string        `db:"academic_year" json:"academic_year"`
	AdmissionDate time.Time     `db:"admission_date" json:"admission_date"`
	Status        StudentStatus `db:"status" json:"status"`
	StatusReason  *string       `db:"status_reason" json:"status_reason,omitempty"`
	StatusDate    *time.Time    `db:"status_date" json:"status_date,omitempty"`
	GuardianName  string        `db:"guardian_name" json:"guardian_name"`
	GuardianPhone string        `db:"guardian_phone" json:"guardian_phone"`
	Address       string        `db:"address" json:"address"`
	TotalFees     float64       `db:"total_fees" json:"total_fees"`
	AmountPaid    float64       `db:"amount_paid" json:"amount_paid"`
	AmountDue     float64       `db:"amount_due" json:"amount_due"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name for display and notifications.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// ChildAge returns the student's age in whole years at the given instant.
func (s *Student) ChildAge(now time.Time) int {
	age := now.Year() - s.DateOfBirth.Year()
	anniversary := s.DateOfBirth.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// StudentFilter defines filters supported by student list endpoints.
type StudentFilter struct {
	Class         Class
	Level         string
	Status        StudentStatus
	AcademicYear  string
	PaymentStatus PaymentStatus
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
